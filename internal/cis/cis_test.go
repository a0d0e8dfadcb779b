package cis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/store"
)

type fakeRepo struct {
	rows           []store.DetectionActivity
	signals        []domain.BuyerSignal
	patterns       []domain.ConversionPattern
}

func (f *fakeRepo) ListDetectionActivities(ctx context.Context, since time.Time) ([]store.DetectionActivity, error) {
	return f.rows, nil
}

func (f *fakeRepo) InsertBuyerSignal(ctx context.Context, sig *domain.BuyerSignal) error {
	f.signals = append(f.signals, *sig)
	return nil
}

func (f *fakeRepo) InsertConversionPattern(ctx context.Context, p *domain.ConversionPattern) error {
	f.patterns = append(f.patterns, *p)
	return nil
}

type fakeArchiver struct {
	archived int
}

func (f *fakeArchiver) Archive(ctx context.Context, patternID string, detail map[string]any) (string, error) {
	f.archived++
	return "cis/patterns/" + patternID + ".json", nil
}

func detectionRow(assignmentID string, seq int, channel domain.Channel, converts bool) store.DetectionActivity {
	return store.DetectionActivity{
		AssignmentID:     assignmentID,
		Channel:          channel,
		SequencePosition: seq,
		OccurredAt:       time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		LedToBooking:     converts,
		Industry:         "saas",
		EmployeeCount:    20,
		Country:          "AU",
		Title:            "VP of Sales",
		Content:          domain.ContentSnapshot{Body: "save time with automation, worth a quick chat?"},
	}
}

func TestService_Run_PublishesSignalsAndArchivesPatterns(t *testing.T) {
	var rows []store.DetectionActivity
	for i := 0; i < 15; i++ {
		rows = append(rows, detectionRow(idN("win", i), 0, domain.ChannelEmail, true))
	}
	for i := 0; i < 10; i++ {
		rows = append(rows, detectionRow(idN("loss", i), 0, domain.ChannelSMS, false))
	}
	// A non-converting baseline in another segment, so saas/11-50 converts
	// above the overall rate.
	for i := 0; i < 10; i++ {
		r := detectionRow(idN("base", i), 0, domain.ChannelSMS, false)
		r.Industry = "fintech"
		rows = append(rows, r)
	}
	repo := &fakeRepo{rows: rows}
	archiver := &fakeArchiver{}
	svc := New(repo, archiver, 90*24*time.Hour)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, repo.signals)
	assert.Equal(t, len(repo.signals), result.SignalsPublished)
	for _, p := range repo.patterns {
		assert.NotEmpty(t, p.ArchiveKey, "published patterns must carry the archive key")
	}
}

func TestToActivityRecords_InfersAuthorityFromTitle(t *testing.T) {
	rows := []store.DetectionActivity{detectionRow("a1", 0, domain.ChannelEmail, true)}
	records := toActivityRecords(rows)
	require.Len(t, records, 1)
	assert.Equal(t, "vp", records[0].Authority)
}
