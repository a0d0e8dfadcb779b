package cis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keiracom/agencyos/internal/domain"
)

func assignment(id string, industry string, employees int, converts bool) []ActivityRecord {
	rec := ActivityRecord{
		AssignmentID:  id,
		Channel:       domain.ChannelEmail,
		Industry:      industry,
		EmployeeCount: employees,
		LedToBooking:  converts,
	}
	return []ActivityRecord{rec}
}

func TestDetectWho_PublishesSegmentWithAboveBaselineConversion(t *testing.T) {
	var records []ActivityRecord

	// saas/11-50 converts well above baseline: 10/15 vs overall ~10/45.
	for i := 0; i < 10; i++ {
		records = append(records, assignment(idN("saas-win", i), "saas", 20, true)...)
	}
	for i := 0; i < 5; i++ {
		records = append(records, assignment(idN("saas-loss", i), "saas", 20, false)...)
	}
	// A large non-converting baseline population in a different segment.
	for i := 0; i < 30; i++ {
		records = append(records, assignment(idN("fintech", i), "fintech", 500, false)...)
	}

	signals := DetectWho(records)
	assert.NotEmpty(t, signals)

	var found bool
	for _, s := range signals {
		if s.Segment == "saas/11-50" {
			found = true
			assert.Equal(t, 10, s.ConvertingCount)
			assert.Greater(t, s.Confidence, 0.0)
		}
	}
	assert.True(t, found)
}

func TestDetectWho_SkipsSegmentsBelowSampleGate(t *testing.T) {
	var records []ActivityRecord
	for i := 0; i < 2; i++ {
		records = append(records, assignment(idN("tiny", i), "saas", 20, true)...)
	}

	signals := DetectWho(records)
	assert.Empty(t, signals)
}

func idN(prefix string, n int) string {
	return fmt.Sprintf("%s-%d", prefix, n)
}
