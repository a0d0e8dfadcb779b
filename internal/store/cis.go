package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/keiracom/agencyos/internal/domain"
)

// DetectionActivity is the detector-facing row CIS mines: an Activity
// joined with the org attributes of the lead it was sent to, the
// segment dimensions the WHO detector buckets on.
type DetectionActivity struct {
	AssignmentID     string
	Channel          domain.Channel
	SequencePosition int
	OccurredAt       time.Time
	Content          domain.ContentSnapshot
	LedToBooking     bool

	Industry      string
	EmployeeCount int
	Country       string
	Title         string
}

// TitleAuthority coarsely buckets a job title into an authority band for
// CIS segmentation. It deliberately stays local to this package rather
// than becoming a shared dependency of scoring: CIS only needs a rough
// bucket to segment on, not scoring's precise authority weighting.
func TitleAuthority(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "ceo") || strings.Contains(lower, "founder") || strings.Contains(lower, "owner"):
		return "owner_ceo"
	case strings.Contains(lower, "director") || strings.Contains(lower, "head of"):
		return "director"
	case strings.Contains(lower, "chief") || strings.Contains(lower, "cto") || strings.Contains(lower, "cfo") || strings.Contains(lower, "coo"):
		return "c_suite"
	case strings.Contains(lower, "vp") || strings.Contains(lower, "vice president"):
		return "vp"
	case strings.Contains(lower, "manager") || strings.Contains(lower, "lead"):
		return "manager"
	default:
		return "other"
	}
}

// ListDetectionActivities returns every Activity occurring on or after
// since, joined with the Assignment and PoolLead attributes the CIS
// detectors segment on. This is a cross-tenant, anonymized read: callers
// must never surface tenant_id or lead identity from its results
// (spec.md §7 — CIS signals carry no tenant- or lead-identifying data).
func (s *Store) ListDetectionActivities(ctx context.Context, since time.Time) ([]DetectionActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.assignment_id, a.channel, a.sequence_position, a.occurred_at,
		       a.content_snapshot, a.led_to_booking,
		       COALESCE(p.industry, ''), COALESCE(p.employee_count, 0),
		       COALESCE(p.country, ''), COALESCE(p.title, '')
		FROM activities a
		JOIN assignments asg ON asg.id = a.assignment_id
		JOIN pool_leads p ON p.id = asg.pool_lead_id
		WHERE a.occurred_at >= $1
		ORDER BY a.assignment_id, a.sequence_position
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list detection activities: %w", err)
	}
	defer rows.Close()

	var out []DetectionActivity
	for rows.Next() {
		var d DetectionActivity
		var contentJSON []byte
		if err := rows.Scan(&d.AssignmentID, &d.Channel, &d.SequencePosition, &d.OccurredAt,
			&contentJSON, &d.LedToBooking, &d.Industry, &d.EmployeeCount, &d.Country, &d.Title); err != nil {
			return nil, fmt.Errorf("scan detection activity: %w", err)
		}
		if len(contentJSON) > 0 {
			if err := json.Unmarshal(contentJSON, &d.Content); err != nil {
				return nil, fmt.Errorf("unmarshal content snapshot: %w", err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertBuyerSignal persists a published cross-tenant BuyerSignal.
func (s *Store) InsertBuyerSignal(ctx context.Context, sig *domain.BuyerSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buyer_signals
			(id, type, segment, description, confidence, sample_size, converting_count, detected_at)
		VALUES (gen_random_uuid(),$1,$2,$3,$4,$5,$6,NOW())
	`, sig.Type, sig.Segment, sig.Description, sig.Confidence, sig.SampleSize, sig.ConvertingCount)
	if err != nil {
		return fmt.Errorf("insert buyer signal: %w", err)
	}
	return nil
}

// InsertConversionPattern persists a published ConversionPattern. Detail
// is archived separately to S3 by the caller; only ArchiveKey is stored
// here alongside the summary fields Postgres needs for listing.
func (s *Store) InsertConversionPattern(ctx context.Context, p *domain.ConversionPattern) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversion_patterns
			(id, type, segment, confidence, sample_size, archive_key, detected_at)
		VALUES (gen_random_uuid(),$1,$2,$3,$4,$5,NOW())
	`, p.Type, p.Segment, p.Confidence, p.SampleSize, p.ArchiveKey)
	if err != nil {
		return fmt.Errorf("insert conversion pattern: %w", err)
	}
	return nil
}

// ListRecentBuyerSignals returns published signals for use as the
// Scorer's BuyerSignalBonus input, most recent first.
func (s *Store) ListRecentBuyerSignals(ctx context.Context, limit int) ([]domain.BuyerSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, segment, description, confidence, sample_size, converting_count, detected_at
		FROM buyer_signals
		ORDER BY detected_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list buyer signals: %w", err)
	}
	defer rows.Close()

	var out []domain.BuyerSignal
	for rows.Next() {
		var b domain.BuyerSignal
		if err := rows.Scan(&b.ID, &b.Type, &b.Segment, &b.Description, &b.Confidence,
			&b.SampleSize, &b.ConvertingCount, &b.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan buyer signal: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
