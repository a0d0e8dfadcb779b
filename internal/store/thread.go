package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keiracom/agencyos/internal/domain"
)

// GetOrCreateThread returns the single Thread bound to an Assignment,
// creating it on first contact (spec.md §4.9: a Thread exists 1:1 with
// an Assignment regardless of which side sent the first message).
func (s *Store) GetOrCreateThread(ctx context.Context, tenantID, assignmentID string) (*domain.Thread, error) {
	th := &domain.Thread{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, assignment_id, tenant_id, status, outcome, message_count, last_inbound_at, last_outbound_at, created_at, updated_at
		FROM threads WHERE assignment_id = $1
	`, assignmentID).Scan(&th.ID, &th.AssignmentID, &th.TenantID, &th.Status, &th.Outcome,
		&th.MessageCount, &th.LastInboundAt, &th.LastOutboundAt, &th.CreatedAt, &th.UpdatedAt)
	if err == nil {
		return th, nil
	}
	if scanErr(err) != ErrNotFound {
		return nil, fmt.Errorf("lookup thread: %w", err)
	}

	th = &domain.Thread{
		ID:           uuid.New().String(),
		AssignmentID: assignmentID,
		TenantID:     tenantID,
		Status:       domain.ThreadActive,
		Outcome:      domain.OutcomeOngoing,
	}
	_, insErr := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, assignment_id, tenant_id, status, outcome, message_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,0,NOW(),NOW())
		ON CONFLICT (assignment_id) DO NOTHING
	`, th.ID, th.AssignmentID, th.TenantID, th.Status, th.Outcome)
	if insErr != nil {
		return nil, fmt.Errorf("create thread: %w", insErr)
	}
	return s.GetOrCreateThread(ctx, tenantID, assignmentID)
}

// UpdateThreadState applies the Thread State Machine's transition
// result (spec.md §4.9), advancing message_count and the inbound/
// outbound timestamps alongside status/outcome.
func (s *Store) UpdateThreadState(ctx context.Context, t *domain.Thread) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE threads
		SET status = $1, outcome = $2, message_count = $3,
		    last_inbound_at = $4, last_outbound_at = $5, updated_at = NOW()
		WHERE id = $6
	`, t.Status, t.Outcome, t.MessageCount, t.LastInboundAt, t.LastOutboundAt, t.ID)
	if err != nil {
		return fmt.Errorf("update thread state: %w", err)
	}
	return nil
}

// ListStaleThreadCandidates returns active threads whose last outbound
// touch is older than cutoff and have had no inbound reply since, for
// the stale-sweep job (spec.md §4.9: "no inbound for W after last
// outbound → stale").
func (s *Store) ListStaleThreadCandidates(ctx context.Context, cutoff time.Time) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assignment_id, tenant_id, status, outcome, message_count, last_inbound_at, last_outbound_at, created_at, updated_at
		FROM threads
		WHERE status = 'active' AND last_outbound_at IS NOT NULL AND last_outbound_at < $1
		  AND (last_inbound_at IS NULL OR last_inbound_at < last_outbound_at)
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale thread candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.Thread
	for rows.Next() {
		var t domain.Thread
		if err := rows.Scan(&t.ID, &t.AssignmentID, &t.TenantID, &t.Status, &t.Outcome,
			&t.MessageCount, &t.LastInboundAt, &t.LastOutboundAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// BackfillLedToBooking marks every Activity in a converting thread's
// attribution window as having led to the booking (spec.md §4.9,
// §8 Open Questions: default 90-day window from last outbound touch).
func (s *Store) BackfillLedToBooking(ctx context.Context, assignmentID string, windowStart time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET led_to_booking = true
		WHERE assignment_id = $1 AND occurred_at >= $2 AND action = 'sent'
	`, assignmentID, windowStart)
	if err != nil {
		return 0, fmt.Errorf("backfill led_to_booking: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
