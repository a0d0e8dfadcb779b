package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keiracom/agencyos/internal/domain"
)

// ScheduleTouch enqueues one ScheduledTouch, assigning an id if unset.
func (s *Store) ScheduleTouch(ctx context.Context, t *domain.ScheduledTouch) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = domain.TouchPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_touches
			(id, tenant_id, campaign_id, assignment_id, pool_lead_id, channel, template_id, position, status, due_at, attempts, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,0,NOW(),NOW())
	`, t.ID, t.TenantID, t.CampaignID, t.AssignmentID, t.PoolLeadID, t.Channel, t.TemplateID, t.Position, t.Status, t.DueAt)
	if err != nil {
		return "", fmt.Errorf("schedule touch: %w", err)
	}
	return t.ID, nil
}

// ClaimDueTouches atomically claims up to limit touches whose due_at has
// passed, using FOR UPDATE SKIP LOCKED so concurrent workers never claim
// the same row twice.
func (s *Store) ClaimDueTouches(ctx context.Context, workerID string, limit int) ([]domain.ScheduledTouch, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH claimed AS (
			SELECT id
			FROM scheduled_touches
			WHERE status = 'pending' AND due_at <= NOW()
			ORDER BY due_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scheduled_touches st
		SET status = 'claimed', updated_at = NOW()
		FROM claimed c
		WHERE st.id = c.id
		RETURNING st.id, st.tenant_id, st.campaign_id, st.assignment_id, st.pool_lead_id,
		          st.channel, st.template_id, st.position, st.status, st.due_at, st.attempts,
		          COALESCE(st.last_error, ''), st.requeue_count, COALESCE(st.provider_message_id, '')
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due touches: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledTouch
	for rows.Next() {
		var t domain.ScheduledTouch
		if err := rows.Scan(&t.ID, &t.TenantID, &t.CampaignID, &t.AssignmentID, &t.PoolLeadID,
			&t.Channel, &t.TemplateID, &t.Position, &t.Status, &t.DueAt, &t.Attempts,
			&t.LastError, &t.RequeueCount, &t.ProviderMessageID); err != nil {
			return nil, fmt.Errorf("scan claimed touch: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkSent records a successful send.
func (s *Store) MarkSent(ctx context.Context, touchID, providerMessageID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_touches
		SET status = 'sent', provider_message_id = $1, sent_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`, providerMessageID, touchID)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDropped records a JIT-validation drop; the touch does not retry.
func (s *Store) MarkDropped(ctx context.Context, touchID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_touches SET status = 'dropped', last_error = $1, updated_at = NOW() WHERE id = $2
	`, reason, touchID)
	if err != nil {
		return fmt.Errorf("mark dropped: %w", err)
	}
	return nil
}

// RetryOrDeadLetter requeues a failed touch at its backoff delay, or
// marks it dead-letter once attempts reaches maxAttempts.
func (s *Store) RetryOrDeadLetter(ctx context.Context, touchID, lastErr string, attempts, maxAttempts int, backoff time.Duration) error {
	if attempts >= maxAttempts {
		_, err := s.db.ExecContext(ctx, `
			UPDATE scheduled_touches SET status = 'dead_letter', attempts = $1, last_error = $2, updated_at = NOW()
			WHERE id = $3
		`, attempts, lastErr, touchID)
		if err != nil {
			return fmt.Errorf("dead letter touch: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_touches
		SET status = 'pending', attempts = $1, last_error = $2, due_at = NOW() + $3 * INTERVAL '1 second', updated_at = NOW()
		WHERE id = $4
	`, attempts, lastErr, backoff.Seconds(), touchID)
	if err != nil {
		return fmt.Errorf("retry touch: %w", err)
	}
	return nil
}

// RequeueRateLimited pushes a rate-limited touch to the next send window,
// or drops it once requeueCount exceeds maxRequeues (spec.md §4.7: "after
// 3 such re-queues the touch is dropped with an observability event").
func (s *Store) RequeueRateLimited(ctx context.Context, touchID string, requeueCount, maxRequeues int, nextDue time.Time) error {
	if requeueCount > maxRequeues {
		_, err := s.db.ExecContext(ctx, `
			UPDATE scheduled_touches
			SET status = 'dropped', last_error = 'rate_limited_max_requeues', requeue_count = $1, updated_at = NOW()
			WHERE id = $2
		`, requeueCount, touchID)
		if err != nil {
			return fmt.Errorf("drop max-requeued touch: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_touches
		SET status = 'pending', requeue_count = $1, due_at = $2, updated_at = NOW()
		WHERE id = $3
	`, requeueCount, nextDue, touchID)
	if err != nil {
		return fmt.Errorf("requeue rate-limited touch: %w", err)
	}
	return nil
}

// SafetyNetSweep finds touches stuck in 'claimed' past the lease window —
// a worker that crashed mid-send — and resets them to pending so another
// worker picks them up (spec.md §4.7 safety net).
func (s *Store) SafetyNetSweep(ctx context.Context, leaseWindow time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_touches
		SET status = 'pending', updated_at = NOW()
		WHERE status = 'claimed' AND updated_at < NOW() - $1 * INTERVAL '1 second'
	`, leaseWindow.Seconds())
	if err != nil {
		return 0, fmt.Errorf("safety net sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
