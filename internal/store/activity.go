package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/keiracom/agencyos/internal/domain"
)

// InsertActivity appends an Activity row. operation_key carries an
// idempotency guarantee: a retried dispatch attempt with the same key
// is a no-op rather than a duplicate send record (spec.md §4.6).
// The bool return reports whether a new row was actually inserted.
func (s *Store) InsertActivity(ctx context.Context, a *domain.Activity) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	contentJSON, err := json.Marshal(a.Content)
	if err != nil {
		return false, fmt.Errorf("marshal content snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO activities
			(id, assignment_id, tenant_id, channel, action, sequence_position,
			 content_snapshot, provider_ref, operation_key, occurred_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		ON CONFLICT (operation_key) DO NOTHING
	`, a.ID, a.AssignmentID, a.TenantID, a.Channel, a.Action, a.SequencePosition,
		contentJSON, a.ProviderRef, a.OperationKey, a.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("insert activity: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListActivities returns an assignment's touch history in chronological
// order, used by the classifier and CIS detectors for context.
func (s *Store) ListActivities(ctx context.Context, assignmentID string) ([]domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assignment_id, tenant_id, channel, action, sequence_position,
		       provider_ref, operation_key, occurred_at, created_at
		FROM activities
		WHERE assignment_id = $1
		ORDER BY occurred_at ASC
	`, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var providerRef sql.NullString
		if err := rows.Scan(&a.ID, &a.AssignmentID, &a.TenantID, &a.Channel, &a.Action,
			&a.SequencePosition, &providerRef, &a.OperationKey, &a.OccurredAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.ProviderRef = providerRef.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindAssignmentByProviderRef resolves an inbound webhook's threading
// reference (the provider_message_id an ESP echoes back on a reply, or a
// channel's own conversation/message id) back to the Assignment and
// Tenant it belongs to, by matching the outbound Activity that produced
// it. Reply Ingestion threads inbound events this way (spec.md §6).
func (s *Store) FindAssignmentByProviderRef(ctx context.Context, providerRef string) (tenantID, assignmentID string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT tenant_id, assignment_id FROM activities
		WHERE provider_ref = $1
		ORDER BY occurred_at DESC
		LIMIT 1
	`, providerRef).Scan(&tenantID, &assignmentID)
	if err != nil {
		return "", "", scanErr(err)
	}
	return tenantID, assignmentID, nil
}

// InsertMessage appends a Thread message. dedupe_key guards against a
// channel's webhook and the safety-net sweep both delivering the same
// inbound reply (spec.md §6).
func (s *Store) InsertMessage(ctx context.Context, m *domain.Message) (bool, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, thread_id, activity_id, direction, channel, body, intent, confidence,
			 provider_ref, dedupe_key, received_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
		ON CONFLICT (dedupe_key) DO NOTHING
	`, m.ID, m.ThreadID, m.ActivityID, m.Direction, m.Channel, m.Body, m.Intent, m.Confidence,
		m.ProviderRef, m.DedupeKey, m.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
