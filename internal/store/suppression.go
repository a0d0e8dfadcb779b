package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keiracom/agencyos/internal/domain"
)

// IsSuppressed reports whether email is under an active, unexpired
// suppression entry. Suppression is platform-wide, not tenant-scoped.
func (s *Store) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM suppressions
			WHERE email = $1 AND (expires_at IS NULL OR expires_at > NOW())
		)
	`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check suppression: %w", err)
	}
	return exists, nil
}

// Suppress inserts or refreshes a platform-wide suppression entry.
func (s *Store) Suppress(ctx context.Context, e *domain.SuppressionEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppressions (id, email, reason, source_tenant_id, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (email) DO UPDATE SET
			reason = EXCLUDED.reason,
			source_tenant_id = EXCLUDED.source_tenant_id,
			expires_at = EXCLUDED.expires_at
	`, e.ID, e.Email, e.Reason, e.SourceTenantID, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("suppress: %w", err)
	}
	return nil
}

// SuppressCoolingOff inserts a time-bounded suppression for a non-converted,
// released lead, preventing re-assignment until the cooling-off window
// elapses (spec.md §3 re-entry policy).
func (s *Store) SuppressCoolingOff(ctx context.Context, email string, months int) error {
	expires := time.Now().AddDate(0, months, 0)
	return s.Suppress(ctx, &domain.SuppressionEntry{
		Email:     email,
		Reason:    domain.SuppressionCoolingOff,
		ExpiresAt: &expires,
	})
}

// ListSuppressions returns a page of active suppression entries, used by
// the reporting/admin surface.
func (s *Store) ListSuppressions(ctx context.Context, limit, offset int) ([]domain.SuppressionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, reason, COALESCE(source_tenant_id,''), expires_at, created_at
		FROM suppressions
		WHERE expires_at IS NULL OR expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.SuppressionEntry
	for rows.Next() {
		var e domain.SuppressionEntry
		var expires sql.NullTime
		if err := rows.Scan(&e.ID, &e.Email, &e.Reason, &e.SourceTenantID, &expires, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		if expires.Valid {
			e.ExpiresAt = &expires.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
