package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/keiracom/agencyos/internal/domain"
)

// CreateCampaign inserts a new Campaign, assigning an id if unset.
func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	allocation, err := json.Marshal(c.Allocation)
	if err != nil {
		return "", fmt.Errorf("marshal allocation: %w", err)
	}
	sequence, err := json.Marshal(c.Sequence)
	if err != nil {
		return "", fmt.Errorf("marshal sequence: %w", err)
	}
	icp, err := json.Marshal(c.ICP)
	if err != nil {
		return "", fmt.Errorf("marshal icp: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, tenant_id, name, status, allocation, sequence, icp, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
	`, c.ID, c.TenantID, c.Name, c.Status, allocation, sequence, icp)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

// GetCampaign fetches a Campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var allocation, sequence, icp []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, status, allocation, sequence, icp, created_at, updated_at
		FROM campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Status, &allocation, &sequence, &icp, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, scanErr(err)
	}
	if len(allocation) > 0 {
		if err := json.Unmarshal(allocation, &c.Allocation); err != nil {
			return nil, fmt.Errorf("unmarshal allocation: %w", err)
		}
	}
	if len(sequence) > 0 {
		if err := json.Unmarshal(sequence, &c.Sequence); err != nil {
			return nil, fmt.Errorf("unmarshal sequence: %w", err)
		}
	}
	if len(icp) > 0 {
		if err := json.Unmarshal(icp, &c.ICP); err != nil {
			return nil, fmt.Errorf("unmarshal icp: %w", err)
		}
	}
	return c, nil
}

// GetCampaignStatus is a narrow lookup for the Dispatch Orchestrator's
// JIT validation check 3 (spec.md §4.7), avoiding a full Campaign
// deserialization on the hot send path.
func (s *Store) GetCampaignStatus(ctx context.Context, id string) (domain.CampaignStatus, error) {
	var status domain.CampaignStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM campaigns WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return "", scanErr(err)
	}
	return status, nil
}

// SetCampaignStatus updates a Campaign's status (pause/resume/archive).
func (s *Store) SetCampaignStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("set campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
