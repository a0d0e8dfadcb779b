package store

import (
	"context"
	"fmt"

	"github.com/keiracom/agencyos/internal/enrichment"
)

// SpendToday returns tenantID's cumulative enrichment spend since
// midnight in the tenant's configured timezone, implementing
// enrichment.CostSink for the waterfall's daily budget circuit breaker
// (spec.md §4.3).
func (s *Store) SpendToday(ctx context.Context, tenantID string) (float64, error) {
	var spent float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_aud), 0) FROM enrichment_spend
		WHERE tenant_id = $1 AND spent_at >= (
			SELECT date_trunc('day', NOW() AT TIME ZONE timezone) AT TIME ZONE timezone
			FROM tenants WHERE id = $1
		)
	`, tenantID).Scan(&spent)
	if err != nil {
		return 0, fmt.Errorf("sum enrichment spend: %w", err)
	}
	return spent, nil
}

// RecordSpend appends one provider invocation's cost to the ledger.
func (s *Store) RecordSpend(ctx context.Context, tenantID string, tier enrichment.Tier, provider string, costAUD float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_spend (tenant_id, tier, provider, cost_aud, spent_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, tenantID, int(tier), provider, costAUD)
	if err != nil {
		return fmt.Errorf("record enrichment spend: %w", err)
	}
	return nil
}
