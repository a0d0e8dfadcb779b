package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/keiracom/agencyos/internal/domain"
)

// GetTenant fetches a Tenant by id.
func (s *Store) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var monthlyBudget *float64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, api_key, tier, subscription_status, credits_remaining, permission_mode,
		       daily_cap_email, daily_cap_sms, daily_cap_linkedin, daily_cap_voice, daily_cap_mail,
		       resource_count_email, resource_count_sms, resource_count_linkedin, resource_count_voice, resource_count_mail,
		       als_weight_data_quality, als_weight_authority, als_weight_company_fit,
		       als_weight_timing, als_weight_risk,
		       monthly_sdk_budget_aud, daily_enrichment_budget_aud, timezone, created_at, updated_at
		FROM tenants WHERE id = $1
	`, id).Scan(
		&t.ID, &t.Name, &t.APIKey, &t.Tier, &t.SubscriptionStatus, &t.CreditsRemaining, &t.PermissionMode,
		&t.DailyCaps.Email, &t.DailyCaps.SMS, &t.DailyCaps.LinkedIn, &t.DailyCaps.Voice, &t.DailyCaps.Mail,
		&t.ResourceCounts.Email, &t.ResourceCounts.SMS, &t.ResourceCounts.LinkedIn, &t.ResourceCounts.Voice, &t.ResourceCounts.Mail,
		&t.ALSWeights.DataQuality, &t.ALSWeights.Authority, &t.ALSWeights.CompanyFit,
		&t.ALSWeights.Timing, &t.ALSWeights.Risk,
		&monthlyBudget, &t.DailyEnrichmentBudgetAUD, &t.Timezone, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, scanErr(err)
	}
	t.MonthlySDKBudgetAUD = monthlyBudget
	return t, nil
}

// GetTenantByAPIKey resolves the Tenant bearing the given API key, used by
// the API's per-request tenant-auth middleware. Returns ErrNotFound if no
// tenant carries the key.
func (s *Store) GetTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var monthlyBudget *float64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, api_key, tier, subscription_status, credits_remaining, permission_mode,
		       daily_cap_email, daily_cap_sms, daily_cap_linkedin, daily_cap_voice, daily_cap_mail,
		       resource_count_email, resource_count_sms, resource_count_linkedin, resource_count_voice, resource_count_mail,
		       als_weight_data_quality, als_weight_authority, als_weight_company_fit,
		       als_weight_timing, als_weight_risk,
		       monthly_sdk_budget_aud, daily_enrichment_budget_aud, timezone, created_at, updated_at
		FROM tenants WHERE api_key = $1
	`, apiKey).Scan(
		&t.ID, &t.Name, &t.APIKey, &t.Tier, &t.SubscriptionStatus, &t.CreditsRemaining, &t.PermissionMode,
		&t.DailyCaps.Email, &t.DailyCaps.SMS, &t.DailyCaps.LinkedIn, &t.DailyCaps.Voice, &t.DailyCaps.Mail,
		&t.ResourceCounts.Email, &t.ResourceCounts.SMS, &t.ResourceCounts.LinkedIn, &t.ResourceCounts.Voice, &t.ResourceCounts.Mail,
		&t.ALSWeights.DataQuality, &t.ALSWeights.Authority, &t.ALSWeights.CompanyFit,
		&t.ALSWeights.Timing, &t.ALSWeights.Risk,
		&monthlyBudget, &t.DailyEnrichmentBudgetAUD, &t.Timezone, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, scanErr(err)
	}
	t.MonthlySDKBudgetAUD = monthlyBudget
	return t, nil
}

// CreateTenant inserts a new Tenant, assigning an id if unset.
func (s *Store) CreateTenant(ctx context.Context, t *domain.Tenant) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.APIKey == "" {
		t.APIKey = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants
			(id, name, api_key, tier, subscription_status, credits_remaining, permission_mode,
			 daily_cap_email, daily_cap_sms, daily_cap_linkedin, daily_cap_voice, daily_cap_mail,
			 resource_count_email, resource_count_sms, resource_count_linkedin, resource_count_voice, resource_count_mail,
			 als_weight_data_quality, als_weight_authority, als_weight_company_fit,
			 als_weight_timing, als_weight_risk,
			 monthly_sdk_budget_aud, daily_enrichment_budget_aud, timezone, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,NOW(),NOW())
	`, t.ID, t.Name, t.APIKey, t.Tier, t.SubscriptionStatus, t.CreditsRemaining, t.PermissionMode,
		t.DailyCaps.Email, t.DailyCaps.SMS, t.DailyCaps.LinkedIn, t.DailyCaps.Voice, t.DailyCaps.Mail,
		t.ResourceCounts.Email, t.ResourceCounts.SMS, t.ResourceCounts.LinkedIn, t.ResourceCounts.Voice, t.ResourceCounts.Mail,
		t.ALSWeights.DataQuality, t.ALSWeights.Authority, t.ALSWeights.CompanyFit,
		t.ALSWeights.Timing, t.ALSWeights.Risk,
		t.MonthlySDKBudgetAUD, t.DailyEnrichmentBudgetAUD, t.Timezone)
	if err != nil {
		return "", fmt.Errorf("create tenant: %w", err)
	}
	return t.ID, nil
}

// DecrementCredits atomically reduces a tenant's credit balance, failing
// with ErrNotFound if the tenant no longer has enough to cover amount
// (spec.md §4.7 JIT check 2).
func (s *Store) DecrementCredits(ctx context.Context, tenantID string, amount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET credits_remaining = credits_remaining - $1, updated_at = NOW()
		WHERE id = $2 AND credits_remaining >= $1
	`, amount, tenantID)
	if err != nil {
		return fmt.Errorf("decrement credits: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
