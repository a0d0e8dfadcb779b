package dispatch

import (
	"context"
	"fmt"

	"github.com/keiracom/agencyos/internal/domain"
)

// DropReason names why a JIT validation check rejected a touch.
type DropReason string

const (
	DropSubscriptionInactive DropReason = "subscription_inactive"
	DropNoCredits            DropReason = "no_credits"
	DropCampaignInactive     DropReason = "campaign_inactive"
	DropLeadTerminal         DropReason = "lead_terminal"
	DropSuppressed           DropReason = "suppressed"
	DropRateLimited          DropReason = "rate_limited"
)

// terminalLeadStatuses are the Assignment states that make a touch
// ineligible to send (spec.md §4.7 JIT check 4).
var terminalLeadStatuses = map[domain.AssignmentStatus]bool{
	domain.AssignmentConverted:  true,
	domain.AssignmentReleased:   true,
	domain.AssignmentSuppressed: true,
	domain.AssignmentCancelled:  true,
}

// TenantLookup resolves a Tenant for JIT check 1-2.
type TenantLookup interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
}

// CampaignLookup resolves a Campaign's current status for JIT check 3.
type CampaignLookup interface {
	GetCampaignStatus(ctx context.Context, campaignID string) (domain.CampaignStatus, error)
}

// LeadViewLookup resolves an Assignment's current status for JIT check 4.
type LeadViewLookup interface {
	GetAssignmentStatus(ctx context.Context, assignmentID string) (domain.AssignmentStatus, error)
}

// SuppressionChecker is the boundary into internal/suppression for JIT
// check 5.
type SuppressionChecker interface {
	Check(ctx context.Context, email string) (bool, error)
}

// Validator runs the six JIT checks of spec.md §4.7 immediately before
// every send.
type Validator struct {
	tenants      TenantLookup
	campaigns    CampaignLookup
	assignments  LeadViewLookup
	suppression  SuppressionChecker
	rateLimiter  *RateLimiter
	rateLimits   map[domain.Channel]int
}

// NewValidator builds a Validator. rateLimits maps each channel to its
// per-resource daily cap (spec.md §4.7 rate-limit table); a zero/missing
// entry means unbounded (cost-gated elsewhere), matching the mail channel.
func NewValidator(tenants TenantLookup, campaigns CampaignLookup, assignments LeadViewLookup, suppression SuppressionChecker, rateLimiter *RateLimiter, rateLimits map[domain.Channel]int) *Validator {
	return &Validator{
		tenants:     tenants,
		campaigns:   campaigns,
		assignments: assignments,
		suppression: suppression,
		rateLimiter: rateLimiter,
		rateLimits:  rateLimits,
	}
}

// Touch is the minimal shape a Validator needs to run its checks.
type Touch struct {
	ID           string
	TenantID     string
	CampaignID   string
	AssignmentID string
	Email        string
	Channel      domain.Channel
	Resource     string // the specific mailbox/seat/number/domain this touch would consume
}

// Validate runs all six JIT checks in order, short-circuiting on the
// first failure (spec.md §4.7).
func (v *Validator) Validate(ctx context.Context, t Touch) (bool, DropReason, error) {
	tenant, err := v.tenants.GetTenant(ctx, t.TenantID)
	if err != nil {
		return false, "", fmt.Errorf("jit: lookup tenant: %w", err)
	}
	if !tenant.SubscriptionStatus.IsSendable() {
		return false, DropSubscriptionInactive, nil
	}
	if tenant.CreditsRemaining <= 0 {
		return false, DropNoCredits, nil
	}

	status, err := v.campaigns.GetCampaignStatus(ctx, t.CampaignID)
	if err != nil {
		return false, "", fmt.Errorf("jit: lookup campaign: %w", err)
	}
	if status != domain.CampaignActive {
		return false, DropCampaignInactive, nil
	}

	assignmentStatus, err := v.assignments.GetAssignmentStatus(ctx, t.AssignmentID)
	if err != nil {
		return false, "", fmt.Errorf("jit: lookup assignment: %w", err)
	}
	if terminalLeadStatuses[assignmentStatus] {
		return false, DropLeadTerminal, nil
	}

	suppressed, err := v.suppression.Check(ctx, t.Email)
	if err != nil {
		return false, "", fmt.Errorf("jit: check suppression: %w", err)
	}
	if suppressed {
		return false, DropSuppressed, nil
	}

	cap := v.rateLimits[t.Channel]
	if cap > 0 {
		allowed, err := v.rateLimiter.Acquire(ctx, string(t.Channel), t.Resource, cap)
		if err != nil {
			return false, "", fmt.Errorf("jit: acquire rate limit token: %w", err)
		}
		if !allowed {
			return false, DropRateLimited, nil
		}
	}

	return true, "", nil
}
