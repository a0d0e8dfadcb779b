package domain

import "time"

// TenantTier identifies a client's subscription plan.
type TenantTier string

const (
	TierIgnition  TenantTier = "ignition"
	TierVelocity  TenantTier = "velocity"
	TierDominance TenantTier = "dominance"
)

// SubscriptionStatus enumerates the billing states of a Tenant.
type SubscriptionStatus string

const (
	SubscriptionTrialing  SubscriptionStatus = "trialing"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPaused    SubscriptionStatus = "paused"
)

// IsSendable returns true if JIT validation should allow sends for this
// subscription status (spec.md §4.7 JIT check 1).
func (s SubscriptionStatus) IsSendable() bool {
	return s == SubscriptionTrialing || s == SubscriptionActive
}

// PermissionMode controls how much autonomy a client has granted the
// platform over outreach decisions.
type PermissionMode string

const (
	PermissionAutopilot PermissionMode = "autopilot"
	PermissionCopilot   PermissionMode = "copilot"
	PermissionManual    PermissionMode = "manual"
)

// ALSWeights is a learned per-client override of the Scorer's component
// weights. Zero value means "use platform defaults". When set, the five
// maxima must sum to 100 (enforced by the scoring package, not here).
type ALSWeights struct {
	DataQuality float64 `json:"data_quality"`
	Authority   float64 `json:"authority"`
	CompanyFit  float64 `json:"company_fit"`
	Timing      float64 `json:"timing"`
	Risk        float64 `json:"risk"`
}

// IsZero reports whether no learned weight vector has been set.
func (w ALSWeights) IsZero() bool { return w == ALSWeights{} }

// ChannelCaps overrides the platform default per-resource daily caps
// (spec.md §4.7) for a specific tenant.
type ChannelCaps struct {
	Email    int `json:"email"`
	SMS      int `json:"sms"`
	LinkedIn int `json:"linkedin"`
	Voice    int `json:"voice"`
	Mail     int `json:"mail"`
}

// ResourceCount returns how many distinct sending assets (mailboxes,
// seats, phone numbers) a tenant has provisioned for channel, so the
// rate limiter can partition its per-resource cap across them instead of
// sharing one counter for the whole tenant. Unconfigured (zero) means a
// single shared resource, the platform's historical default.
func (t *Tenant) ResourceCount(ch Channel) int {
	var n int
	switch ch {
	case ChannelEmail:
		n = t.ResourceCounts.Email
	case ChannelSMS:
		n = t.ResourceCounts.SMS
	case ChannelLinkedIn:
		n = t.ResourceCounts.LinkedIn
	case ChannelVoice:
		n = t.ResourceCounts.Voice
	case ChannelMail:
		n = t.ResourceCounts.Mail
	}
	if n <= 0 {
		return 1
	}
	return n
}

// Tenant is a platform client (an agency or a brand running outreach).
type Tenant struct {
	ID                 string              `json:"id" db:"id"`
	Name               string              `json:"name" db:"name"`
	APIKey             string              `json:"-" db:"api_key"`
	Tier               TenantTier          `json:"tier" db:"tier"`
	SubscriptionStatus SubscriptionStatus  `json:"subscription_status" db:"subscription_status"`
	CreditsRemaining   int                 `json:"credits_remaining" db:"credits_remaining"`
	PermissionMode     PermissionMode      `json:"permission_mode" db:"permission_mode"`
	DailyCaps          ChannelCaps         `json:"daily_caps" db:"-"`
	ResourceCounts     ChannelCaps         `json:"resource_counts" db:"-"`
	ALSWeights         ALSWeights          `json:"als_weights" db:"-"`
	MonthlySDKBudgetAUD *float64           `json:"monthly_sdk_budget_aud,omitempty" db:"monthly_sdk_budget_aud"`
	DailyEnrichmentBudgetAUD float64       `json:"daily_enrichment_budget_aud" db:"daily_enrichment_budget_aud"`
	Timezone           string              `json:"timezone" db:"timezone"` // IANA tz for "calendar day" budget resets
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}

// CanSend reports whether JIT validation should allow sends for this tenant.
func (t *Tenant) CanSend() bool {
	return t.SubscriptionStatus.IsSendable() && t.CreditsRemaining > 0
}
