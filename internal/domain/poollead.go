package domain

import "time"

// PoolStatus enumerates the lifecycle of a platform-owned PoolLead.
type PoolStatus string

const (
	PoolUnassigned PoolStatus = "unassigned"
	PoolAssigned   PoolStatus = "assigned"
	PoolRetired    PoolStatus = "retired"
)

// RevenueBand is a coarse bucket for a PoolLead's organization revenue.
type RevenueBand string

const (
	RevenueUnder1M    RevenueBand = "under_1m"
	Revenue1Mto10M    RevenueBand = "1m_10m"
	Revenue10Mto50M   RevenueBand = "10m_50m"
	Revenue50Mto250M  RevenueBand = "50m_250m"
	RevenueOver250M   RevenueBand = "over_250m"
	RevenueUnknown    RevenueBand = "unknown"
)

// EnrichmentSource records which waterfall tier last populated a PoolLead,
// for cost accounting and cache-upgrade decisions (spec.md §4.3).
type EnrichmentSource struct {
	Tier       int     `json:"tier" db:"enrichment_tier"`
	Provider   string  `json:"provider" db:"enrichment_provider"`
	CreditCost float64 `json:"credit_cost" db:"enrichment_credit_cost"`
	Partial    bool    `json:"partial" db:"enrichment_partial"`
}

// OrgAttributes carries firmographic data used by the Scorer and Allocator.
type OrgAttributes struct {
	Industry       string      `json:"industry"`
	EmployeeCount  int         `json:"employee_count"`
	Country        string      `json:"country"`
	RevenueBand    RevenueBand `json:"revenue_band"`
}

// Signals carries the priority-signal flags consumed by the Allocator's
// signal gate (spec.md §4.5) and the Scorer's timing component.
type Signals struct {
	NewInRoleDays      *int    `json:"new_in_role_days,omitempty"`
	ActivelyHiringRoles int    `json:"actively_hiring_roles"`
	FundedDaysAgo      *int    `json:"funded_days_ago,omitempty"`
	RecentFundingDays  *int    `json:"recent_funding_days,omitempty"`
	TechMatchScore     float64 `json:"tech_match_score"`
	LinkedInEngagement float64 `json:"linkedin_engagement"`
	ReferralSource     bool    `json:"referral_source"`
}

// HasPrioritySignal implements the signal gate of spec.md §4.5:
// recent_funding<90d, hiring>=3, tech_match>0.8, linkedin_engagement>70,
// referral_source, employee_count 50-500.
func (s Signals) HasPrioritySignal(employeeCount int) bool {
	if s.RecentFundingDays != nil && *s.RecentFundingDays < 90 {
		return true
	}
	if s.ActivelyHiringRoles >= 3 {
		return true
	}
	if s.TechMatchScore > 0.8 {
		return true
	}
	if s.LinkedInEngagement > 70 {
		return true
	}
	if s.ReferralSource {
		return true
	}
	if employeeCount >= 50 && employeeCount <= 500 {
		return true
	}
	return false
}

// PoolLead is a platform-owned prospect record. Email is unique
// platform-wide; domain is never exclusive by itself (spec.md §3).
type PoolLead struct {
	ID               string           `json:"id" db:"id"`
	Email            string           `json:"email" db:"email"`
	Domain           string           `json:"domain" db:"domain"`
	FirstName        string           `json:"first_name" db:"first_name"`
	LastName         string           `json:"last_name" db:"last_name"`
	Title            string           `json:"title" db:"title"`
	Company          string           `json:"company" db:"company"`
	LinkedInURL      string           `json:"linkedin_url" db:"linkedin_url"`
	Phone            string           `json:"phone,omitempty" db:"phone"`
	Org              OrgAttributes    `json:"org" db:"-"`
	Signals          Signals          `json:"signals" db:"-"`
	Enrichment       EnrichmentSource `json:"enrichment" db:"-"`
	PoolStatus       PoolStatus       `json:"pool_status" db:"pool_status"`
	FirstSeenAt      time.Time        `json:"first_seen_at" db:"first_seen_at"`
	LastRefreshedAt  time.Time        `json:"last_refreshed_at" db:"last_refreshed_at"`
}

// IsPersonalEmail reports whether the lead's email domain belongs to the
// configured set of major webmail providers (spec.md §4.2 policy).
func (p *PoolLead) IsPersonalEmail(personalDomains map[string]bool) bool {
	return personalDomains[p.Domain]
}
