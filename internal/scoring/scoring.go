// Package scoring computes the Agency Lead Score (ALS): a pure function
// from an enriched lead and a client weight vector to a 0-100 score, its
// component breakdown, and a tier. No I/O, no side effects — the Pool
// Manager and Dispatch Orchestrator call this inline, not as a service.
package scoring

import (
	"math"

	"github.com/keiracom/agencyos/internal/domain"
)

// Authority levels drive the authority component (spec.md §4.4).
type AuthorityLevel string

const (
	AuthorityOwnerCEO  AuthorityLevel = "owner_ceo"
	AuthorityCSuite    AuthorityLevel = "c_suite"
	AuthorityVP        AuthorityLevel = "vp"
	AuthorityDirector  AuthorityLevel = "director"
	AuthorityManager   AuthorityLevel = "manager"
	AuthorityOther     AuthorityLevel = "other"
)

// RiskFlags carries the negative-component drivers of the risk bucket.
type RiskFlags struct {
	Bounced          bool
	Unsubscribed     bool
	CompetitorDomain bool
	RoleMismatch     bool
}

// TargetPolicy is the subset of a client's ICP policy the Scorer needs:
// which industries/sizes/countries count as "in target" for company_fit.
type TargetPolicy struct {
	Industries   map[string]bool
	SizeMin      int
	SizeMax      int
	Countries    map[string]bool
}

// Input bundles everything the Scorer needs about one enriched lead.
type Input struct {
	VerifiedEmail  bool
	HasPhone       bool
	HasLinkedIn    bool
	NonPersonalEmail bool

	Authority AuthorityLevel

	Industry      string
	EmployeeCount int
	Country       string

	NewInRoleDays       *int
	ActivelyHiringRoles int
	FundedDaysAgo       *int

	Risk RiskFlags

	// LinkedInEngagement is a pre-computed 0-1 scrape-derived signal
	// (posts present, recent activity, network size) feeding the boost.
	LinkedInEngagement float64

	// BuyerSignalBonus is the +0..+15 cross-tenant known-buyer bonus
	// contributed by CIS's anonymised aggregate (spec.md §4.10).
	BuyerSignalBonus float64
}

// Result is the Scorer's full output.
type Result struct {
	Score      float64
	Components domain.ScoreComponents
	Tier       domain.ScoreTier
}

// DefaultWeights are the platform's component maxima (spec.md §4.4 table).
// A client's learned ALSWeights, when set, replace these component by
// component (each component is rescaled by learned weight / default);
// Score does not check what the learned weights sum to.
var DefaultWeights = domain.ALSWeights{
	DataQuality: 20,
	Authority:   25,
	CompanyFit:  25,
	Timing:      15,
	Risk:        -15,
}

// Score computes the ALS for lead, using weights if non-zero, else
// DefaultWeights. Components are independently computed against their
// max allotment, then the vector is rescaled if weights differ from
// DefaultWeights so the sum still respects the client's override.
func Score(in Input, weights domain.ALSWeights, target TargetPolicy) Result {
	if weights.IsZero() {
		weights = DefaultWeights
	}

	dq := dataQuality(in) * ratio(weights.DataQuality, DefaultWeights.DataQuality)
	auth := authority(in.Authority) * ratio(weights.Authority, DefaultWeights.Authority)
	fit := companyFit(in, target) * ratio(weights.CompanyFit, DefaultWeights.CompanyFit)
	timing := timingScore(in) * ratio(weights.Timing, DefaultWeights.Timing)
	risk := riskScore(in.Risk) * ratio(weights.Risk, DefaultWeights.Risk)

	boost := linkedInBoost(in.LinkedInEngagement)

	total := dq + auth + fit + timing + risk + boost + in.BuyerSignalBonus
	total = math.Max(0, math.Min(100, total))

	return Result{
		Score: total,
		Components: domain.ScoreComponents{
			DataQuality: dq,
			Authority:   auth,
			CompanyFit:  fit,
			Timing:      timing,
			Risk:        risk,
		},
		Tier: domain.TierForScore(total),
	}
}

// ratio rescales a component's weight against the platform default so a
// client override of, say, authority=30 (default 25) proportionally
// amplifies that component's contribution.
func ratio(weight, defaultWeight float64) float64 {
	if defaultWeight == 0 {
		return 1
	}
	return weight / defaultWeight
}

func dataQuality(in Input) float64 {
	var v float64
	if in.VerifiedEmail {
		v += 8
	}
	if in.HasPhone {
		v += 6
	}
	if in.HasLinkedIn {
		v += 4
	}
	if in.NonPersonalEmail {
		v += 2
	}
	return v
}

func authority(level AuthorityLevel) float64 {
	switch level {
	case AuthorityOwnerCEO:
		return 25
	case AuthorityCSuite:
		return 22
	case AuthorityVP:
		return 18
	case AuthorityDirector:
		return 15
	case AuthorityManager:
		return 10
	default:
		return 0
	}
}

func companyFit(in Input, target TargetPolicy) float64 {
	var v float64
	if target.Industries[in.Industry] {
		v += 10
	}
	if in.EmployeeCount >= target.SizeMin && in.EmployeeCount <= target.SizeMax && target.SizeMax > 0 {
		v += 8
	}
	if target.Countries[in.Country] {
		v += 7
	}
	return v
}

func timingScore(in Input) float64 {
	var v float64
	if in.NewInRoleDays != nil && *in.NewInRoleDays < 180 {
		v += 6
	}
	if in.ActivelyHiringRoles >= 3 {
		v += 5
	}
	if in.FundedDaysAgo != nil && *in.FundedDaysAgo < 365 {
		v += 4
	}
	return v
}

func riskScore(r RiskFlags) float64 {
	var v float64
	if r.Bounced {
		v -= 10
	}
	if r.Unsubscribed {
		v -= 15
	}
	if r.CompetitorDomain {
		v -= 5
	}
	if r.RoleMismatch {
		v -= 5
	}
	return v
}

// linkedInBoost maps a 0-1 engagement signal onto the spec's up-to-+10
// optional boost.
func linkedInBoost(engagement float64) float64 {
	if engagement <= 0 {
		return 0
	}
	if engagement > 1 {
		engagement = 1
	}
	return engagement * 10
}
