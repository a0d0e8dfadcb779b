package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keiracom/agencyos/internal/domain"
)

var fullTarget = TargetPolicy{
	Industries: map[string]bool{"saas": true},
	SizeMin:    50,
	SizeMax:    500,
	Countries:  map[string]bool{"AU": true},
}

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, domain.TierWarm, domain.TierForScore(84.9))
	assert.Equal(t, domain.TierHot, domain.TierForScore(85.0))
	assert.Equal(t, domain.TierCool, domain.TierForScore(59.9))
	assert.Equal(t, domain.TierWarm, domain.TierForScore(60.0))
	assert.Equal(t, domain.TierCold, domain.TierForScore(34.9))
	assert.Equal(t, domain.TierCool, domain.TierForScore(35.0))
	assert.Equal(t, domain.TierDead, domain.TierForScore(19.9))
	assert.Equal(t, domain.TierCold, domain.TierForScore(20.0))
}

func TestScore_WarmToHotProgression(t *testing.T) {
	days180 := 400
	hiring := 0
	in := Input{
		VerifiedEmail:    true,
		HasPhone:         true,
		HasLinkedIn:      true,
		NonPersonalEmail: true,
		Authority:        AuthorityCSuite,
		Industry:         "saas",
		EmployeeCount:    200,
		Country:          "AU",
		NewInRoleDays:    &days180,
		ActivelyHiringRoles: hiring,
	}

	r1 := Score(in, domain.ALSWeights{}, fullTarget)
	assert.Equal(t, domain.TierWarm, r1.Tier)

	in.LinkedInEngagement = 1.0
	r2 := Score(in, domain.ALSWeights{}, fullTarget)
	assert.Greater(t, r2.Score, r1.Score)

	in.ActivelyHiringRoles = 5
	r3 := Score(in, domain.ALSWeights{}, fullTarget)
	assert.Greater(t, r3.Score, r2.Score)
}

func TestScore_ClampedToZeroAndHundred(t *testing.T) {
	in := Input{
		Risk: RiskFlags{Bounced: true, Unsubscribed: true, CompetitorDomain: true, RoleMismatch: true},
	}
	r := Score(in, domain.ALSWeights{}, TargetPolicy{})
	assert.Equal(t, float64(0), r.Score)
	assert.Equal(t, domain.TierDead, r.Tier)

	days := 30
	high := Score(Input{VerifiedEmail: true, HasPhone: true, HasLinkedIn: true, NonPersonalEmail: true,
		Authority: AuthorityOwnerCEO, Industry: "saas", EmployeeCount: 200, Country: "AU",
		NewInRoleDays: &days, ActivelyHiringRoles: 5, LinkedInEngagement: 1, BuyerSignalBonus: 15}, domain.ALSWeights{}, fullTarget)
	assert.Equal(t, float64(100), high.Score)
}

func TestScore_CustomWeightsRescaleComponent(t *testing.T) {
	in := Input{Authority: AuthorityOwnerCEO}
	defaultResult := Score(in, domain.ALSWeights{}, TargetPolicy{})

	boosted := domain.ALSWeights{DataQuality: 20, Authority: 50, CompanyFit: 25, Timing: 15, Risk: -15}
	boostedResult := Score(in, boosted, TargetPolicy{})

	assert.Greater(t, boostedResult.Components.Authority, defaultResult.Components.Authority)
}
