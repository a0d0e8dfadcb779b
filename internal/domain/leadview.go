package domain

import "time"

// ScoreComponents is the breakdown the Scorer produces for explainability
// and for CIS to correlate conversion against component contribution
// (spec.md §4.1).
type ScoreComponents struct {
	DataQuality float64 `json:"data_quality"`
	Authority   float64 `json:"authority"`
	CompanyFit  float64 `json:"company_fit"`
	Timing      float64 `json:"timing"`
	Risk        float64 `json:"risk"`
}

// ScoreTier is the banded output of the Scorer used by the Allocator's
// channel-access gate (spec.md §4.4, §4.5).
type ScoreTier string

const (
	TierHot  ScoreTier = "hot"
	TierWarm ScoreTier = "warm"
	TierCool ScoreTier = "cool"
	TierCold ScoreTier = "cold"
	TierDead ScoreTier = "dead"
)

// TierForScore maps a raw ALS score (0-100) onto its band:
// 85-100 hot, 60-84 warm, 35-59 cool, 20-34 cold, 0-19 dead.
// Bounds are lower-bound inclusive (spec.md §4.4): 84.9 is warm, 85.0 is hot.
func TierForScore(score float64) ScoreTier {
	switch {
	case score >= 85:
		return TierHot
	case score >= 60:
		return TierWarm
	case score >= 35:
		return TierCool
	case score >= 20:
		return TierCold
	default:
		return TierDead
	}
}

// LeadView is the read-optimized, tenant-scoped join of a PoolLead with its
// active Assignment and latest scoring snapshot. It is never persisted on
// its own; the store assembles it from PoolLead + Assignment rows.
type LeadView struct {
	PoolLead
	AssignmentID     string          `json:"assignment_id"`
	TenantID         string          `json:"tenant_id"`
	ALSScore         float64         `json:"als_score"`
	ScoreComponents  ScoreComponents `json:"score_components"`
	Tier             ScoreTier       `json:"tier"`
	AssignmentStatus AssignmentStatus `json:"assignment_status"`
	SequencePosition int             `json:"sequence_position"`
	AssignedAt       time.Time       `json:"assigned_at"`
}
