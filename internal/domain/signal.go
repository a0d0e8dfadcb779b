package domain

import "time"

// SignalType enumerates the CIS cross-tenant buyer-signal categories
// (spec.md §7 WHO/WHAT/WHEN/HOW detectors).
type SignalType string

const (
	SignalWho  SignalType = "who"
	SignalWhat SignalType = "what"
	SignalWhen SignalType = "when"
	SignalHow  SignalType = "how"
)

// BuyerSignal is an aggregate, anonymized finding produced by a CIS
// detector once its minimum sample thresholds are met (spec.md §7).
// Signals are cross-tenant: no tenant-identifying or individual-lead data
// is retained once a signal is published.
type BuyerSignal struct {
	ID          string     `json:"id" db:"id"`
	Type        SignalType `json:"type" db:"type"`
	Segment     string     `json:"segment" db:"segment"`
	Description string     `json:"description" db:"description"`
	Confidence  float64    `json:"confidence" db:"confidence"`
	SampleSize  int        `json:"sample_size" db:"sample_size"`
	ConvertingCount int    `json:"converting_count" db:"converting_count"`
	DetectedAt  time.Time  `json:"detected_at" db:"detected_at"`
}

// MeetsThreshold reports whether the signal's sample satisfies the
// configured minimum-converting/minimum-total gate before it may be
// published (spec.md §7 confidence gate).
func (b *BuyerSignal) MeetsThreshold(minConverting, minTotal int) bool {
	return b.ConvertingCount >= minConverting && b.SampleSize >= minTotal
}
