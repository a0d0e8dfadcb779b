package cis

import "math"

// Minimum sample thresholds of the detectors' shared gate: WHAT, WHEN and
// HOW require them of each segment before publishing a pattern for it,
// WHO of its whole input before publishing any signal (spec.md §7
// confidence gate).
const (
	MinConverting = 5
	MinTotal      = 20
)

// sufficientSample reports whether a sample clears the
// minimum-converting/minimum-total gate every detector shares.
func sufficientSample(converting, total int) bool {
	return converting >= MinConverting && total >= MinTotal
}

// confidence maps a converting-sample size to a 0..1 confidence score via
// a logistic curve centered at 50 converting assignments: a segment with
// 50 converting touches sits at confidence 0.5, fewer trails off toward
// 0, more saturates toward 1 (spec.md §7).
func confidence(nConverting int) float64 {
	x := (float64(nConverting) - 50) / 15
	return 1 / (1 + math.Exp(-x))
}

// lift expresses how much more (or less) often a trait appears among
// converting assignments than in the overall population, as a ratio. A
// lift of 1 means no difference; 1.4 means 40% more common among
// converters. Returns 0 when the baseline rate is 0 (undefined lift).
func lift(rateAmongConverting, rateOverall float64) float64 {
	if rateOverall == 0 {
		return 0
	}
	return rateAmongConverting / rateOverall
}
