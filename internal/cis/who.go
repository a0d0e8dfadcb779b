package cis

import (
	"fmt"

	"github.com/keiracom/agencyos/internal/domain"
)

// employeeBucket maps a headcount to the coarse size band the WHO
// detector segments on, mirroring the bands scoring already uses for
// company fit so a published signal lines up with a client's own ICP
// language.
func employeeBucket(n int) string {
	switch {
	case n <= 10:
		return "1-10"
	case n <= 50:
		return "11-50"
	case n <= 200:
		return "51-200"
	case n <= 1000:
		return "201-1000"
	default:
		return "1000+"
	}
}

// whoSegment is the bucket key the WHO detector groups assignments by:
// industry crossed with company size, the two org attributes spec.md §7
// names as the WHO detector's dimensions.
func whoSegment(r ActivityRecord) string {
	return fmt.Sprintf("%s/%s", r.Industry, employeeBucket(r.EmployeeCount))
}

// Segment exposes the WHO detector's industry/size bucket key for
// callers outside this package (the bulk customer-import path feeds
// known-converting segments straight into the signal lookup without
// going through the activity-history detector).
func Segment(industry string, employeeCount int) string {
	return whoSegment(ActivityRecord{Industry: industry, EmployeeCount: employeeCount})
}

// DetectWho buckets assignments by industry and company-size segment and
// publishes a BuyerSignal for every segment of at least 3 assignments
// whose conversion rate beats the overall population's. The
// minimum-sample gate applies to the whole input: when it is not cleared,
// nothing is published (spec.md §7 WHO detector).
func DetectWho(records []ActivityRecord) []domain.BuyerSignal {
	byAssign := byAssignment(records)

	type bucket struct {
		total, converting int
	}
	segments := map[string]*bucket{}
	overallTotal, overallConverting := 0, 0

	for _, assignRecords := range byAssign {
		seg := whoSegment(assignRecords[0])
		b, ok := segments[seg]
		if !ok {
			b = &bucket{}
			segments[seg] = b
		}
		b.total++
		overallTotal++
		if converted(assignRecords) {
			b.converting++
			overallConverting++
		}
	}

	if !sufficientSample(overallConverting, overallTotal) {
		return nil
	}
	overallRate := float64(overallConverting) / float64(overallTotal)

	const minBucketSamples = 3
	var signals []domain.BuyerSignal
	for seg, b := range segments {
		if b.total < minBucketSamples {
			continue
		}
		segRate := float64(b.converting) / float64(b.total)
		l := lift(segRate, overallRate)
		if l <= 1 {
			continue // only publish segments that convert better than baseline
		}
		signals = append(signals, domain.BuyerSignal{
			Type:            domain.SignalWho,
			Segment:         seg,
			Description:     fmt.Sprintf("leads in segment %s convert %.0f%% more often than baseline", seg, (l-1)*100),
			Confidence:      confidence(b.converting),
			SampleSize:      b.total,
			ConvertingCount: b.converting,
		})
	}
	return signals
}
