package cis

import (
	"fmt"

	"github.com/keiracom/agencyos/internal/domain"
)

// hourBucket coarsens a send hour into the three-hour bands the WHEN
// detector clusters on; per-minute granularity would never clear the
// sample gate.
func hourBucket(hour int) string {
	start := (hour / 3) * 3
	return fmt.Sprintf("%02d-%02d", start, start+3)
}

// DetectWhen clusters converting touches by send hour, day of week, and
// touch number within the sequence, publishing a ConversionPattern per
// dimension/segment pair that clears the sample gate (spec.md §7 WHEN
// detector).
func DetectWhen(records []ActivityRecord) []domain.ConversionPattern {
	byAssign := byAssignment(records)

	type bucket struct {
		total, converting int
	}
	hourBuckets := map[string]*bucket{}
	dayBuckets := map[string]*bucket{}
	touchBuckets := map[int]*bucket{}

	bump := func(m map[string]*bucket, key string, didConvert bool) {
		b, ok := m[key]
		if !ok {
			b = &bucket{}
			m[key] = b
		}
		b.total++
		if didConvert {
			b.converting++
		}
	}

	for _, assignRecords := range byAssign {
		didConvert := converted(assignRecords)
		for _, r := range assignRecords {
			bump(hourBuckets, hourBucket(r.OccurredAt.Hour()), didConvert)
			bump(dayBuckets, r.OccurredAt.Weekday().String(), didConvert)

			tb, ok := touchBuckets[r.SequencePosition]
			if !ok {
				tb = &bucket{}
				touchBuckets[r.SequencePosition] = tb
			}
			tb.total++
			if didConvert {
				tb.converting++
			}
		}
	}

	overallTotal, overallConverting := 0, 0
	for _, assignRecords := range byAssign {
		overallTotal++
		if converted(assignRecords) {
			overallConverting++
		}
	}
	var overallRate float64
	if overallTotal > 0 {
		overallRate = float64(overallConverting) / float64(overallTotal)
	}

	var patterns []domain.ConversionPattern
	publish := func(dimension, segment string, b *bucket) {
		if !sufficientSample(b.converting, b.total) {
			return
		}
		segRate := float64(b.converting) / float64(b.total)
		l := lift(segRate, overallRate)
		if l <= 1 {
			return
		}
		patterns = append(patterns, domain.ConversionPattern{
			Type:    domain.PatternSequenceTiming,
			Segment: segment,
			Detail: map[string]any{
				"dimension": dimension,
				"lift":      l,
			},
			Confidence: confidence(b.converting),
			SampleSize: b.total,
		})
	}

	for seg, b := range hourBuckets {
		publish("send_hour", seg, b)
	}
	for seg, b := range dayBuckets {
		publish("send_day", seg, b)
	}
	for seg, b := range touchBuckets {
		publish("touch_number", fmt.Sprintf("%d", seg), b)
	}
	return patterns
}
