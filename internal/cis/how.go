package cis

import (
	"sort"
	"strings"

	"github.com/keiracom/agencyos/internal/domain"
)

// channelSequence reconstructs the ordered channel path an assignment
// was worked through, the raw material the HOW detector mines for
// recurring bigrams/trigrams.
func channelSequence(records []ActivityRecord) []domain.Channel {
	sorted := append([]ActivityRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SequencePosition < sorted[j].SequencePosition })
	seq := make([]domain.Channel, 0, len(sorted))
	for _, r := range sorted {
		seq = append(seq, r.Channel)
	}
	return seq
}

func ngrams(seq []domain.Channel, n int) []string {
	if len(seq) < n {
		return nil
	}
	out := make([]string, 0, len(seq)-n+1)
	for i := 0; i+n <= len(seq); i++ {
		parts := make([]string, n)
		for j := 0; j < n; j++ {
			parts[j] = string(seq[i+j])
		}
		out = append(out, strings.Join(parts, ">"))
	}
	return out
}

// DetectHow mines assignments' channel sequences for bigram/trigram
// patterns (e.g. "email>linkedin>email") that appear disproportionately
// in converting assignments versus the overall population (spec.md §7
// HOW detector).
func DetectHow(records []ActivityRecord) []domain.ConversionPattern {
	byAssign := byAssignment(records)

	type bucket struct {
		total, converting int
	}
	grams := map[string]*bucket{}
	overallTotal, overallConverting := 0, 0

	for _, assignRecords := range byAssign {
		didConvert := converted(assignRecords)
		overallTotal++
		if didConvert {
			overallConverting++
		}
		seq := channelSequence(assignRecords)
		seen := map[string]bool{}
		for _, g := range append(ngrams(seq, 2), ngrams(seq, 3)...) {
			if seen[g] {
				continue // count each gram at most once per assignment
			}
			seen[g] = true
			b, ok := grams[g]
			if !ok {
				b = &bucket{}
				grams[g] = b
			}
			b.total++
			if didConvert {
				b.converting++
			}
		}
	}

	var overallRate float64
	if overallTotal > 0 {
		overallRate = float64(overallConverting) / float64(overallTotal)
	}

	var patterns []domain.ConversionPattern
	for gram, b := range grams {
		if !sufficientSample(b.converting, b.total) {
			continue
		}
		segRate := float64(b.converting) / float64(b.total)
		l := lift(segRate, overallRate)
		if l <= 1 {
			continue
		}
		patterns = append(patterns, domain.ConversionPattern{
			Type:    domain.PatternChannelMix,
			Segment: gram,
			Detail: map[string]any{
				"lift": l,
			},
			Confidence: confidence(b.converting),
			SampleSize: b.total,
		})
	}
	return patterns
}
