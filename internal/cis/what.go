package cis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/keiracom/agencyos/internal/domain"
)

// painPointKeywords groups message-body vocabulary into the pain-point
// categories spec.md §7's WHAT detector tags content with. Buckets are
// deliberately coarse; CIS mines for which category correlates with
// conversion, not exact phrasing.
var painPointKeywords = map[string][]string{
	"cost_efficiency": {"reduce cost", "save money", "cut spend", "budget"},
	"time_savings":     {"save time", "faster", "automate", "manual work"},
	"growth":           {"scale", "grow revenue", "expand", "pipeline"},
	"risk_compliance":  {"compliance", "risk", "audit", "security"},
}

// ctaPhrases are the call-to-action phrasings the WHAT detector looks
// for in a message body's closing lines.
var ctaPhrases = []string{
	"worth a quick chat",
	"open to a 15-minute call",
	"grab time on my calendar",
	"happy to send more details",
}

// anglePatterns are regexes for the rhetorical angle a message opens
// with — a case study reference, an ROI claim, a peer-company mention.
var anglePatterns = map[string]*regexp.Regexp{
	"case_study": regexp.MustCompile(`(?i)case stud(y|ies)`),
	"roi_claim":  regexp.MustCompile(`(?i)\b\d+%|\broi\b`),
	"peer_proof": regexp.MustCompile(`(?i)companies like|teams at`),
}

var personalizationToken = regexp.MustCompile(`\{\{\s*\w+\s*\}\}`)

func matchesAny(body string, phrases []string) bool {
	lower := strings.ToLower(body)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func painPointCategory(body string) string {
	for cat, keywords := range painPointKeywords {
		if matchesAny(body, keywords) {
			return cat
		}
	}
	return ""
}

func ctaPhrase(body string) string {
	lower := strings.ToLower(body)
	for _, p := range ctaPhrases {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

func angle(body string) string {
	for name, re := range anglePatterns {
		if re.MatchString(body) {
			return name
		}
	}
	return ""
}

func isPersonalized(body string) bool {
	return !personalizationToken.MatchString(body) && body != ""
}

// percentile returns the p-th percentile (0..1) of a sorted-ascending
// slice of ints using nearest-rank interpolation, used to find the
// optimal body-length band for converting messages.
func percentile(sorted []int, p float64) int {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// DetectWhat mines first-touch message content per segment for the
// vocabulary, CTA phrasing, rhetorical angle, body length, and
// personalization that correlate with conversion (spec.md §7 WHAT
// detector). One ConversionPattern is published per segment that clears
// the sample gate.
func DetectWhat(records []ActivityRecord) []domain.ConversionPattern {
	byAssign := byAssignment(records)

	type featureCounts struct {
		total, converting                int
		personalizedTotal, personalizedConverting int
		painCount, ctaCount, angleCount  map[string]int
		convertingLengths                []int
	}
	segments := map[string]*featureCounts{}

	for _, assignRecords := range byAssign {
		first := firstTouch(assignRecords)
		if first == nil {
			continue
		}
		seg := whoSegment(*first)
		f, ok := segments[seg]
		if !ok {
			f = &featureCounts{painCount: map[string]int{}, ctaCount: map[string]int{}, angleCount: map[string]int{}}
			segments[seg] = f
		}
		body := first.Content.Body
		f.total++
		personalized := isPersonalized(body)
		if personalized {
			f.personalizedTotal++
		}
		if converted(assignRecords) {
			f.converting++
			if personalized {
				f.personalizedConverting++
			}
			if cat := painPointCategory(body); cat != "" {
				f.painCount[cat]++
			}
			if cta := ctaPhrase(body); cta != "" {
				f.ctaCount[cta]++
			}
			if a := angle(body); a != "" {
				f.angleCount[a]++
			}
			f.convertingLengths = append(f.convertingLengths, len(body))
		}
	}

	var patterns []domain.ConversionPattern
	for seg, f := range segments {
		if !sufficientSample(f.converting, f.total) {
			continue
		}
		sort.Ints(f.convertingLengths)
		personalizationLift := lift(
			float64(f.personalizedConverting)/float64(f.converting),
			float64(f.personalizedTotal)/float64(f.total),
		)
		detail := map[string]any{
			"top_pain_point":       topKey(f.painCount),
			"top_cta":              topKey(f.ctaCount),
			"top_angle":            topKey(f.angleCount),
			"optimal_length_p25":   percentile(f.convertingLengths, 0.25),
			"optimal_length_p75":   percentile(f.convertingLengths, 0.75),
			"personalization_lift": personalizationLift,
		}
		patterns = append(patterns, domain.ConversionPattern{
			Type:       domain.PatternMessageTone,
			Segment:    seg,
			Detail:     detail,
			Confidence: confidence(f.converting),
			SampleSize: f.total,
		})
	}
	return patterns
}

// firstTouch returns the assignment's first Activity by sequence
// position, the message the WHAT detector scores content against.
func firstTouch(records []ActivityRecord) *ActivityRecord {
	if len(records) == 0 {
		return nil
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.SequencePosition < best.SequencePosition {
			best = r
		}
	}
	return &best
}

func topKey(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN {
			best, bestN = k, n
		}
	}
	return best
}
