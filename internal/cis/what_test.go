package cis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keiracom/agencyos/internal/domain"
)

func firstTouchAssignment(id, industry string, employees int, body string, converts bool) []ActivityRecord {
	return []ActivityRecord{{
		AssignmentID:     id,
		Channel:          domain.ChannelEmail,
		SequencePosition: 0,
		Industry:         industry,
		EmployeeCount:    employees,
		LedToBooking:     converts,
		Content:          domain.ContentSnapshot{Body: body},
	}}
}

func TestDetectWhat_SurfacesDominantPainPointAndCTA(t *testing.T) {
	var records []ActivityRecord
	for i := 0; i < 6; i++ {
		records = append(records, firstTouchAssignment(idN("w", i), "saas", 20,
			"We help teams save time by automating manual work. Worth a quick chat?", true)...)
	}
	for i := 0; i < 14; i++ {
		records = append(records, firstTouchAssignment(idN("l", i), "saas", 20,
			"Generic outreach with no clear ask.", false)...)
	}

	patterns := DetectWhat(records)
	assert.NotEmpty(t, patterns)
	assert.Equal(t, "time_savings", patterns[0].Detail["top_pain_point"])
	assert.Equal(t, "worth a quick chat", patterns[0].Detail["top_cta"])
}

func TestPainPointCategory_MatchesKeywordBuckets(t *testing.T) {
	assert.Equal(t, "cost_efficiency", painPointCategory("This will help you save money fast"))
	assert.Equal(t, "", painPointCategory("Nothing relevant here"))
}

func TestIsPersonalized_FlagsUnresolvedTemplateTokens(t *testing.T) {
	assert.False(t, isPersonalized("Hi {{first_name}}, quick question"))
	assert.True(t, isPersonalized("Hi Jordan, quick question"))
	assert.False(t, isPersonalized(""))
}
