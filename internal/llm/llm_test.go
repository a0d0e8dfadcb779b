package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/domain"
)

type fakeInvoker struct {
	byModel map[string]string
	calls   []string
}

func (f *fakeInvoker) Invoke(ctx context.Context, modelID, systemPrompt, userMessage string) (string, error) {
	f.calls = append(f.calls, modelID)
	return f.byModel[modelID], nil
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{CheapModel: "cheap-model", PremiumModel: "premium-model"}
}

func TestClassify_CheapTierHighConfidenceSkipsPremium(t *testing.T) {
	inv := &fakeInvoker{byModel: map[string]string{
		"cheap-model": `{"sentiment":"positive","intent":"interested","confidence":0.92}`,
	}}
	c := New(inv, testConfig())

	out, err := c.Classify(context.Background(), "sounds great, let's book a time", nil)
	require.NoError(t, err)
	require.Equal(t, domain.IntentInterested, out.Intent)
	require.Equal(t, 0.92, out.Confidence)
	require.Equal(t, []string{"cheap-model"}, inv.calls)
}

func TestClassify_LowConfidenceEscalatesToPremium(t *testing.T) {
	inv := &fakeInvoker{byModel: map[string]string{
		"cheap-model":   `{"sentiment":"neutral","intent":"question","confidence":0.3}`,
		"premium-model": `{"sentiment":"neutral","intent":"objection","objection_type":"price","confidence":0.85}`,
	}}
	c := New(inv, testConfig())

	out, err := c.Classify(context.Background(), "that's more than we budgeted for", nil)
	require.NoError(t, err)
	require.Equal(t, domain.IntentObjection, out.Intent)
	require.NotNil(t, out.Objection)
	require.Equal(t, domain.ObjectionPrice, *out.Objection)
	require.Equal(t, []string{"cheap-model", "premium-model"}, inv.calls)
}

func TestClassify_ExtractsJSONFromSurroundingProse(t *testing.T) {
	inv := &fakeInvoker{byModel: map[string]string{
		"cheap-model": "Sure, here you go:\n{\"sentiment\":\"negative\",\"intent\":\"unsubscribe\",\"confidence\":0.97}\nHope that helps!",
	}}
	c := New(inv, testConfig())

	out, err := c.Classify(context.Background(), "take me off this list", nil)
	require.NoError(t, err)
	require.Equal(t, domain.IntentUnsubscribe, out.Intent)
}

func TestClassify_HistoryIsIncludedInPromptContext(t *testing.T) {
	inv := &fakeInvoker{byModel: map[string]string{
		"cheap-model": `{"sentiment":"neutral","intent":"question","confidence":0.8}`,
	}}
	c := New(inv, testConfig())

	history := []domain.Activity{
		{Channel: domain.ChannelEmail, SequencePosition: 1, Content: domain.ContentSnapshot{Subject: "Quick question"}},
	}
	out, err := c.Classify(context.Background(), "what's the pricing?", history)
	require.NoError(t, err)
	require.Equal(t, domain.IntentQuestion, out.Intent)
}
