// Package llm implements the cheap/premium Bedrock-backed classifier
// adapter behind internal/thread's Classifier contract (spec.md §4.9:
// "the classifier may use a cascading cheap-tier/premium-tier LLM").
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/domain"
)

// invoker abstracts the single Bedrock call the classifier needs, so
// tests can substitute a fake without a live AWS client.
type invoker interface {
	Invoke(ctx context.Context, modelID, systemPrompt, userMessage string) (string, error)
}

// bedrockInvoker is the real invoker, wrapping bedrockruntime.Client the
// way the teacher's BedrockAgent wraps it.
type bedrockInvoker struct {
	client *bedrockruntime.Client
}

// bedrockMessage and bedrockContentBlock mirror the teacher's
// BedrockMessage/BedrockContentBlock request shape.
type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (b *bedrockInvoker) Invoke(ctx context.Context, modelID, systemPrompt, userMessage string) (string, error) {
	req := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		System:           systemPrompt,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: userMessage}}},
		},
		Temperature: 0,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal bedrock response: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return text.String(), nil
}

// NewBedrockInvoker constructs the real AWS-backed invoker, loading the
// default credential chain the way the teacher's NewBedrockAgent does.
func NewBedrockInvoker(ctx context.Context, region string) (invoker, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &bedrockInvoker{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

// Classifier implements internal/thread.Classifier with a cascading
// cheap-tier/premium-tier pair of Bedrock models: the cheap model handles
// the common clear-cut replies, escalating to the premium model whenever
// its own reported confidence is too low to trust (spec.md §4.9).
type Classifier struct {
	invoke             invoker
	cheapModel         string
	premiumModel       string
	escalateBelow      float64
}

// EscalateBelowDefault is the cheap-tier confidence floor below which a
// reply is re-run through the premium model.
const EscalateBelowDefault = 0.6

// New builds a Classifier from config.LLMConfig and a live invoker.
func New(inv invoker, cfg config.LLMConfig) *Classifier {
	return &Classifier{
		invoke:        inv,
		cheapModel:    cfg.CheapModel,
		premiumModel:  cfg.PremiumModel,
		escalateBelow: EscalateBelowDefault,
	}
}

// classifierOutput is the strict JSON shape both tiers are prompted to
// return, matching domain.Classification field-for-field.
type classifierOutput struct {
	Sentiment    string  `json:"sentiment"`
	Intent       string  `json:"intent"`
	Objection    string  `json:"objection_type,omitempty"`
	QuestionText string  `json:"question_text,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Classify satisfies internal/thread.Classifier. history gives the prior
// outbound touches in the thread for context, the way the teacher's agent
// folds conversationHistory into its prompt.
func (c *Classifier) Classify(ctx context.Context, messageText string, history []domain.Activity) (domain.Classification, error) {
	out, err := c.run(ctx, c.cheapModel, messageText, history)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("llm: cheap tier: %w", err)
	}
	if out.Confidence < c.escalateBelow {
		premiumOut, err := c.run(ctx, c.premiumModel, messageText, history)
		if err != nil {
			return domain.Classification{}, fmt.Errorf("llm: premium tier: %w", err)
		}
		out = premiumOut
	}
	return toDomainClassification(out), nil
}

func (c *Classifier) run(ctx context.Context, modelID, messageText string, history []domain.Activity) (classifierOutput, error) {
	raw, err := c.invoke.Invoke(ctx, modelID, buildSystemPrompt(), buildUserMessage(messageText, history))
	if err != nil {
		return classifierOutput{}, err
	}

	var out classifierOutput
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		return classifierOutput{}, fmt.Errorf("parse classifier output: %w", err)
	}
	return out, nil
}

// buildSystemPrompt fixes the classifier's output contract, the way the
// teacher's buildSystemPrompt fixes its domain expertise and constraints.
func buildSystemPrompt() string {
	return `You are a reply classifier for a B2B outreach platform. Given an inbound email, SMS, or LinkedIn reply and the prior outbound touches sent to that lead, classify the reply's intent.

## Output contract
Respond with ONLY a single JSON object, no prose, matching exactly:
{
  "sentiment": "positive" | "neutral" | "negative",
  "intent": "interested" | "question" | "objection" | "not_interested" | "unsubscribe" | "oos",
  "objection_type": "price" | "timing" | "authority" | "no_need" | "competitor" | "other" (omit unless intent is "objection"),
  "question_text": string (omit unless intent is "question"),
  "confidence": number between 0 and 1
}

## Intent definitions
- interested: wants to proceed, book a call, or learn more
- question: asking for clarification before deciding
- objection: pushing back with a specific reason
- not_interested: declining without asking to stop contact entirely
- unsubscribe: explicitly asking to stop all future contact
- oos: out-of-office autoreply or other non-substantive reply

Use a low confidence score whenever the reply is ambiguous, sarcastic, or mixes multiple signals.`
}

// buildUserMessage mirrors the teacher's buildContextMessage: the reply
// text plus a compact history of what was already sent, so the model can
// read the reply in context rather than in isolation.
func buildUserMessage(messageText string, history []domain.Activity) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Prior touches sent to this lead:\n")
		for _, a := range history {
			fmt.Fprintf(&b, "- [%s] touch %d: %s\n", a.Channel, a.SequencePosition, a.Content.Subject)
		}
		b.WriteString("\n")
	}
	b.WriteString("Reply to classify:\n")
	b.WriteString(messageText)
	return b.String()
}

// extractJSON trims any leading/trailing prose a model adds despite the
// system prompt's instruction, returning the outermost {...} span.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func toDomainClassification(out classifierOutput) domain.Classification {
	c := domain.Classification{
		Sentiment:    out.Sentiment,
		Intent:       domain.Intent(out.Intent),
		QuestionText: out.QuestionText,
		Confidence:   out.Confidence,
	}
	if out.Objection != "" {
		obj := domain.ObjectionType(out.Objection)
		c.Objection = &obj
	}
	return c
}
