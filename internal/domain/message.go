package domain

import "time"

// MessageDirection distinguishes outbound touches from inbound replies
// within a Thread's message history.
type MessageDirection string

const (
	DirectionOutbound MessageDirection = "outbound"
	DirectionInbound  MessageDirection = "inbound"
)

// Classification is the classifier contract's output for an inbound
// message (spec.md §4.9): a function classify(message_text, context) →
// classification. The classifier is stateless and safe to retry.
type Classification struct {
	Sentiment    string         `json:"sentiment"`
	Intent       Intent         `json:"intent"`
	Objection    *ObjectionType `json:"objection_type,omitempty"`
	QuestionText string         `json:"question_text,omitempty"`
	Confidence   float64        `json:"confidence"`
}

// Message is one leg of a Thread's conversation, inbound or outbound.
// Inbound messages additionally carry the classifier's verdict.
type Message struct {
	ID          string            `json:"id" db:"id"`
	ThreadID    string            `json:"thread_id" db:"thread_id"`
	ActivityID  *string           `json:"activity_id,omitempty" db:"activity_id"`
	Direction   MessageDirection  `json:"direction" db:"direction"`
	Channel     Channel           `json:"channel" db:"channel"`
	Body        string            `json:"body" db:"body"`
	Sentiment   string            `json:"sentiment,omitempty" db:"sentiment"`
	Intent      *Intent           `json:"intent,omitempty" db:"intent"`
	Objection   *ObjectionType    `json:"objection_type,omitempty" db:"objection_type"`
	QuestionText string           `json:"question_text,omitempty" db:"question_text"`
	Confidence  float64           `json:"confidence,omitempty" db:"confidence"`
	ProviderRef string            `json:"provider_ref,omitempty" db:"provider_ref"`
	DedupeKey   string            `json:"dedupe_key" db:"dedupe_key"`
	ReceivedAt  time.Time         `json:"received_at" db:"received_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// ApplyClassification copies a classifier verdict onto the message.
func (m *Message) ApplyClassification(c Classification) {
	m.Sentiment = c.Sentiment
	m.Intent = &c.Intent
	m.Objection = c.Objection
	m.QuestionText = c.QuestionText
	m.Confidence = c.Confidence
}
