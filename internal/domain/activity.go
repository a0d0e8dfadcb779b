package domain

import "time"

// ActivityAction enumerates what happened in an Activity record.
type ActivityAction string

const (
	ActionQueued    ActivityAction = "queued"
	ActionSent      ActivityAction = "sent"
	ActionFailed    ActivityAction = "failed"
	ActionSkipped   ActivityAction = "skipped"
	ActionBounced   ActivityAction = "bounced"
	ActionOpened    ActivityAction = "opened"
	ActionClicked   ActivityAction = "clicked"
	ActionReplied   ActivityAction = "replied"
)

// ContentSnapshot is the rendered content actually sent, captured
// verbatim at send time so later template edits never alter history.
type ContentSnapshot struct {
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	TemplateID  string `json:"template_id"`
}

// Activity is an append-only record of one touch attempt against an
// Assignment. Activities are never updated after creation except to
// attach a later delivery-status Action row (spec.md §4.6).
type Activity struct {
	ID           string           `json:"id" db:"id"`
	AssignmentID string           `json:"assignment_id" db:"assignment_id"`
	TenantID     string           `json:"tenant_id" db:"tenant_id"`
	Channel      Channel          `json:"channel" db:"channel"`
	Action       ActivityAction   `json:"action" db:"action"`
	SequencePosition int          `json:"sequence_position" db:"sequence_position"`
	Content      ContentSnapshot  `json:"content" db:"-"`
	ProviderRef  string           `json:"provider_ref,omitempty" db:"provider_ref"`
	OperationKey string           `json:"operation_key" db:"operation_key"`
	LedToBooking bool             `json:"led_to_booking" db:"led_to_booking"`
	OccurredAt   time.Time        `json:"occurred_at" db:"occurred_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
