package domain

import "time"

// MaxRateLimitRequeues is how many times a rate-limited touch is pushed
// to the next send window before it is dropped outright (spec.md §4.7:
// "after 3 such re-queues the touch is dropped with an observability
// event").
const MaxRateLimitRequeues = 3

// NextSendWindowStart returns the next calendar day's send-window open
// in the tenant's own timezone (spec.md §4.7: "re-queues the touch for
// the next day at the client's send window start"), converted back to
// UTC for storage. An empty or unrecognized tz falls back to UTC.
func NextSendWindowStart(now time.Time, tz string, startHour int) time.Time {
	loc, err := time.LoadLocation(tz)
	if tz == "" || err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, startHour, 0, 0, 0, loc)
	return next.UTC()
}

// TouchStatus tracks a ScheduledTouch through the Dispatch Orchestrator's
// durable queue (spec.md §4.7).
type TouchStatus string

const (
	TouchPending   TouchStatus = "pending"
	TouchClaimed   TouchStatus = "claimed"
	TouchSent      TouchStatus = "sent"
	TouchDropped   TouchStatus = "dropped"
	TouchDeadLetter TouchStatus = "dead_letter"
)

// ScheduledTouch is one queued send in a lead's sequence, durable across
// worker restarts (spec.md §4.7: "the queue survives process restarts").
type ScheduledTouch struct {
	ID           string      `json:"id" db:"id"`
	TenantID     string      `json:"tenant_id" db:"tenant_id"`
	CampaignID   string      `json:"campaign_id" db:"campaign_id"`
	AssignmentID string      `json:"assignment_id" db:"assignment_id"`
	PoolLeadID   string      `json:"pool_lead_id" db:"pool_lead_id"`
	Channel      Channel     `json:"channel" db:"channel"`
	TemplateID   string      `json:"template_id" db:"template_id"`
	Position     int         `json:"position" db:"position"`
	Status       TouchStatus `json:"status" db:"status"`
	DueAt        time.Time   `json:"due_at" db:"due_at"`
	Attempts     int         `json:"attempts" db:"attempts"`
	LastError    string      `json:"last_error,omitempty" db:"last_error"`
	RequeueCount int         `json:"requeue_count" db:"requeue_count"`
	ProviderMessageID string `json:"provider_message_id,omitempty" db:"provider_message_id"`
	SentAt       *time.Time  `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// NextBackoff computes the exponential retry delay for a failed touch
// (spec.md §4.7: base 30s, cap 1h, dead-letter after M attempts).
func NextBackoff(attempts int, baseSec, maxSec int) time.Duration {
	delay := baseSec
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= maxSec {
			return time.Duration(maxSec) * time.Second
		}
	}
	return time.Duration(delay) * time.Second
}
