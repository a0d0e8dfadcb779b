package domain

import "time"

// ThreadStatus is the coarse lifecycle state of a Thread (spec.md §4.9).
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadResolved ThreadStatus = "resolved"
	ThreadStale    ThreadStatus = "stale"
)

// ThreadOutcome is the terminal disposition a Thread is assessed to have
// reached once resolved or gone stale (spec.md §4.9).
type ThreadOutcome string

const (
	OutcomeConverted  ThreadOutcome = "converted"
	OutcomeRejected   ThreadOutcome = "rejected"
	OutcomeNoResponse ThreadOutcome = "no_response"
	OutcomeOngoing    ThreadOutcome = "ongoing"
)

// Intent is the classifier's best guess at the prospect's reply intent
// (spec.md §4.9 classifier contract).
type Intent string

const (
	IntentInterested    Intent = "interested"
	IntentQuestion      Intent = "question"
	IntentObjection     Intent = "objection"
	IntentNotInterested Intent = "not_interested"
	IntentUnsubscribe   Intent = "unsubscribe"
	IntentOOO           Intent = "oos"
)

// ObjectionType further classifies Intent=objection replies for CIS's
// WHAT detector (spec.md §4.10).
type ObjectionType string

const (
	ObjectionPrice      ObjectionType = "price"
	ObjectionTiming     ObjectionType = "timing"
	ObjectionAuthority  ObjectionType = "authority"
	ObjectionNoNeed     ObjectionType = "no_need"
	ObjectionCompetitor ObjectionType = "competitor"
	ObjectionOther      ObjectionType = "other"
)

// Thread is the conversational state container bound 1:1 to an Assignment.
type Thread struct {
	ID            string        `json:"id" db:"id"`
	AssignmentID  string        `json:"assignment_id" db:"assignment_id"`
	TenantID      string        `json:"tenant_id" db:"tenant_id"`
	Status        ThreadStatus  `json:"status" db:"status"`
	Outcome       ThreadOutcome `json:"outcome" db:"outcome"`
	MessageCount  int           `json:"message_count" db:"message_count"`
	LastInboundAt *time.Time    `json:"last_inbound_at,omitempty" db:"last_inbound_at"`
	LastOutboundAt *time.Time   `json:"last_outbound_at,omitempty" db:"last_outbound_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether no further inbound or outbound activity
// should occur on this thread: it has been resolved one way or another,
// or has gone stale from non-response.
func (t *Thread) IsTerminal() bool {
	return t.Status == ThreadResolved || t.Status == ThreadStale
}

// StaleAfter is the default no-response window before a thread with no
// inbound reply since its last outbound touch is marked stale
// (spec.md §4.9; channel-dependent windows may override this default).
const StaleAfter = 30 * 24 * time.Hour

// IsStale reports whether t has gone StaleAfter (or windowOverride, if
// non-zero) without an inbound reply since the last outbound touch.
func (t *Thread) IsStale(now time.Time, windowOverride time.Duration) bool {
	if t.LastOutboundAt == nil {
		return false
	}
	window := StaleAfter
	if windowOverride > 0 {
		window = windowOverride
	}
	if t.LastInboundAt != nil && t.LastInboundAt.After(*t.LastOutboundAt) {
		return false
	}
	return now.Sub(*t.LastOutboundAt) >= window
}
