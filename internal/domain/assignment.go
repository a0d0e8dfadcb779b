package domain

import "time"

// AssignmentStatus tracks an exclusive binding between a Tenant and a PoolLead.
type AssignmentStatus string

const (
	AssignmentActive     AssignmentStatus = "active"
	AssignmentConverted  AssignmentStatus = "converted"
	AssignmentReleased   AssignmentStatus = "released"
	AssignmentSuppressed AssignmentStatus = "suppressed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// TerminalAssignmentStatuses are the states counted as "terminal" by the
// Store's `(client_id, pool_lead_id) WHERE state != terminal` uniqueness
// constraint (spec.md §4.1) — only one non-terminal Assignment may exist
// per pool lead at a time.
var TerminalAssignmentStatuses = map[AssignmentStatus]bool{
	AssignmentConverted:  true,
	AssignmentReleased:   true,
	AssignmentSuppressed: true,
	AssignmentCancelled:  true,
}

// ReleaseReason records why an Assignment left the active state, for
// CIS feedback and pool-manager bookkeeping.
type ReleaseReason string

const (
	ReleaseExpired     ReleaseReason = "expired"
	ReleaseSuppressed  ReleaseReason = "suppressed"
	ReleaseManual      ReleaseReason = "manual"
	ReleaseConverted   ReleaseReason = "converted"
)

// Assignment is the exclusive, tenant-scoped claim on a PoolLead. At most
// one active Assignment may exist per PoolLead at any time (spec.md §3
// collision invariant); this is enforced by the store's serializable
// try_assign transaction, not by this type.
type Assignment struct {
	ID             string           `json:"id" db:"id"`
	TenantID       string           `json:"tenant_id" db:"tenant_id"`
	PoolLeadID     string           `json:"pool_lead_id" db:"pool_lead_id"`
	Status         AssignmentStatus `json:"status" db:"status"`
	ALSScore       float64          `json:"als_score" db:"als_score"`
	Tier           string           `json:"tier" db:"tier"`
	SequencePosition int            `json:"sequence_position" db:"sequence_position"`
	AssignedAt     time.Time        `json:"assigned_at" db:"assigned_at"`
	ReleasedAt     *time.Time       `json:"released_at,omitempty" db:"released_at"`
	ReleaseReason  *ReleaseReason   `json:"release_reason,omitempty" db:"release_reason"`
	ConvertedAt    *time.Time       `json:"converted_at,omitempty" db:"converted_at"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether this Assignment still occupies the lead's
// exclusivity slot.
func (a *Assignment) IsActive() bool {
	return a.Status == AssignmentActive
}

// AssignOutcome is the result taxonomy of the Pool Manager's try_assign
// operation (spec.md §4.6).
type AssignOutcome string

const (
	AssignOutcomeAssigned     AssignOutcome = "assigned"
	AssignOutcomeAlreadyYours AssignOutcome = "already_yours"
	AssignOutcomeCollision    AssignOutcome = "collision"
	AssignOutcomeSuppressed   AssignOutcome = "suppressed"
)
