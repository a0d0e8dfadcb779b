// Package cis implements the Conversion Intelligence System learning
// loop (spec.md §4.10): four detectors (WHO/WHAT/WHEN/HOW) that mine
// closed-out Assignments for cross-tenant patterns separating converting
// from non-converting outreach, publishing anonymized BuyerSignals that
// feed back into the Scorer's BuyerSignalBonus.
package cis

import (
	"time"

	"github.com/keiracom/agencyos/internal/domain"
)

// ActivityRecord is the detector-facing join of an Activity with the
// Assignment and PoolLead attributes a segment is bucketed on. Building
// this view is the Repository's job; every detector operates on a plain
// slice of these so the detection algorithms stay pure and testable
// without a database.
type ActivityRecord struct {
	AssignmentID     string
	Channel          domain.Channel
	SequencePosition int
	OccurredAt       time.Time
	LedToBooking     bool
	Content          domain.ContentSnapshot

	Industry      string
	EmployeeCount int
	Country       string
	Authority     string
}

// byAssignment groups records by the Assignment they belong to, the unit
// every detector reasons about ("did this assignment convert").
func byAssignment(records []ActivityRecord) map[string][]ActivityRecord {
	out := make(map[string][]ActivityRecord)
	for _, r := range records {
		out[r.AssignmentID] = append(out[r.AssignmentID], r)
	}
	return out
}

// converted reports whether any Activity in an assignment's touch
// history carries the led_to_booking attribution flag.
func converted(records []ActivityRecord) bool {
	for _, r := range records {
		if r.LedToBooking {
			return true
		}
	}
	return false
}
