// Package allocator turns an ALS tier, client policy, and lead signals
// into a TouchSchedule: the ordered, channel-tagged plan the Dispatch
// Orchestrator materialises into actual sends. Like scoring, this is a
// pure function package — no I/O.
package allocator

import "github.com/keiracom/agencyos/internal/domain"

// channelAccess is the tier → permitted-channels gate, checked before
// any client policy (spec.md §4.5).
var channelAccess = map[domain.ScoreTier]map[domain.Channel]bool{
	domain.TierHot: {
		domain.ChannelEmail: true, domain.ChannelSMS: true, domain.ChannelLinkedIn: true,
		domain.ChannelVoice: true, domain.ChannelMail: true,
	},
	domain.TierWarm: {
		domain.ChannelEmail: true, domain.ChannelLinkedIn: true, domain.ChannelVoice: true,
	},
	domain.TierCool: {
		domain.ChannelEmail: true, domain.ChannelLinkedIn: true,
	},
	domain.TierCold: {
		domain.ChannelEmail: true,
	},
	domain.TierDead: {},
}

// Permitted reports whether tier grants access to channel.
func Permitted(tier domain.ScoreTier, channel domain.Channel) bool {
	return channelAccess[tier][channel]
}

// ScheduledTouch is one planned entry in a TouchSchedule.
type ScheduledTouch struct {
	Position        int
	Channel         domain.Channel
	OffsetDays      int
	RequireSignals  bool
	Enhanced        bool
}

// Policy bundles the per-client knobs the Allocator consults after the
// tier gate.
type Policy struct {
	// SignalGateEnabled turns on the per-touch enhanced/standard split
	// (spec.md §4.5; default off).
	SignalGateEnabled bool
	// MonthlyEnhancedBudget, when > 0, caps how many enhanced touches a
	// client may receive this month; EnhancedUsedThisMonth is the Store's
	// running counter. Exhausting the budget downgrades remaining
	// enhanced touches to standard.
	MonthlyEnhancedBudget int
	EnhancedUsedThisMonth int
}

// defaultTemplate is the platform's 7-touch default sequence (spec.md
// §4.5): day 0 email; day 2 linkedin (if permitted); day 5 email; day 9
// voice (if permitted); day 14 sms (hot only); day 15 mail (hot only);
// day 21 email. SMS and mail are both hot-gated, so they only survive
// the tier gate below for hot leads, never as alternatives to each other.
func defaultTemplate() []ScheduledTouch {
	return []ScheduledTouch{
		{Position: 1, Channel: domain.ChannelEmail, OffsetDays: 0},
		{Position: 2, Channel: domain.ChannelLinkedIn, OffsetDays: 2},
		{Position: 3, Channel: domain.ChannelEmail, OffsetDays: 5},
		{Position: 4, Channel: domain.ChannelVoice, OffsetDays: 9},
		{Position: 5, Channel: domain.ChannelSMS, OffsetDays: 14},
		{Position: 6, Channel: domain.ChannelMail, OffsetDays: 15},
		{Position: 7, Channel: domain.ChannelEmail, OffsetDays: 21},
	}
}

// Allocate produces the TouchSchedule for a lead at the given tier and
// signal set, honoring the tier's channel gate, the per-touch signal
// gate, and the enhanced-content budget envelope.
func Allocate(tier domain.ScoreTier, signals domain.Signals, employeeCount int, policy Policy) []ScheduledTouch {
	gate := channelAccess[tier]
	if len(gate) == 0 {
		return nil
	}

	hasPrioritySignal := signals.HasPrioritySignal(employeeCount)
	enhancedUsed := policy.EnhancedUsedThisMonth
	budgetExhausted := func() bool {
		return policy.MonthlyEnhancedBudget > 0 && enhancedUsed >= policy.MonthlyEnhancedBudget
	}

	var out []ScheduledTouch
	position := 1
	for _, t := range defaultTemplate() {
		if !gate[t.Channel] {
			continue
		}

		touch := t
		touch.Position = position
		position++

		if policy.SignalGateEnabled {
			touch.RequireSignals = true
			enhanced := hasPrioritySignal && !budgetExhausted()
			touch.Enhanced = enhanced
			if enhanced {
				enhancedUsed++
			}
		}

		out = append(out, touch)
	}
	return out
}
