package cis

import (
	"context"
	"fmt"
	"sync"

	"github.com/keiracom/agencyos/internal/domain"
)

// SignalReader is the read-side boundary into published BuyerSignals,
// satisfied by *store.Store.
type SignalReader interface {
	ListRecentBuyerSignals(ctx context.Context, limit int) ([]domain.BuyerSignal, error)
}

// maxBonus is the ceiling spec.md §4.10 puts on the cross-tenant
// known-buyer bonus a single lead's scoring input may receive.
const maxBonus = 15.0

// SignalLookup caches the most recently published WHO signals in memory
// and answers pool.BuyerSignalLookup.BonusFor by matching a lead's
// industry/size segment against them. It refreshes on demand rather than
// on a timer: the Pool Manager's enroll loop calls Refresh once per
// enroll batch, not per lead.
type SignalLookup struct {
	reader SignalReader

	mu      sync.RWMutex
	bonusBy map[string]float64 // segment -> bonus
}

// NewSignalLookup builds an empty SignalLookup; call Refresh before use.
func NewSignalLookup(reader SignalReader) *SignalLookup {
	return &SignalLookup{reader: reader, bonusBy: map[string]float64{}}
}

// Refresh reloads the in-memory segment->bonus table from the most
// recently published WHO signals.
func (l *SignalLookup) Refresh(ctx context.Context, limit int) error {
	signals, err := l.reader.ListRecentBuyerSignals(ctx, limit)
	if err != nil {
		return fmt.Errorf("refresh signal lookup: %w", err)
	}

	next := make(map[string]float64, len(signals))
	for _, sig := range signals {
		if sig.Type != domain.SignalWho {
			continue
		}
		bonus := sig.Confidence * maxBonus
		if bonus > maxBonus {
			bonus = maxBonus
		}
		// A segment may appear more than once across refresh windows;
		// keep the strongest published bonus for it.
		if existing, ok := next[sig.Segment]; !ok || bonus > existing {
			next[sig.Segment] = bonus
		}
	}

	l.mu.Lock()
	l.bonusBy = next
	l.mu.Unlock()
	return nil
}

// BonusFor returns the cached bonus for lead's industry/size segment, or
// 0 if no signal covers it.
func (l *SignalLookup) BonusFor(lead domain.PoolLead) float64 {
	seg := whoSegment(ActivityRecord{Industry: lead.Org.Industry, EmployeeCount: lead.Org.EmployeeCount})

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bonusBy[seg]
}
