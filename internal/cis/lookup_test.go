package cis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
)

type fakeSignalReader struct {
	signals []domain.BuyerSignal
}

func (f *fakeSignalReader) ListRecentBuyerSignals(ctx context.Context, limit int) ([]domain.BuyerSignal, error) {
	return f.signals, nil
}

func TestSignalLookup_BonusForMatchesSegmentAndCapsAtMax(t *testing.T) {
	reader := &fakeSignalReader{signals: []domain.BuyerSignal{
		{Type: domain.SignalWho, Segment: "saas/11-50", Confidence: 2.0}, // would exceed cap pre-clamp
		{Type: domain.SignalWhat, Segment: "saas/11-50", Confidence: 1.0}, // wrong type, ignored
	}}
	lookup := NewSignalLookup(reader)
	require.NoError(t, lookup.Refresh(context.Background(), 50))

	bonus := lookup.BonusFor(domain.PoolLead{Org: domain.OrgAttributes{Industry: "saas", EmployeeCount: 20}})
	assert.Equal(t, maxBonus, bonus)
}

func TestSignalLookup_BonusForUnknownSegmentIsZero(t *testing.T) {
	lookup := NewSignalLookup(&fakeSignalReader{})
	require.NoError(t, lookup.Refresh(context.Background(), 50))

	bonus := lookup.BonusFor(domain.PoolLead{Org: domain.OrgAttributes{Industry: "fintech", EmployeeCount: 5000}})
	assert.Equal(t, 0.0, bonus)
}
