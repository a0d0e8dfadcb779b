// Package enrichment implements the tiered provider waterfall that fills
// out a partial PoolLead (spec.md §4.3): a versioned, TTL'd cache in
// front of up to three provider tiers, cost tracking per invocation, and
// a daily-budget circuit breaker.
package enrichment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/logger"
)

// ErrBudgetExhausted names the daily-budget circuit-breaker condition
// (spec.md §4.3 circuit breaker). Enrich does not return it: once the
// tenant's daily budget is spent it stops the cascade and returns the
// best result so far with a nil error.
var ErrBudgetExhausted = fmt.Errorf("enrichment: daily budget exhausted")

// Tier identifies a waterfall stage (spec.md §4.3 table).
type Tier int

const (
	TierCache   Tier = 0
	TierBulk    Tier = 1
	TierFull    Tier = 2
	TierPremium Tier = 3
)

// Provider resolves a partial PoolLead into normalized fields. Each tier
// in the waterfall is backed by one Provider implementation.
type Provider interface {
	Tier() Tier
	// Enrich returns the normalized fields it could resolve, its cost in
	// AUD, and whether the result is partial (missing required fields
	// that a higher tier could still fill in).
	Enrich(ctx context.Context, partial domain.PoolLead) (result domain.PoolLead, costAUD float64, partialResult bool, err error)
}

// CostSink records a provider invocation's cost for daily-budget tracking.
// Implemented by the Store in production; an in-memory counter in tests.
type CostSink interface {
	// SpendToday returns the tenant's cumulative enrichment spend for the
	// current calendar day in the tenant's configured timezone.
	SpendToday(ctx context.Context, tenantID string) (float64, error)
	// RecordSpend appends a cost entry for the invocation.
	RecordSpend(ctx context.Context, tenantID string, tier Tier, provider string, costAUD float64) error
}

// Waterfall runs the tiered cascade described in spec.md §4.3.
type Waterfall struct {
	providers   []Provider // ordered tier 1..3
	cache       *cache.Cache
	cacheTTL    time.Duration
	cacheVersion string
	costs       CostSink

	mu sync.Mutex
}

// New builds a Waterfall. providers should be supplied in ascending tier
// order (tier 1 first); tier 0 is always the in-process cache and is not
// a Provider. cacheVersion is the key prefix bumped to invalidate every
// cached entry without a delete pass (spec.md §4.3 caching policy).
func New(providers []Provider, cacheTTL time.Duration, cacheVersion string, costs CostSink) *Waterfall {
	if cacheVersion == "" {
		cacheVersion = "v1"
	}
	return &Waterfall{
		providers:    providers,
		cache:        cache.New(cacheTTL, cacheTTL/2),
		cacheTTL:     cacheTTL,
		cacheVersion: cacheVersion,
		costs:        costs,
	}
}

// cacheEntry is what's stored per key: the normalized lead plus whether
// the result is still partial (eligible for a later tier upgrade).
type cacheEntry struct {
	Lead    domain.PoolLead
	Partial bool
}

// cacheKey computes the versioned key `v1:{hash_of_input}` from the
// partial lead's identifying fields (spec.md §4.3).
func (w *Waterfall) cacheKey(partial domain.PoolLead) string {
	h := sha256.New()
	h.Write([]byte(partial.Email))
	h.Write([]byte(partial.Domain))
	h.Write([]byte(partial.LinkedInURL))
	return w.cacheVersion + ":" + hex.EncodeToString(h.Sum(nil))
}

// Enrich runs the waterfall for tenantID against partial, stopping at
// the first tier that returns a non-partial result, the last tier
// configured, or the tenant's daily budget, whichever comes first.
// maxTier bounds how high the cascade is allowed to climb (callers pass
// a lower bound for cold/cool leads and TierPremium for hot ones, per
// the tier-eligibility table in spec.md §4.3).
func (w *Waterfall) Enrich(ctx context.Context, tenantID string, partial domain.PoolLead, maxTier Tier, dailyBudgetAUD float64) (domain.PoolLead, error) {
	key := w.cacheKey(partial)

	if cached, ok := w.cache.Get(key); ok {
		entry := cached.(cacheEntry)
		if !entry.Partial || maxTier == TierCache {
			entry.Lead.Enrichment.Tier = int(TierCache)
			return entry.Lead, nil
		}
		// Partial cache hit: fall through to try upgrading via higher tiers.
		partial = entry.Lead
	}

	if maxTier == TierCache {
		return partial, nil
	}

	spentToday, err := w.costs.SpendToday(ctx, tenantID)
	if err != nil {
		return partial, fmt.Errorf("check enrichment spend: %w", err)
	}

	result := partial
	resultPartial := true
	for _, p := range w.providers {
		if p.Tier() > maxTier {
			break
		}
		if spentToday >= dailyBudgetAUD {
			logger.Warn("enrichment budget exhausted", "tenant_id", tenantID, "tier", fmt.Sprintf("%d", p.Tier()))
			break
		}

		enriched, cost, partialResult, err := p.Enrich(ctx, result)
		if err != nil {
			logger.Warn("enrichment provider failed", "tier", fmt.Sprintf("%d", p.Tier()), "error", err.Error())
			continue
		}

		spentToday += cost
		if err := w.costs.RecordSpend(ctx, tenantID, p.Tier(), providerName(p), cost); err != nil {
			logger.Warn("record enrichment spend failed", "error", err.Error())
		}

		result = mergeNormalized(result, enriched)
		result.Enrichment.Tier = int(p.Tier())
		result.Enrichment.CreditCost += cost
		resultPartial = partialResult
		if !partialResult {
			break
		}
	}

	result.Enrichment.Partial = resultPartial
	w.cache.Set(key, cacheEntry{Lead: result, Partial: resultPartial}, w.cacheTTL)
	return result, nil
}

// mergeNormalized layers newly-resolved non-zero fields from enriched on
// top of base, never overwriting an already-populated field with a blank
// one from a lower-confidence later tier.
func mergeNormalized(base, enriched domain.PoolLead) domain.PoolLead {
	if base.FirstName == "" {
		base.FirstName = enriched.FirstName
	}
	if base.LastName == "" {
		base.LastName = enriched.LastName
	}
	if base.Title == "" {
		base.Title = enriched.Title
	}
	if base.Company == "" {
		base.Company = enriched.Company
	}
	if base.LinkedInURL == "" {
		base.LinkedInURL = enriched.LinkedInURL
	}
	if base.Phone == "" {
		base.Phone = enriched.Phone
	}
	if base.Org.Industry == "" {
		base.Org = enriched.Org
	}
	if base.Signals == (domain.Signals{}) {
		base.Signals = enriched.Signals
	}
	return base
}

func providerName(p Provider) string {
	return fmt.Sprintf("tier%d", p.Tier())
}
