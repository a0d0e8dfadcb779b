// Package suppression is the platform's single source of truth for
// "must not contact" (spec.md §4.2). It sits in front of the Store with
// a Redis read-through cache, since every JIT validation check (spec.md
// §4.7) calls Check on the hot send path.
package suppression

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/logger"
)

// Repository is the persistence boundary this service depends on,
// satisfied by *store.Store.
type Repository interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
	Suppress(ctx context.Context, e *domain.SuppressionEntry) error
	SuppressCoolingOff(ctx context.Context, email string, months int) error
	ListSuppressions(ctx context.Context, limit, offset int) ([]domain.SuppressionEntry, error)
}

// Service implements the suppression policy described in spec.md §4.2.
type Service struct {
	repo            Repository
	redis           *redis.Client
	cacheTTL        time.Duration
	personalDomains map[string]bool
	coolingOffMonths int
}

// New builds a Service. redisClient may be nil, in which case every
// Check falls through to the repository uncached.
func New(repo Repository, redisClient *redis.Client, personalDomains []string, coolingOffMonths int) *Service {
	set := make(map[string]bool, len(personalDomains))
	for _, d := range personalDomains {
		set[strings.ToLower(d)] = true
	}
	return &Service{
		repo:            repo,
		redis:           redisClient,
		cacheTTL:        5 * time.Minute,
		personalDomains: set,
		coolingOffMonths: coolingOffMonths,
	}
}

// Check reports whether email must not be contacted. It reads through a
// short-TTL Redis cache before falling back to the Store, since this is
// called on every JIT validation (spec.md §4.7 check 5).
func (s *Service) Check(ctx context.Context, email string) (bool, error) {
	email = normalize(email)
	cacheKey := "suppression:" + email

	if s.redis != nil {
		if v, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			return v == "1", nil
		} else if err != redis.Nil {
			logger.Warn("suppression cache read failed", "error", err.Error())
		}
	}

	suppressed, err := s.repo.IsSuppressed(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check suppression: %w", err)
	}

	if s.redis != nil {
		val := "0"
		if suppressed {
			val = "1"
		}
		if err := s.redis.Set(ctx, cacheKey, val, s.cacheTTL).Err(); err != nil {
			logger.Warn("suppression cache write failed", "error", err.Error())
		}
	}
	return suppressed, nil
}

// IsPersonalDomain reports whether domain belongs to the fixed set of
// major webmail providers excluded from domain-level suppression policy
// (spec.md §4.2).
func (s *Service) IsPersonalDomain(d string) bool {
	return s.personalDomains[strings.ToLower(d)]
}

// invalidate drops the cached verdict for email so a subsequent Check
// observes a just-written suppression immediately.
func (s *Service) invalidate(ctx context.Context, email string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "suppression:"+normalize(email)).Err(); err != nil {
		logger.Warn("suppression cache invalidate failed", "error", err.Error())
	}
}

// AddBounce auto-inserts a never-expiring suppression entry for a hard
// bounce (spec.md §4.2 policy).
func (s *Service) AddBounce(ctx context.Context, email string) error {
	return s.add(ctx, email, domain.SuppressionBounce, "")
}

// AddComplaint auto-inserts a never-expiring suppression entry for a spam
// complaint (spec.md §4.2 policy).
func (s *Service) AddComplaint(ctx context.Context, email string) error {
	return s.add(ctx, email, domain.SuppressionComplaint, "")
}

// AddUnsubscribe inserts a one-click-compliance suppression that records
// sourceTenantID as its source (spec.md §4.9 intent=unsubscribe
// transition). Check does not scope entries by tenant, so the address is
// blocked for every tenant; an empty sourceTenantID records a global
// unsubscribe under the same reason.
func (s *Service) AddUnsubscribe(ctx context.Context, email, sourceTenantID string) error {
	return s.add(ctx, email, domain.SuppressionUnsubscribe, sourceTenantID)
}

// AddCoolingOff inserts a 12-month (configurable) suppression for a
// not-interested reply, so the lead is not re-assigned to another tenant
// during the cooling-off window (spec.md §4.9 intent=not_interested).
func (s *Service) AddCoolingOff(ctx context.Context, email string) error {
	if err := s.repo.SuppressCoolingOff(ctx, normalize(email), s.coolingOffMonths); err != nil {
		return fmt.Errorf("add cooling-off suppression: %w", err)
	}
	s.invalidate(ctx, email)
	return nil
}

// AddManual inserts an operator- or client-requested suppression entry
// (POST /suppression, spec.md §6) under an explicit reason.
func (s *Service) AddManual(ctx context.Context, email string, reason domain.SuppressionReason, sourceTenantID string) error {
	return s.add(ctx, email, reason, sourceTenantID)
}

func (s *Service) add(ctx context.Context, email string, reason domain.SuppressionReason, sourceTenantID string) error {
	email = normalize(email)
	if err := s.repo.Suppress(ctx, &domain.SuppressionEntry{
		Email:          email,
		Reason:         reason,
		SourceTenantID: sourceTenantID,
	}); err != nil {
		return fmt.Errorf("add suppression: %w", err)
	}
	s.invalidate(ctx, email)
	return nil
}

// Import bulk-adds a customer's CSV/CRM suppression list (spec.md §4.2
// bulk import). Entries that fail to add are returned, not retried.
func (s *Service) Import(ctx context.Context, sourceTenantID string, emails []string) (failed []string) {
	for _, e := range emails {
		if err := s.add(ctx, e, domain.SuppressionManual, sourceTenantID); err != nil {
			failed = append(failed, e)
		}
	}
	return failed
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
