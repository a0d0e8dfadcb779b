// Package pool implements the Pool Manager (spec.md §4.6): the
// Assignment lifecycle service governing try_assign, conversion,
// release, and the supply loop that tops up a campaign's enrollment
// from the Enrichment Waterfall when the matching pool is exhausted.
package pool

import (
	"context"
	"fmt"
	"strings"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/enrichment"
	"github.com/keiracom/agencyos/internal/pkg/logger"
	"github.com/keiracom/agencyos/internal/scoring"
)

// Repository is the persistence boundary this service depends on,
// satisfied by *store.Store.
type Repository interface {
	TryAssign(ctx context.Context, tenantID, poolLeadID string, als float64, components domain.ScoreComponents) (domain.AssignOutcome, *domain.Assignment, error)
	ReleaseAssignment(ctx context.Context, assignmentID string, reason domain.ReleaseReason) error
	ReleaseAllActiveForTenant(ctx context.Context, tenantID string) (int, error)
	RecordConversion(ctx context.Context, assignmentID string) error
	ListCandidatePoolLeads(ctx context.Context, filter domain.ICPFilter, limit int) ([]domain.PoolLead, error)
	UpsertPoolLead(ctx context.Context, l *domain.PoolLead) (string, error)
}

// SuppressionChecker is the boundary into internal/suppression.
type SuppressionChecker interface {
	Check(ctx context.Context, email string) (bool, error)
	IsPersonalDomain(domain string) bool
}

// Enricher is the boundary into internal/enrichment.
type Enricher interface {
	Enrich(ctx context.Context, tenantID string, partial domain.PoolLead, maxTier enrichment.Tier, dailyBudgetAUD float64) (domain.PoolLead, error)
}

// BuyerSignalLookup is the boundary into internal/cis's published
// cross-tenant signals: the +0..+15 known-buyer bonus a lead's segment
// has earned feeds straight into the Scorer's Input (spec.md §4.10).
type BuyerSignalLookup interface {
	BonusFor(lead domain.PoolLead) float64
}

// Service implements the Pool Manager described in spec.md §4.6.
type Service struct {
	repo        Repository
	suppression SuppressionChecker
	enrichment  Enricher
	signals     BuyerSignalLookup
}

// New builds a Service. Call SetBuyerSignalLookup afterward to wire in
// the CIS bonus; it is optional and defaults to contributing 0.
func New(repo Repository, suppression SuppressionChecker, enricher Enricher) *Service {
	return &Service{repo: repo, suppression: suppression, enrichment: enricher}
}

// SetBuyerSignalLookup wires the CIS learning loop's published signals
// into this Service's scoring input.
func (s *Service) SetBuyerSignalLookup(l BuyerSignalLookup) {
	s.signals = l
}

// Result is the outcome of a single TryAssign call.
type Result struct {
	Outcome    domain.AssignOutcome
	Assignment *domain.Assignment
}

// TryAssign runs the Pool Manager's core operation for one candidate lead
// (spec.md §4.6 steps 1-2): a suppression check, then the Store's
// serializable claim transaction.
func (s *Service) TryAssign(ctx context.Context, tenantID string, lead domain.PoolLead, als float64, components domain.ScoreComponents) (Result, error) {
	suppressed, err := s.suppression.Check(ctx, lead.Email)
	if err != nil {
		return Result{}, fmt.Errorf("check suppression: %w", err)
	}
	if suppressed {
		return Result{Outcome: domain.AssignOutcomeSuppressed}, nil
	}

	outcome, a, err := s.repo.TryAssign(ctx, tenantID, lead.ID, als, components)
	if err != nil {
		return Result{}, fmt.Errorf("try_assign: %w", err)
	}
	return Result{Outcome: outcome, Assignment: a}, nil
}

// Convert records a successful conversion (led_to_booking outcome) and
// permanently retires the lead from the pool (spec.md §4.6 step 3).
func (s *Service) Convert(ctx context.Context, assignmentID string) error {
	if err := s.repo.RecordConversion(ctx, assignmentID); err != nil {
		return fmt.Errorf("convert assignment: %w", err)
	}
	return nil
}

// Release transitions an Assignment out of the active state for reason
// (expired sequence, manual client action, or a suppression event).
func (s *Service) Release(ctx context.Context, assignmentID string, reason domain.ReleaseReason) error {
	if err := s.repo.ReleaseAssignment(ctx, assignmentID, reason); err != nil {
		return fmt.Errorf("release assignment: %w", err)
	}
	return nil
}

// CancelSubscription runs the background job that fires on a tenant's
// subscription cancellation: every active Assignment is released and its
// lead reopened for other tenants (spec.md §4.6 step 4).
func (s *Service) CancelSubscription(ctx context.Context, tenantID string) (int, error) {
	n, err := s.repo.ReleaseAllActiveForTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("cancel subscription release: %w", err)
	}
	logger.Info("released assignments on subscription cancellation", "tenant_id", tenantID, "count", n)
	return n, nil
}

// Bounce records a hard-bounce event: the Assignment moves to suppressed
// (the domain-level "never contact again" decision is Suppression's,
// driven separately) (spec.md §4.6 step 5).
func (s *Service) Bounce(ctx context.Context, assignmentID string) error {
	return s.Release(ctx, assignmentID, domain.ReleaseSuppressed)
}

// EnrollRequest parameterizes a supply-loop call: a tenant wants n new
// enrollments into campaign, scored with weights against target.
type EnrollRequest struct {
	TenantID          string
	Campaign          domain.Campaign
	N                 int
	Weights           domain.ALSWeights
	Target            scoring.TargetPolicy
	DailyBudgetAUD    float64
	MaxEnrichmentTier enrichment.Tier
}

// EnrollOutcome pairs an attempted lead with what happened to it.
type EnrollOutcome struct {
	Lead   domain.PoolLead
	Result Result
}

// Enroll runs the Pool Manager's supply loop (spec.md §4.6 supply step):
// it iterates ICP-matching candidates, attempts TryAssign for each, and
// stops once n leads have been successfully assigned. If the pool of
// ICP-matching candidates is exhausted before n, it falls back to
// enriching thinly-sourced leads (those with no firmographic data yet) so
// they can be re-evaluated against the ICP filter, respecting the
// tenant's daily enrichment budget.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) ([]EnrollOutcome, error) {
	var assigned []EnrollOutcome

	candidates, err := s.repo.ListCandidatePoolLeads(ctx, req.Campaign.ICP, req.N*3+10)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	assigned, candidates = s.drainCandidates(ctx, req, candidates, assigned)
	if len(assigned) >= req.N || len(candidates) > 0 {
		return assigned, nil
	}

	topUp, err := s.topUpViaEnrichment(ctx, req)
	if err != nil {
		logger.Warn("enrichment top-up failed", "tenant_id", req.TenantID, "error", err.Error())
		return assigned, nil
	}
	assigned, _ = s.drainCandidates(ctx, req, topUp, assigned)
	return assigned, nil
}

// drainCandidates attempts TryAssign against candidates in order until
// req.N total successes have been collected into results, or candidates
// runs out. It returns the updated results and the untried remainder.
func (s *Service) drainCandidates(ctx context.Context, req EnrollRequest, candidates []domain.PoolLead, results []EnrollOutcome) ([]EnrollOutcome, []domain.PoolLead) {
	for i, lead := range candidates {
		if len(results) >= req.N {
			return results, candidates[i:]
		}
		in := buildScoringInput(lead, req.Campaign.ICP)
		if s.signals != nil {
			in.BuyerSignalBonus = s.signals.BonusFor(lead)
		}
		scored := scoring.Score(in, req.Weights, req.Target)

		res, err := s.TryAssign(ctx, req.TenantID, lead, scored.Score, scored.Components)
		if err != nil {
			logger.Warn("try_assign failed", "tenant_id", req.TenantID, "pool_lead_id", lead.ID, "error", err.Error())
			continue
		}
		if res.Outcome == domain.AssignOutcomeAssigned {
			results = append(results, EnrollOutcome{Lead: lead, Result: res})
		}
	}
	return results, nil
}

// topUpViaEnrichment enriches thinly-sourced pool leads (no industry on
// file yet) so they can be re-matched against the campaign's ICP filter,
// then returns the subset that now matches.
func (s *Service) topUpViaEnrichment(ctx context.Context, req EnrollRequest) ([]domain.PoolLead, error) {
	thin, err := s.repo.ListCandidatePoolLeads(ctx, domain.ICPFilter{}, req.N*5)
	if err != nil {
		return nil, fmt.Errorf("list thin candidates: %w", err)
	}

	var matched []domain.PoolLead
	for _, lead := range thin {
		if lead.Org.Industry != "" {
			continue // already enriched and didn't match the ICP filter; skip
		}
		enriched, err := s.enrichment.Enrich(ctx, req.TenantID, lead, req.MaxEnrichmentTier, req.DailyBudgetAUD)
		if err != nil {
			if err == enrichment.ErrBudgetExhausted {
				break
			}
			logger.Warn("enrichment failed during supply top-up", "pool_lead_id", lead.ID, "error", err.Error())
			continue
		}
		if _, err := s.repo.UpsertPoolLead(ctx, &enriched); err != nil {
			logger.Warn("upsert enriched lead failed", "pool_lead_id", lead.ID, "error", err.Error())
			continue
		}
		if icpMatches(enriched, req.Campaign.ICP) {
			matched = append(matched, enriched)
		}
	}
	return matched, nil
}

func icpMatches(lead domain.PoolLead, filter domain.ICPFilter) bool {
	if filter.MinEmployees > 0 && lead.Org.EmployeeCount < filter.MinEmployees {
		return false
	}
	if filter.MaxEmployees > 0 && lead.Org.EmployeeCount > filter.MaxEmployees {
		return false
	}
	if len(filter.Industries) > 0 && !containsFold(filter.Industries, lead.Org.Industry) {
		return false
	}
	if len(filter.Countries) > 0 && !containsFold(filter.Countries, lead.Org.Country) {
		return false
	}
	return true
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// buildScoringInput bridges a PoolLead's normalized fields into the
// Scorer's Input shape. Authority is inferred from the lead's title
// since the pool does not carry a structured seniority field.
func buildScoringInput(lead domain.PoolLead, icp domain.ICPFilter) scoring.Input {
	return scoring.Input{
		VerifiedEmail:       lead.Enrichment.Tier > 0,
		HasPhone:            lead.Phone != "",
		HasLinkedIn:         lead.LinkedInURL != "",
		NonPersonalEmail:    lead.Domain != "",
		Authority:           inferAuthority(lead.Title),
		Industry:            lead.Org.Industry,
		EmployeeCount:       lead.Org.EmployeeCount,
		Country:             lead.Org.Country,
		NewInRoleDays:       lead.Signals.NewInRoleDays,
		ActivelyHiringRoles: lead.Signals.ActivelyHiringRoles,
		FundedDaysAgo:       lead.Signals.FundedDaysAgo,
		LinkedInEngagement:  lead.Signals.LinkedInEngagement,
	}
}

func inferAuthority(title string) scoring.AuthorityLevel {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "ceo") || strings.Contains(t, "owner") || strings.Contains(t, "founder"):
		return scoring.AuthorityOwnerCEO
	case strings.Contains(t, "director") || strings.Contains(t, "head of"):
		return scoring.AuthorityDirector
	case strings.Contains(t, "chief") || strings.Contains(t, "cfo") || strings.Contains(t, "coo") || strings.Contains(t, "cto"):
		return scoring.AuthorityCSuite
	case strings.Contains(t, "vp") || strings.Contains(t, "vice president"):
		return scoring.AuthorityVP
	case strings.Contains(t, "manager") || strings.Contains(t, "lead"):
		return scoring.AuthorityManager
	default:
		return scoring.AuthorityOther
	}
}
