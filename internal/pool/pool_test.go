package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/enrichment"
	"github.com/keiracom/agencyos/internal/scoring"
)

type fakeRepo struct {
	candidates       []domain.PoolLead
	thinCandidates   []domain.PoolLead
	assignedLeadIDs  map[string]string // poolLeadID -> tenantID
	upserted         []domain.PoolLead
	releasedAll      map[string]int
	convertedIDs     []string
	releasedIDs      []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		assignedLeadIDs: map[string]string{},
		releasedAll:     map[string]int{},
	}
}

func (f *fakeRepo) TryAssign(ctx context.Context, tenantID, poolLeadID string, als float64, components domain.ScoreComponents) (domain.AssignOutcome, *domain.Assignment, error) {
	if owner, ok := f.assignedLeadIDs[poolLeadID]; ok {
		if owner == tenantID {
			return domain.AssignOutcomeAlreadyYours, &domain.Assignment{ID: "existing-" + poolLeadID, TenantID: tenantID, PoolLeadID: poolLeadID}, nil
		}
		return domain.AssignOutcomeCollision, nil, nil
	}
	f.assignedLeadIDs[poolLeadID] = tenantID
	return domain.AssignOutcomeAssigned, &domain.Assignment{ID: "a-" + poolLeadID, TenantID: tenantID, PoolLeadID: poolLeadID, Status: domain.AssignmentActive, ALSScore: als}, nil
}

func (f *fakeRepo) ReleaseAssignment(ctx context.Context, assignmentID string, reason domain.ReleaseReason) error {
	f.releasedIDs = append(f.releasedIDs, assignmentID)
	return nil
}

func (f *fakeRepo) ReleaseAllActiveForTenant(ctx context.Context, tenantID string) (int, error) {
	n := f.releasedAll[tenantID]
	return n, nil
}

func (f *fakeRepo) RecordConversion(ctx context.Context, assignmentID string) error {
	f.convertedIDs = append(f.convertedIDs, assignmentID)
	return nil
}

func (f *fakeRepo) ListCandidatePoolLeads(ctx context.Context, filter domain.ICPFilter, limit int) ([]domain.PoolLead, error) {
	empty := filter.MinEmployees == 0 && filter.MaxEmployees == 0 &&
		len(filter.Industries) == 0 && len(filter.Countries) == 0
	if empty {
		return f.thinCandidates, nil
	}
	return f.candidates, nil
}

func (f *fakeRepo) UpsertPoolLead(ctx context.Context, l *domain.PoolLead) (string, error) {
	f.upserted = append(f.upserted, *l)
	return l.ID, nil
}

type fakeSuppression struct {
	suppressed map[string]bool
}

func (f *fakeSuppression) Check(ctx context.Context, email string) (bool, error) {
	return f.suppressed[email], nil
}

func (f *fakeSuppression) IsPersonalDomain(d string) bool { return false }

type fakeEnricher struct {
	result domain.PoolLead
	err    error
}

func (f *fakeEnricher) Enrich(ctx context.Context, tenantID string, partial domain.PoolLead, maxTier enrichment.Tier, dailyBudgetAUD float64) (domain.PoolLead, error) {
	if f.err != nil {
		return partial, f.err
	}
	merged := partial
	merged.Org = f.result.Org
	return merged, nil
}

func TestTryAssign_SuppressedShortCircuits(t *testing.T) {
	repo := newFakeRepo()
	supp := &fakeSuppression{suppressed: map[string]bool{"bad@corp.com": true}}
	svc := New(repo, supp, &fakeEnricher{})

	res, err := svc.TryAssign(context.Background(), "tenant-1", domain.PoolLead{ID: "lead-1", Email: "bad@corp.com"}, 80, domain.ScoreComponents{})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignOutcomeSuppressed, res.Outcome)
	assert.Empty(t, repo.assignedLeadIDs)
}

func TestTryAssign_DelegatesToRepoWhenClean(t *testing.T) {
	repo := newFakeRepo()
	supp := &fakeSuppression{suppressed: map[string]bool{}}
	svc := New(repo, supp, &fakeEnricher{})

	res, err := svc.TryAssign(context.Background(), "tenant-1", domain.PoolLead{ID: "lead-1", Email: "jane@corp.com"}, 80, domain.ScoreComponents{})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignOutcomeAssigned, res.Outcome)
}

func TestEnroll_StopsAtN(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates = []domain.PoolLead{
		{ID: "l1", Email: "a@corp.com", Org: domain.OrgAttributes{Industry: "saas", EmployeeCount: 80}},
		{ID: "l2", Email: "b@corp.com", Org: domain.OrgAttributes{Industry: "saas", EmployeeCount: 90}},
		{ID: "l3", Email: "c@corp.com", Org: domain.OrgAttributes{Industry: "saas", EmployeeCount: 100}},
	}
	svc := New(repo, &fakeSuppression{suppressed: map[string]bool{}}, &fakeEnricher{})

	out, err := svc.Enroll(context.Background(), EnrollRequest{
		TenantID: "tenant-1",
		Campaign: domain.Campaign{ICP: domain.ICPFilter{MinEmployees: 50, MaxEmployees: 500}},
		N:        2,
		Target:   scoring.TargetPolicy{},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestEnroll_FallsBackToEnrichmentWhenExhausted(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates = []domain.PoolLead{
		{ID: "l1", Email: "a@corp.com", Org: domain.OrgAttributes{Industry: "saas", EmployeeCount: 80}},
	}
	repo.thinCandidates = []domain.PoolLead{
		{ID: "l2", Email: "b@corp.com"},
	}
	enricher := &fakeEnricher{result: domain.PoolLead{Org: domain.OrgAttributes{Industry: "saas", EmployeeCount: 120}}}
	svc := New(repo, &fakeSuppression{suppressed: map[string]bool{}}, enricher)

	out, err := svc.Enroll(context.Background(), EnrollRequest{
		TenantID: "tenant-1",
		Campaign: domain.Campaign{ICP: domain.ICPFilter{MinEmployees: 50, MaxEmployees: 500}},
		N:        2,
		Target:   scoring.TargetPolicy{},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Len(t, repo.upserted, 1)
}

func TestCancelSubscription_ReleasesAll(t *testing.T) {
	repo := newFakeRepo()
	repo.releasedAll["tenant-1"] = 7
	svc := New(repo, &fakeSuppression{}, &fakeEnricher{})

	n, err := svc.CancelSubscription(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestBounce_ReleasesWithSuppressedReason(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeSuppression{}, &fakeEnricher{})

	require.NoError(t, svc.Bounce(context.Background(), "assignment-1"))
	assert.Contains(t, repo.releasedIDs, "assignment-1")
}
