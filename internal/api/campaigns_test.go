package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/enrichment"
	"github.com/keiracom/agencyos/internal/pool"
	"github.com/keiracom/agencyos/internal/store"
	"github.com/keiracom/agencyos/internal/suppression"
)

type fakePoolRepo struct {
	candidates []domain.PoolLead
}

func (f *fakePoolRepo) TryAssign(ctx context.Context, tenantID, poolLeadID string, als float64, components domain.ScoreComponents) (domain.AssignOutcome, *domain.Assignment, error) {
	return domain.AssignOutcomeAssigned, &domain.Assignment{ID: "assignment-" + poolLeadID, TenantID: tenantID, PoolLeadID: poolLeadID, Status: domain.AssignmentActive}, nil
}
func (f *fakePoolRepo) ReleaseAssignment(ctx context.Context, assignmentID string, reason domain.ReleaseReason) error {
	return nil
}
func (f *fakePoolRepo) ReleaseAllActiveForTenant(ctx context.Context, tenantID string) (int, error) {
	return 0, nil
}
func (f *fakePoolRepo) RecordConversion(ctx context.Context, assignmentID string) error { return nil }
func (f *fakePoolRepo) ListCandidatePoolLeads(ctx context.Context, filter domain.ICPFilter, limit int) ([]domain.PoolLead, error) {
	return f.candidates, nil
}
func (f *fakePoolRepo) UpsertPoolLead(ctx context.Context, l *domain.PoolLead) (string, error) {
	return l.ID, nil
}

type noSuppressionRepo struct{}

func (noSuppressionRepo) IsSuppressed(ctx context.Context, email string) (bool, error) { return false, nil }
func (noSuppressionRepo) Suppress(ctx context.Context, e *domain.SuppressionEntry) error { return nil }
func (noSuppressionRepo) SuppressCoolingOff(ctx context.Context, email string, months int) error {
	return nil
}
func (noSuppressionRepo) ListSuppressions(ctx context.Context, limit, offset int) ([]domain.SuppressionEntry, error) {
	return nil, nil
}

func TestActivateCampaign_EnrollsAndSchedulesFirstTouch(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	s := store.NewWithDB(db)

	mock.ExpectQuery("(?s)SELECT.*FROM campaigns WHERE id").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "name", "status", "allocation", "sequence", "icp", "created_at", "updated_at",
		}).AddRow("camp-1", "tenant-1", "Q3 Outbound", "draft", `{}`, `[]`, `{}`, fixedTime(), fixedTime()))
	mock.ExpectExec("INSERT INTO scheduled_touches").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE campaigns SET status").WithArgs("active", "camp-1").WillReturnResult(sqlmock.NewResult(1, 1))

	repo := &fakePoolRepo{candidates: []domain.PoolLead{
		{ID: "lead-1", Email: "lead1@corp.com", Org: domain.OrgAttributes{Industry: "software", EmployeeCount: 80}},
	}}
	suppSvc := suppression.New(noSuppressionRepo{}, nil, nil, 12)
	poolSvc := pool.New(repo, suppSvc, noopEnricher{})

	h := &Handlers{store: s, pool: poolSvc}

	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/camp-1/activate", nil)
	req = withTenant(req, &domain.Tenant{ID: "tenant-1", DailyCaps: domain.ChannelCaps{Email: 10}})
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "camp-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.ActivateCampaign(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type noopEnricher struct{}

func (noopEnricher) Enrich(ctx context.Context, tenantID string, partial domain.PoolLead, maxTier enrichment.Tier, dailyBudgetAUD float64) (domain.PoolLead, error) {
	return partial, nil
}
