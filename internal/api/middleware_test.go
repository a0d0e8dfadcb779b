package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/store"
)

func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func setupTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return store.NewWithDB(db), mock, func() { db.Close() }
}

func tenantRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "api_key", "tier", "subscription_status", "credits_remaining", "permission_mode",
		"daily_cap_email", "daily_cap_sms", "daily_cap_linkedin", "daily_cap_voice", "daily_cap_mail",
		"als_weight_data_quality", "als_weight_authority", "als_weight_company_fit",
		"als_weight_timing", "als_weight_risk",
		"monthly_sdk_budget_aud", "daily_enrichment_budget_aud", "timezone", "created_at", "updated_at",
	}).AddRow(
		"tenant-1", "Acme", "secret-key", "velocity", "active", 100, "autopilot",
		10, 10, 10, 10, 10,
		20.0, 20.0, 20.0, 20.0, 20.0,
		nil, 5.0, "Australia/Sydney", fixedTime(), fixedTime(),
	)
}

func TestTenantAuth_MissingBearerTokenRejected(t *testing.T) {
	s, _, cleanup := setupTestStore(t)
	defer cleanup()

	called := false
	mw := tenantAuth(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/dashboard", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantAuth_ValidTokenResolvesTenant(t *testing.T) {
	s, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, name, api_key").WithArgs("secret-key").WillReturnRows(tenantRow())

	var resolved string
	mw := tenantAuth(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = tenantFromContext(r).ID
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/dashboard", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant-1", resolved)
}

func TestTenantAuth_UnknownKeyRejected(t *testing.T) {
	s, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, name, api_key").WithArgs("bogus").WillReturnError(store.ErrNotFound)

	mw := tenantAuth(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/dashboard", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
