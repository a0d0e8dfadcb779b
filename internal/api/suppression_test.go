package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/suppression"
)

type fakeSuppressionRepo struct {
	suppressed map[string]bool
}

func (f *fakeSuppressionRepo) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return f.suppressed[email], nil
}
func (f *fakeSuppressionRepo) Suppress(ctx context.Context, e *domain.SuppressionEntry) error {
	f.suppressed[e.Email] = true
	return nil
}
func (f *fakeSuppressionRepo) SuppressCoolingOff(ctx context.Context, email string, months int) error {
	f.suppressed[email] = true
	return nil
}
func (f *fakeSuppressionRepo) ListSuppressions(ctx context.Context, limit, offset int) ([]domain.SuppressionEntry, error) {
	return nil, nil
}

func withTenant(r *http.Request, tenant *domain.Tenant) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), tenantCtxKey, tenant))
}

func TestAddSuppression_RequiresEmail(t *testing.T) {
	repo := &fakeSuppressionRepo{suppressed: map[string]bool{}}
	h := &Handlers{suppression: suppression.New(repo, nil, nil, 12)}

	req := withTenant(httptest.NewRequest(http.MethodPost, "/api/suppression", bytes.NewBufferString(`{"domain":"bad-actor.com"}`)), &domain.Tenant{ID: "tenant-1"})
	rec := httptest.NewRecorder()
	h.AddSuppression(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddSuppression_ValidEmailSuppressed(t *testing.T) {
	repo := &fakeSuppressionRepo{suppressed: map[string]bool{}}
	h := &Handlers{suppression: suppression.New(repo, nil, nil, 12)}

	body := `{"email":"lead@corp.com","reason":"manual"}`
	req := withTenant(httptest.NewRequest(http.MethodPost, "/api/suppression", bytes.NewBufferString(body)), &domain.Tenant{ID: "tenant-1"})
	rec := httptest.NewRecorder()
	h.AddSuppression(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, repo.suppressed["lead@corp.com"])
}
