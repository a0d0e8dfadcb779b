package api

import (
	"net/http"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/httputil"
)

// addSuppressionRequest mirrors spec.md §6's POST /suppression body.
// Domain-level suppression is not modeled by internal/suppression
// (Check resolves a single email, not a domain wildcard), so only the
// email form is accepted here; a domain-only request is rejected with a
// clear 400 rather than silently doing nothing.
type addSuppressionRequest struct {
	Email  string                   `json:"email"`
	Domain string                   `json:"domain"`
	Reason domain.SuppressionReason `json:"reason"`
}

// AddSuppression handles POST /suppression.
func (h *Handlers) AddSuppression(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	var req addSuppressionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.BadRequest(w, "email is required (domain-level suppression is not supported)")
		return
	}
	if req.Reason == "" {
		req.Reason = domain.SuppressionManual
	}

	if err := h.suppression.AddManual(r.Context(), req.Email, req.Reason, tenant.ID); err != nil {
		httputil.Error(w, http.StatusInternalServerError, "add suppression failed")
		return
	}
	httputil.Created(w, map[string]string{"status": "suppressed"})
}
