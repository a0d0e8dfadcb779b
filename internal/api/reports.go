package api

import (
	"net/http"

	"github.com/keiracom/agencyos/internal/pkg/httputil"
)

// GetDashboard handles GET /reports/dashboard.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)

	dash, err := h.reporting.GetDashboard(r.Context(), tenant.ID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "dashboard query failed")
		return
	}
	httputil.OK(w, dash)
}
