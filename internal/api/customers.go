package api

import (
	"net/http"

	"github.com/keiracom/agencyos/internal/cis"
	"github.com/keiracom/agencyos/internal/pkg/httputil"
	"github.com/keiracom/agencyos/internal/pkg/logger"
)

// customerRecord is one row of the CSV/CRM-pull bulk import (spec.md §6
// "POST /customers/import"). Org attributes are optional: a bare email
// still feeds the suppression side, just not the BuyerSignal side.
type customerRecord struct {
	Email         string `json:"email"`
	Industry      string `json:"industry,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
}

type importCustomersRequest struct {
	Customers []customerRecord `json:"customers"`
}

// ImportCustomers handles POST /customers/import: a tenant's own
// customer list is permanently suppressed from future cross-tenant
// outreach (they've already converted, contacting them again on behalf
// of another client would be a channel-burning mistake), and segments
// with enough known-converting records feed the CIS WHO signal
// immediately rather than waiting for the next scheduled detection run.
func (h *Handlers) ImportCustomers(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	var req importCustomersRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Customers) == 0 {
		httputil.BadRequest(w, "customers is required")
		return
	}

	emails := make([]string, 0, len(req.Customers))
	var known []cis.KnownCustomer
	for _, c := range req.Customers {
		if c.Email != "" {
			emails = append(emails, c.Email)
		}
		if c.Industry != "" {
			known = append(known, cis.KnownCustomer{Industry: c.Industry, EmployeeCount: c.EmployeeCount})
		}
	}

	failed := h.suppression.Import(r.Context(), tenant.ID, emails)

	signalsPublished := 0
	if h.cis != nil && len(known) > 0 {
		n, err := h.cis.IngestKnownCustomers(r.Context(), known)
		if err != nil {
			logger.Warn("ingest known customers failed", "tenant_id", tenant.ID, "error", err.Error())
		} else {
			signalsPublished = n
			if h.signals != nil {
				if err := h.signals.Refresh(r.Context(), 500); err != nil {
					logger.Warn("signal lookup refresh failed", "error", err.Error())
				}
			}
		}
	}

	httputil.OK(w, map[string]any{
		"imported":           len(req.Customers) - len(failed),
		"failed":             failed,
		"signals_published":  signalsPublished,
	})
}
