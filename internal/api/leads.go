package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/httputil"
	"github.com/keiracom/agencyos/internal/store"
)

// ListLeads handles GET /leads?campaign&tier&status&page.
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	filter := store.LeadFilter{
		CampaignID: q.Get("campaign"),
		Tier:       domain.ScoreTier(q.Get("tier")),
		Status:     domain.AssignmentStatus(q.Get("status")),
		Page:       page,
		PageSize:   50,
	}

	leads, err := h.store.ListLeadViews(r.Context(), tenant.ID, filter)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "list leads failed")
		return
	}
	httputil.OK(w, map[string]any{"leads": leads, "page": filter.Page})
}

// GetLead handles GET /leads/{id}.
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	id := chi.URLParam(r, "id")

	lv, err := h.store.GetLeadView(r.Context(), tenant.ID, id)
	if err != nil {
		respondStoreErr(w, err, "lead")
		return
	}
	httputil.OK(w, lv)
}

// GetLeadActivities handles GET /leads/{id}/activities: the touch/reply
// timeline for one assignment (spec.md §6's "+/activities" suffix).
func (h *Handlers) GetLeadActivities(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetLeadView(r.Context(), tenant.ID, id); err != nil {
		respondStoreErr(w, err, "lead")
		return
	}
	activities, err := h.store.ListActivities(r.Context(), id)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "list activities failed")
		return
	}
	httputil.OK(w, map[string]any{"activities": activities})
}
