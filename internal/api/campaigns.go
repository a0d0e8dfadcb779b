package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/enrichment"
	"github.com/keiracom/agencyos/internal/pkg/httputil"
	"github.com/keiracom/agencyos/internal/pkg/logger"
	"github.com/keiracom/agencyos/internal/pool"
	"github.com/keiracom/agencyos/internal/scoring"
	"github.com/keiracom/agencyos/internal/store"
)

// createCampaignRequest mirrors spec.md §6's abbreviated POST /campaigns body.
type createCampaignRequest struct {
	Name           string                   `json:"name"`
	AllocationPct  domain.ChannelAllocation `json:"allocation_pct"`
	DailyCap       int                      `json:"daily_cap"`
	PermissionMode domain.PermissionMode    `json:"permission_mode"`
	ICP            domain.ICPFilter         `json:"icp"`
	Sequence       []domain.TouchStep       `json:"sequence,omitempty"`
}

// CreateCampaign handles POST /campaigns.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	var req createCampaignRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}

	c := &domain.Campaign{
		TenantID:   tenant.ID,
		Name:       req.Name,
		Status:     domain.CampaignDraft,
		Allocation: req.AllocationPct,
		Sequence:   req.Sequence,
		ICP:        req.ICP,
	}
	id, err := h.store.CreateCampaign(r.Context(), c)
	if err != nil {
		logger.Error("create campaign failed", "tenant_id", tenant.ID, "error", err.Error())
		httputil.Error(w, http.StatusInternalServerError, "create campaign failed")
		return
	}
	c.ID = id
	httputil.Created(w, c)
}

// ActivateCampaign handles POST /campaigns/{id}/activate: it flips the
// campaign to active, enrolls leads from the Pool Manager's supply loop
// up to the tenant's daily cap, and schedules each newly-assigned lead's
// first sequence touch so the Dispatch Orchestrator picks it up on its
// next poll.
func (h *Handlers) ActivateCampaign(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	id := chi.URLParam(r, "id")

	c, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondStoreErr(w, err, "campaign")
		return
	}
	if c.TenantID != tenant.ID {
		httputil.NotFound(w, "campaign not found")
		return
	}

	n := tenant.DailyCaps.Email + tenant.DailyCaps.SMS + tenant.DailyCaps.LinkedIn + tenant.DailyCaps.Voice + tenant.DailyCaps.Mail
	if n <= 0 {
		n = 50
	}

	outcomes, err := h.pool.Enroll(r.Context(), pool.EnrollRequest{
		TenantID:          tenant.ID,
		Campaign:          *c,
		N:                 n,
		Weights:           tenant.ALSWeights,
		Target:            targetPolicyFromICP(c.ICP),
		DailyBudgetAUD:    tenant.DailyEnrichmentBudgetAUD,
		MaxEnrichmentTier: enrichment.TierPremium,
	})
	if err != nil {
		logger.Error("enroll failed", "tenant_id", tenant.ID, "campaign_id", id, "error", err.Error())
		httputil.Error(w, http.StatusInternalServerError, "enroll failed")
		return
	}

	scheduled := 0
	seq := c.SequenceOrDefault()
	if len(seq) > 0 && outcomes != nil {
		first := seq[0]
		for _, o := range outcomes {
			if o.Result.Assignment == nil {
				continue
			}
			touch := &domain.ScheduledTouch{
				TenantID:     tenant.ID,
				CampaignID:   c.ID,
				AssignmentID: o.Result.Assignment.ID,
				PoolLeadID:   o.Lead.ID,
				Channel:      first.Channel,
				TemplateID:   first.TemplateID,
				Position:     first.Position,
				DueAt:        time.Now().Add(time.Duration(first.DelayHours) * time.Hour),
			}
			if _, err := h.store.ScheduleTouch(r.Context(), touch); err != nil {
				logger.Warn("schedule first touch failed", "assignment_id", o.Result.Assignment.ID, "error", err.Error())
				continue
			}
			scheduled++
		}
	}

	if err := h.store.SetCampaignStatus(r.Context(), id, domain.CampaignActive); err != nil {
		httputil.Error(w, http.StatusInternalServerError, "activate campaign failed")
		return
	}

	httputil.OK(w, map[string]any{
		"enrolled":  len(outcomes),
		"scheduled": scheduled,
	})
}

// PauseCampaign handles POST /campaigns/{id}/pause: sets the cancellation
// flag (spec.md §6) so the Dispatch Orchestrator stops claiming this
// campaign's pending touches; already-scheduled touches are left queued
// rather than force-dropped, matching the Orchestrator's own JIT-check
// philosophy of deciding at send time, not at schedule time.
func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r)
	id := chi.URLParam(r, "id")

	c, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondStoreErr(w, err, "campaign")
		return
	}
	if c.TenantID != tenant.ID {
		httputil.NotFound(w, "campaign not found")
		return
	}
	if err := h.store.SetCampaignStatus(r.Context(), id, domain.CampaignPaused); err != nil {
		httputil.Error(w, http.StatusInternalServerError, "pause campaign failed")
		return
	}
	httputil.OK(w, map[string]string{"status": "paused"})
}

// targetPolicyFromICP adapts a campaign's ICP filter into the Scorer's
// TargetPolicy shape (spec.md §4.4 company_fit component).
func targetPolicyFromICP(icp domain.ICPFilter) scoring.TargetPolicy {
	industries := make(map[string]bool, len(icp.Industries))
	for _, i := range icp.Industries {
		industries[i] = true
	}
	countries := make(map[string]bool, len(icp.Countries))
	for _, c := range icp.Countries {
		countries[c] = true
	}
	return scoring.TargetPolicy{
		Industries: industries,
		SizeMin:    icp.MinEmployees,
		SizeMax:    icp.MaxEmployees,
		Countries:  countries,
	}
}

// respondStoreErr maps a store error onto the appropriate HTTP status.
func respondStoreErr(w http.ResponseWriter, err error, resource string) {
	if err == store.ErrNotFound {
		httputil.NotFound(w, resource+" not found")
		return
	}
	httputil.Error(w, http.StatusInternalServerError, resource+" lookup failed")
}
