// Package api implements the tenant-facing HTTP surface (spec.md §6):
// campaign management, the lead/assignment read model, suppression and
// bulk-customer-import, the KPI dashboard, and the four inbound webhook
// receivers. Routing follows the teacher's chi-based layout; request
// bodies and responses are plain JSON.
package api

import (
	"github.com/keiracom/agencyos/internal/cis"
	"github.com/keiracom/agencyos/internal/pool"
	"github.com/keiracom/agencyos/internal/reply"
	"github.com/keiracom/agencyos/internal/reporting"
	"github.com/keiracom/agencyos/internal/store"
	"github.com/keiracom/agencyos/internal/suppression"
	"github.com/keiracom/agencyos/internal/thread"
)

// Handlers bundles the service-layer dependencies every route needs.
// Built once at startup via NewHandlers, then wired onto a chi.Mux by
// SetupRoutes.
type Handlers struct {
	store       *store.Store
	pool        *pool.Service
	suppression *suppression.Service
	thread      *thread.Service
	reporting   *reporting.Service
	reply       *reply.Receiver
	cis         *cis.Service
	signals     *cis.SignalLookup
}

// NewHandlers builds a Handlers with the store as its only required
// dependency; the rest are wired in by Set* methods so cmd/server can
// assemble the dependency graph in whatever order its own wiring needs.
func NewHandlers(s *store.Store) *Handlers {
	return &Handlers{store: s}
}

func (h *Handlers) SetPool(p *pool.Service)               { h.pool = p }
func (h *Handlers) SetSuppression(s *suppression.Service) { h.suppression = s }
func (h *Handlers) SetThread(t *thread.Service)           { h.thread = t }
func (h *Handlers) SetReporting(r *reporting.Service)     { h.reporting = r }
func (h *Handlers) SetReply(r *reply.Receiver)            { h.reply = r }
func (h *Handlers) SetCIS(c *cis.Service)                 { h.cis = c }
func (h *Handlers) SetSignalLookup(l *cis.SignalLookup)   { h.signals = l }
