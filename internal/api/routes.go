package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/keiracom/agencyos/internal/pkg/httputil"
)

// SetupRoutes configures the full tenant-facing HTTP surface (spec.md
// §6): campaign/lead/suppression/reporting routes behind bearer-token
// tenant auth, plus the unauthenticated inbound webhook receivers
// (those authenticate via per-provider signature, not tenant bearer).
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*.agencyos.io", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	if h.reply != nil {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/email", h.reply.HandleEmail)
			r.Post("/sms", h.reply.HandleSMS)
			r.Post("/linkedin", h.reply.HandleLinkedIn)
			r.Post("/voice", h.reply.HandleVoice)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(tenantAuth(h.store))

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.CreateCampaign)
			r.Post("/{id}/activate", h.ActivateCampaign)
			r.Post("/{id}/pause", h.PauseCampaign)
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.ListLeads)
			r.Get("/{id}", h.GetLead)
			r.Get("/{id}/activities", h.GetLeadActivities)
		})

		r.Post("/suppression", h.AddSuppression)
		r.Post("/customers/import", h.ImportCustomers)

		r.Get("/reports/dashboard", h.GetDashboard)
	})

	return r
}

// HealthCheck reports process liveness; it deliberately does not probe
// the database so a degraded store doesn't take the load balancer's
// health check down with it.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}
