package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"campaign-autopilot/internal/observability"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/rules", h.ListRules)
		r.Post("/rules", h.CreateRule)
		r.Post("/rules/{id}/toggle", h.ToggleRule)
		r.Delete("/rules/{id}", h.DeleteRule)

		r.Get("/accounts", h.ListAccounts)
		r.Post("/accounts", h.SaveAccount)
		r.Post("/accounts/{id}/activate", h.ActivateAccount)
		r.Delete("/accounts/{id}", h.DeleteAccount)

		r.Get("/campaigns", h.ListCampaigns)
		r.Get("/executions", h.ListExecutions)
		r.Post("/passes", h.TriggerPass)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
