package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mesa-campaigns/internal/core/port"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Scheduler port.SchedulerUseCase
	Queue     port.QueueUseCase
	Targeting port.TargetingUseCase
	Analytics port.AnalyticsUseCase
}

// Handler contains dependencies and routes. It is an inbound adapter for HTTP.
// Routes are registered on a chi.Router for convenient method handling.
type Handler struct {
	svc    Services
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured, plus the
// Prometheus scrape endpoint at /metrics.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/scheduled", h.handleScheduledByDate)
			r.Get("/conflicts", h.handleConflicts)
			r.Get("/targeted", h.handleTargetedCampaigns)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", h.handleDeleteCampaign)

				r.Post("/schedule", h.handleSchedule)
				r.Delete("/schedule", h.handleUnschedule)
				r.Post("/activate", h.handleActivate)
				r.Post("/deactivate", h.handleDeactivate)
				r.Put("/recurrence", h.handleUpdateRecurrence)
				r.Post("/resolve", h.handleResolveConflict)

				r.Post("/queue", h.handleAddToQueue)
				r.Delete("/queue", h.handleRemoveFromQueue)
				r.Put("/queue/position", h.handleMoveInQueue)

				r.Get("/targeting/check", h.handleCheckTargeting)
				r.Put("/targeting", h.handleUpdateTargeting)

				r.Post("/impressions", h.handleImpression)
				r.Post("/clicks", h.handleClick)
				r.Post("/conversions", h.handleConversion)
				r.Get("/analytics", h.handleAnalytics)
			})
		})

		r.Get("/queues/{placement}", h.handleQueue)
		r.Post("/queues/{placement}/reorder", h.handleReorderQueue)

		r.Post("/scheduler/process-queue", h.handleProcessQueue)
		r.Post("/scheduler/boundaries", h.handleBoundaries)
	})
	r.Handle("/metrics", promhttp.Handler())
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}
