package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vestra-ai/vestra/internal/adapter/http/handler"
	"github.com/vestra-ai/vestra/internal/adapter/http/middleware"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler    *handler.AccountHandler
	GenerationHandler *handler.GenerationHandler
	WebhookHandler    *handler.WebhookHandler
	SettingsHandler   *handler.SettingsHandler
	HealthHandler     *handler.HealthHandler
	IdempotencyStore  usecase.IdempotencyStore
	Logger            zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	// Operational endpoints
	r.Get("/health", cfg.HealthHandler.Live)
	r.Get("/ready", cfg.HealthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Payment webhooks sit outside the idempotency middleware: event
	// deduplication is the ledger's job, keyed by event ID, not by a
	// client-supplied header.
	r.Post("/webhooks/payments", cfg.WebhookHandler.HandlePayment)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Post("/{id}/charge", cfg.AccountHandler.Charge)
			r.Post("/{id}/credit", cfg.AccountHandler.Credit)
			r.Get("/{id}/entries", cfg.AccountHandler.Entries)
		})

		// Generations
		r.Post("/generations", cfg.GenerationHandler.Generate)

		// Admin
		r.Route("/admin/settings", func(r chi.Router) {
			r.Get("/provider", cfg.SettingsHandler.GetProvider)
			r.Put("/provider", cfg.SettingsHandler.SetProvider)
		})
	})

	return r
}
