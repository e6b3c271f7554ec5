// Package router assembles the HTTP surface of the concierge service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daotomata/hotel-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/daotomata/hotel-ai-platform/internal/http/middleware"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *handlers.ChatHandler
	ChatwootWebhook    *handlers.ChatwootWebhookHandler
	EscalationsHandler *handlers.EscalationsHandler
	MetricsHandler     http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		} else {
			public.Handle("/metrics", promhttp.Handler())
		}
		if cfg.ChatwootWebhook != nil {
			public.Post("/webhook/chatwoot/{hotelID}", cfg.ChatwootWebhook.Handle)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.Message)
			api.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/history", cfg.ChatHandler.History)
				r.Delete("/", cfg.ChatHandler.ClearSession)
			})
		}
		if cfg.EscalationsHandler != nil {
			api.Route("/escalations", func(r chi.Router) {
				r.Get("/stats", cfg.EscalationsHandler.Stats)
				r.Post("/{hotelID}/force", cfg.EscalationsHandler.Force)
			})
		}
	})

	return r
}
