// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/playermap/internal/config"
)

// NewRouter builds the full route tree with middleware, API endpoints,
// health probes and the Prometheus metrics endpoint.
func NewRouter(cfg *config.ServerConfig, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestID())
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrometheusMetrics())
		r.Use(AccessLog())

		// Health probes skip the rate limiter so orchestrator checks
		// never get throttled behind dashboard traffic.
		r.Get("/health/live", h.HealthLive)
		r.Get("/health/ready", h.HealthReady)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitReqs > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
			}

			r.Get("/servers", h.Servers)
			r.Route("/servers/{serverID}", func(r chi.Router) {
				r.Get("/players", h.Players)
				r.Get("/players/{playerID}/path", h.MovementPath)
				r.Get("/map", h.MapMeta)
				r.Get("/items", h.ItemCatalog)
				r.Get("/tiles/{zoom}/{x}/{y}", h.Tile)
				r.Delete("/cache", h.InvalidateServer)
			})
			r.Post("/names", h.ResolveNames)
		})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
