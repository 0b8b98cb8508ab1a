// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwhitmore/resonate/internal/config"
)

// Router assembles the chi route tree around a Handler.
type Router struct {
	handler *Handler
	cfg     *config.APIConfig
}

// NewRouter creates the router. cfg may be nil for defaults.
func NewRouter(handler *Handler, cfg *config.APIConfig) *Router {
	if cfg == nil {
		cfg = &config.APIConfig{
			RateLimit:          100,
			RateLimitWindow:    time.Minute,
			CORSAllowedOrigins: []string{"*"},
			MaxShuffleLimit:    500,
		}
	}
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the http.Handler with the full middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(RequestLogging())

	// Health probes stay outside the rate limiter so orchestrators are never
	// throttled.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			router.cfg.RateLimit,
			router.cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
		r.Use(PrometheusMetrics())

		r.Post("/playback", router.handler.RecordPlayback)
		r.Get("/shuffle", router.handler.Shuffle)

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", router.handler.ListSongs)
			r.Post("/", router.handler.CreateSong)
			r.Get("/{songID}", router.handler.GetSong)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/profile", router.handler.GetProfile)
			r.Get("/preferences/{songID}", router.handler.GetPreference)
		})

		r.Put("/similarity", router.handler.UpsertSimilarity)
	})

	return r
}
