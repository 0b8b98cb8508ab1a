// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jwhitmore/resonate/internal/logging"
	"github.com/jwhitmore/resonate/internal/metrics"
)

// RequestID attaches a request ID to the context and the X-Request-ID
// response header, honoring an inbound header when the client sent one.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
			}

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			logger := logging.With().Str("request_id", requestID).Logger()
			ctx = logging.ContextWithLogger(ctx, logger)

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrometheusMetrics records request counts, latency, and in-flight gauge per
// route pattern. Must run inside the chi router so the matched pattern is
// available after the handler returns.
func PrometheusMetrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.TrackActiveRequest(true)
			defer metrics.TrackActiveRequest(false)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			endpoint := chi.RouteContext(r.Context()).RoutePattern()
			if endpoint == "" {
				endpoint = r.URL.Path
			}
			metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}

// RequestLogging emits one structured log line per request.
func RequestLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger := logging.LoggerFromContext(r.Context())
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}
