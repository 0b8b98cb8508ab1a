// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database metrics.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// HTTP metrics.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Playback metrics.
	PlaybackEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_events_total",
			Help: "Total number of recorded playback events",
		},
		[]string{"outcome"}, // "full", "skip", "partial"
	)

	// Shuffle metrics.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuffle_recommendations_total",
			Help: "Total number of shuffle recommendation requests",
		},
		[]string{"mode"}, // "smart", "random"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shuffle_recommendation_duration_seconds",
			Help:    "Time spent ranking one recommendation request",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"mode"},
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shuffle_recommendation_candidates",
			Help:    "Number of candidate songs per recommendation request",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	SimilarityUpsertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similarity_upserts_total",
			Help: "Total number of song similarity entries written",
		},
	)
)

// ObserveDBQuery records the duration of one database query. Callers defer it
// with the operation start time.
func ObserveDBQuery(operation, table string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		HTTPRequestsInFlight.Inc()
	} else {
		HTTPRequestsInFlight.Dec()
	}
}

// RecordPlaybackEvent counts one playback event by outcome. A skip wins over
// a full play when both flags are set, matching the preference semantics.
func RecordPlaybackEvent(playedFully, skipped bool) {
	outcome := "partial"
	switch {
	case skipped:
		outcome = "skip"
	case playedFully:
		outcome = "full"
	}
	PlaybackEventsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecommendation records one completed recommendation request.
func ObserveRecommendation(smart bool, candidates int, start time.Time) {
	mode := "random"
	if smart {
		mode = "smart"
	}
	RecommendationsTotal.WithLabelValues(mode).Inc()
	RecommendationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	RecommendationCandidates.Observe(float64(candidates))
}
