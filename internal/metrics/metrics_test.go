// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDBQuery(t *testing.T) {
	before := testutil.CollectAndCount(DBQueryDuration)

	ObserveDBQuery("select", "songs", time.Now().Add(-5*time.Millisecond))
	ObserveDBQuery("upsert", "user_song_preferences", time.Now().Add(-2*time.Millisecond))

	after := testutil.CollectAndCount(DBQueryDuration)
	if after <= before {
		t.Errorf("DBQueryDuration series count did not grow: before=%d after=%d", before, after)
	}
}

func TestRecordPlaybackEventOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		playedFully bool
		skipped     bool
		outcome     string
	}{
		{"full play", true, false, "full"},
		{"skip", false, true, "skip"},
		{"partial", false, false, "partial"},
		{"skip wins over full", true, true, "skip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(PlaybackEventsTotal.WithLabelValues(tt.outcome))
			RecordPlaybackEvent(tt.playedFully, tt.skipped)
			after := testutil.ToFloat64(PlaybackEventsTotal.WithLabelValues(tt.outcome))
			if after != before+1 {
				t.Errorf("outcome %q counter = %v, want %v", tt.outcome, after, before+1)
			}
		})
	}
}

func TestObserveRecommendationModes(t *testing.T) {
	smartBefore := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("smart"))
	randomBefore := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("random"))

	ObserveRecommendation(true, 42, time.Now())
	ObserveRecommendation(false, 10, time.Now())

	if got := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("smart")); got != smartBefore+1 {
		t.Errorf("smart counter = %v, want %v", got, smartBefore+1)
	}
	if got := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("random")); got != randomBefore+1 {
		t.Errorf("random counter = %v, want %v", got, randomBefore+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(HTTPRequestsInFlight)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(HTTPRequestsInFlight); got != base+1 {
		t.Errorf("in-flight gauge = %v after inc, want %v", got, base+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(HTTPRequestsInFlight); got != base {
		t.Errorf("in-flight gauge = %v after dec, want %v", got, base)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/shuffle", "200"))

	RecordAPIRequest("GET", "/api/v1/shuffle", "200", 3*time.Millisecond)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/shuffle", "200"))
	if after != before+1 {
		t.Errorf("request counter = %v, want %v", after, before+1)
	}
}

func TestMetricLinting(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint failed: %v", err)
	}
	for _, p := range problems {
		t.Errorf("metric %s: %s", p.Metric, p.Text)
	}
}
