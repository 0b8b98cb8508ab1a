// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

// Package metrics exposes Prometheus instrumentation for the HTTP API, the
// DuckDB persistence layer, and the shuffle engine. Metrics are registered on
// the default registry via promauto and served at /metrics in Prometheus text
// format.
package metrics
