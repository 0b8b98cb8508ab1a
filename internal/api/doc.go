// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

// Package api provides the HTTP surface: chi routing, request validation,
// the standardized JSON response envelope, and Prometheus instrumentation
// middleware. Handlers depend only on the shuffle store interfaces, so the
// API runs unchanged against DuckDB or the in-memory store.
package api
