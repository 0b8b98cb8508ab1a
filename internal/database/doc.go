// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

// Package database provides the DuckDB-backed persistence layer. A single DB
// value implements every shuffle store interface: the song catalog, the
// append-only playback event log, per-(user, song) preference aggregates,
// per-user listening profiles, and the pairwise song similarity index.
//
// Preference updates are single-statement expression upserts, so concurrent
// playback events for the same (user, song) pair cannot lose an increment.
// Profile updates rewrite JSON histogram columns and are serialized with a
// per-user mutex instead.
package database
