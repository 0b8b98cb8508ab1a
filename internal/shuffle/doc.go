// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

/*
Package shuffle implements the Smart Shuffle recommendation core: it ingests
playback events, maintains per-user preference and listening-behavior
aggregates, and produces ranked song selections balancing personalization,
novelty, and randomness under a per-request policy.

The package is organized leaf-first:

  - Accessor interfaces (PreferenceStore, ProfileStore, SimilarityIndex,
    EventLog, Catalog) define the storage contracts. The database package
    provides DuckDB-backed implementations; Memory provides an in-process
    implementation used in tests and for storage-free development.
  - Aggregator consumes playback events and is the sole writer of the
    preference and profile aggregates.
  - Ranker reads those aggregates and scores candidate pools. It is pure and
    side-effect-free: concurrent Recommend calls never conflict and require no
    locking beyond the ranker's own RNG.

Scoring is a deliberately simple additive heuristic seeded with a uniform
random draw per candidate, not a trained model. The random base guarantees
result variety across repeated calls with identical inputs; this
non-determinism is part of the contract.

This package depends only on the models package and zerolog, so storage
backends can implement its interfaces without import cycles.
*/
package shuffle
