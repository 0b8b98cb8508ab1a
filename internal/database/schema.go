// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates all tables and indexes. Every statement is
// IF NOT EXISTS, so re-running against an existing database is a no-op.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	statements := []string{
		// song_ids feeds INSERTed catalog rows with stable identifiers.
		`CREATE SEQUENCE IF NOT EXISTS song_ids START 1`,

		// Catalog. Optional attributes are nullable; last_played_at is
		// touched by the aggregator on full plays.
		`CREATE TABLE IF NOT EXISTS songs (
			id BIGINT PRIMARY KEY DEFAULT nextval('song_ids'),
			title TEXT NOT NULL,
			artist TEXT,
			album TEXT,
			genre TEXT,
			year INTEGER,
			duration_sec INTEGER,
			energy DOUBLE,
			tempo DOUBLE,
			last_played_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Append-only playback event log. Rows are never updated or deleted.
		`CREATE TABLE IF NOT EXISTS playback_events (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL,
			song_id BIGINT NOT NULL,
			played_at TIMESTAMP NOT NULL,
			played_fully BOOLEAN NOT NULL,
			skipped BOOLEAN NOT NULL,
			context TEXT
		)`,

		// Per-(user, song) interaction aggregates. The composite primary key
		// backs the atomic ON CONFLICT upsert.
		`CREATE TABLE IF NOT EXISTS user_song_preferences (
			user_id BIGINT NOT NULL,
			song_id BIGINT NOT NULL,
			play_count INTEGER NOT NULL DEFAULT 0,
			skip_count INTEGER NOT NULL DEFAULT 0,
			last_played_at TIMESTAMP,
			preference_score DOUBLE NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, song_id)
		)`,

		// Per-user listening profiles. Histograms are JSON documents; the
		// feature accumulators ride along in the same row.
		`CREATE TABLE IF NOT EXISTS user_listening_profiles (
			user_id BIGINT PRIMARY KEY,
			time_of_day TEXT NOT NULL DEFAULT '{}',
			day_of_week TEXT NOT NULL DEFAULT '{}',
			genre_preferences TEXT NOT NULL DEFAULT '{}',
			artist_preferences TEXT NOT NULL DEFAULT '{}',
			contexts TEXT NOT NULL DEFAULT '{}',
			features TEXT NOT NULL DEFAULT '{}',
			updated_at TIMESTAMP NOT NULL
		)`,

		// Sparse pairwise similarity, keyed by the ordered pair.
		`CREATE TABLE IF NOT EXISTS song_similarities (
			source_song_id BIGINT NOT NULL,
			target_song_id BIGINT NOT NULL,
			score DOUBLE NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (source_song_id, target_song_id)
		)`,

		// The recency exclusion scans (user_id, played_at).
		`CREATE INDEX IF NOT EXISTS idx_events_user_played_at
			ON playback_events (user_id, played_at)`,
		`CREATE INDEX IF NOT EXISTS idx_prefs_user_score
			ON user_song_preferences (user_id, preference_score)`,
		`CREATE INDEX IF NOT EXISTS idx_songs_genre ON songs (genre)`,
		`CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs (artist)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}
