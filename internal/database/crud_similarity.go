// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwhitmore/resonate/internal/metrics"
	"github.com/jwhitmore/resonate/internal/models"
)

// GetSimilarity implements shuffle.SimilarityIndex. Returns (nil, nil) when
// no entry exists for the ordered pair.
func (db *DB) GetSimilarity(ctx context.Context, sourceSongID, targetSongID int64) (*models.SongSimilarity, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "song_similarities", start)

	var sim models.SongSimilarity
	err := db.conn.QueryRowContext(ctx, `
		SELECT source_song_id, target_song_id, score, updated_at
		FROM song_similarities WHERE source_song_id = ? AND target_song_id = ?`,
		sourceSongID, targetSongID).
		Scan(&sim.SourceSongID, &sim.TargetSongID, &sim.Score, &sim.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "song_similarities").Inc()
		return nil, fmt.Errorf("get similarity (%d, %d): %w", sourceSongID, targetSongID, err)
	}
	return &sim, nil
}

// UpsertSimilarity implements shuffle.SimilarityIndex. Entries are written by
// an external scoring job; a re-write for an existing pair replaces the score
// outright.
func (db *DB) UpsertSimilarity(ctx context.Context, sourceSongID, targetSongID int64, score float64) (*models.SongSimilarity, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("upsert", "song_similarities", start)

	now := time.Now()
	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO song_similarities (source_song_id, target_song_id, score, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (source_song_id, target_song_id) DO UPDATE SET
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at`,
		sourceSongID, targetSongID, score, now); err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert", "song_similarities").Inc()
		return nil, fmt.Errorf("upsert similarity (%d, %d): %w", sourceSongID, targetSongID, err)
	}

	return &models.SongSimilarity{
		SourceSongID: sourceSongID,
		TargetSongID: targetSongID,
		Score:        score,
		UpdatedAt:   now,
	}, nil
}
