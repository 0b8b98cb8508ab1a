// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwhitmore/resonate/internal/metrics"
	"github.com/jwhitmore/resonate/internal/models"
)

// AppendEvent implements shuffle.EventLog. Events are append-only; nothing
// ever updates or deletes rows in playback_events.
func (db *DB) AppendEvent(ctx context.Context, event *models.PlaybackEvent) (*models.PlaybackEvent, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("insert", "playback_events", start)

	stored := *event
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.PlayedAt.IsZero() {
		stored.PlayedAt = time.Now()
	}

	var playContext any
	if stored.Context != "" {
		playContext = stored.Context
	}

	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO playback_events (id, user_id, song_id, played_at, played_fully, skipped, context)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.UserID, stored.SongID, stored.PlayedAt,
		stored.PlayedFully, stored.Skipped, playContext); err != nil {
		metrics.DBQueryErrors.WithLabelValues("insert", "playback_events").Inc()
		return nil, fmt.Errorf("append playback event: %w", err)
	}
	return &stored, nil
}

// RecentSongIDs implements shuffle.EventLog.
func (db *DB) RecentSongIDs(ctx context.Context, userID int64, since time.Time) (map[int64]struct{}, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "playback_events", start)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT song_id FROM playback_events
		WHERE user_id = ? AND played_at > ?`, userID, since)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "playback_events").Inc()
		return nil, fmt.Errorf("query recent plays: %w", err)
	}
	defer closeWithLog(rows, "playback_events rows")

	recent := make(map[int64]struct{})
	for rows.Next() {
		var songID int64
		if err := rows.Scan(&songID); err != nil {
			return nil, fmt.Errorf("scan recent song id: %w", err)
		}
		recent[songID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent plays: %w", err)
	}
	return recent, nil
}
