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

// GetPreference implements shuffle.PreferenceStore. Returns (nil, nil) when
// the pair has no record.
func (db *DB) GetPreference(ctx context.Context, userID, songID int64) (*models.UserSongPreference, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "user_song_preferences", start)

	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, song_id, play_count, skip_count, last_played_at, preference_score, updated_at
		FROM user_song_preferences WHERE user_id = ? AND song_id = ?`, userID, songID)

	pref, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "user_song_preferences").Inc()
		return nil, fmt.Errorf("get preference (%d, %d): %w", userID, songID, err)
	}
	return pref, nil
}

// UpsertOnPlayback implements shuffle.PreferenceStore.
//
// The whole read-modify-write is a single INSERT ... ON CONFLICT DO UPDATE
// with expression-based increments, so concurrent events for the same
// (user, song) pair cannot lose an update. The preference score is always
// recomputed from the resulting counts inside the same statement, never
// incrementally drifted.
func (db *DB) UpsertOnPlayback(ctx context.Context, userID, songID int64, playedFully, skipped bool) (*models.UserSongPreference, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("upsert", "user_song_preferences", start)

	playInc, skipInc := 0, 0
	if playedFully {
		playInc = 1
	}
	if skipped {
		skipInc = 1
	}

	now := time.Now()
	var lastPlayed any
	if playedFully && !skipped {
		lastPlayed = now
	}

	// Bare column references in DO UPDATE SET read the existing row;
	// EXCLUDED reads the proposed one.
	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_song_preferences
			(user_id, song_id, play_count, skip_count, last_played_at, preference_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ? * ? + ? * ?, ?)
		ON CONFLICT (user_id, song_id) DO UPDATE SET
			play_count = play_count + EXCLUDED.play_count,
			skip_count = skip_count + EXCLUDED.skip_count,
			preference_score = (play_count + EXCLUDED.play_count) * ?
				+ (skip_count + EXCLUDED.skip_count) * ?,
			last_played_at = COALESCE(EXCLUDED.last_played_at, last_played_at),
			updated_at = EXCLUDED.updated_at`,
		userID, songID, playInc, skipInc, lastPlayed,
		playInc, models.PlayWeight, skipInc, models.SkipWeight, now,
		models.PlayWeight, models.SkipWeight); err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert", "user_song_preferences").Inc()
		return nil, fmt.Errorf("upsert preference (%d, %d): %w", userID, songID, err)
	}

	pref, err := db.GetPreference(ctx, userID, songID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return nil, fmt.Errorf("preference (%d, %d) missing after upsert", userID, songID)
	}
	return pref, nil
}

// TopPreferences implements shuffle.PreferenceStore.
func (db *DB) TopPreferences(ctx context.Context, userID int64, limit int) ([]*models.UserSongPreference, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "user_song_preferences", start)

	query := `
		SELECT user_id, song_id, play_count, skip_count, last_played_at, preference_score, updated_at
		FROM user_song_preferences WHERE user_id = ?
		ORDER BY preference_score DESC, song_id`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "user_song_preferences").Inc()
		return nil, fmt.Errorf("list top preferences for user %d: %w", userID, err)
	}
	defer closeWithLog(rows, "user_song_preferences rows")

	var prefs []*models.UserSongPreference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return prefs, nil
}

func scanPreference(row rowScanner) (*models.UserSongPreference, error) {
	var pref models.UserSongPreference
	var lastPlayed sql.NullTime

	if err := row.Scan(&pref.UserID, &pref.SongID, &pref.PlayCount, &pref.SkipCount,
		&lastPlayed, &pref.PreferenceScore, &pref.UpdatedAt); err != nil {
		return nil, err
	}
	if lastPlayed.Valid {
		t := lastPlayed.Time
		pref.LastPlayedAt = &t
	}
	return &pref, nil
}
