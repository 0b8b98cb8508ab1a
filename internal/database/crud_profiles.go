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

	json "github.com/goccy/go-json"

	"github.com/jwhitmore/resonate/internal/metrics"
	"github.com/jwhitmore/resonate/internal/models"
)

// GetProfile implements shuffle.ProfileStore. Returns (nil, nil) when the
// user has no profile yet.
func (db *DB) GetProfile(ctx context.Context, userID int64) (*models.UserListeningProfile, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "user_listening_profiles", start)

	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, time_of_day, day_of_week, genre_preferences,
			artist_preferences, contexts, features, updated_at
		FROM user_listening_profiles WHERE user_id = ?`, userID)

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "user_listening_profiles").Inc()
		return nil, fmt.Errorf("get profile for user %d: %w", userID, err)
	}
	return profile, nil
}

// RecordFullPlay implements shuffle.ProfileStore.
//
// Profiles are stored as JSON histogram columns, so the update is a
// read-modify-write rather than an expression upsert. A per-user mutex
// serializes concurrent full plays for the same user; different users do not
// contend.
func (db *DB) RecordFullPlay(ctx context.Context, userID int64, song *models.Song, playContext string, at time.Time) (*models.UserListeningProfile, error) {
	lock := db.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	profile, err := db.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = models.NewUserListeningProfile(userID)
	}

	profile.RecordFullPlay(song, playContext, at)

	if err := db.saveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (db *DB) saveProfile(ctx context.Context, profile *models.UserListeningProfile) error {
	start := time.Now()
	defer metrics.ObserveDBQuery("upsert", "user_listening_profiles", start)

	timeOfDay, err := json.Marshal(profile.TimeOfDay)
	if err != nil {
		return fmt.Errorf("marshal time_of_day: %w", err)
	}
	dayOfWeek, err := json.Marshal(profile.DayOfWeek)
	if err != nil {
		return fmt.Errorf("marshal day_of_week: %w", err)
	}
	genres, err := json.Marshal(profile.GenrePreferences)
	if err != nil {
		return fmt.Errorf("marshal genre_preferences: %w", err)
	}
	artists, err := json.Marshal(profile.ArtistPreferences)
	if err != nil {
		return fmt.Errorf("marshal artist_preferences: %w", err)
	}
	contexts, err := json.Marshal(profile.Contexts)
	if err != nil {
		return fmt.Errorf("marshal contexts: %w", err)
	}
	features, err := json.Marshal(profile.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_listening_profiles
			(user_id, time_of_day, day_of_week, genre_preferences,
			 artist_preferences, contexts, features, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			time_of_day = EXCLUDED.time_of_day,
			day_of_week = EXCLUDED.day_of_week,
			genre_preferences = EXCLUDED.genre_preferences,
			artist_preferences = EXCLUDED.artist_preferences,
			contexts = EXCLUDED.contexts,
			features = EXCLUDED.features,
			updated_at = EXCLUDED.updated_at`,
		profile.UserID, string(timeOfDay), string(dayOfWeek), string(genres),
		string(artists), string(contexts), string(features), profile.UpdatedAt); err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert", "user_listening_profiles").Inc()
		return fmt.Errorf("save profile for user %d: %w", profile.UserID, err)
	}
	return nil
}

func scanProfile(row rowScanner) (*models.UserListeningProfile, error) {
	var profile models.UserListeningProfile
	var timeOfDay, dayOfWeek, genres, artists, contexts, features string

	if err := row.Scan(&profile.UserID, &timeOfDay, &dayOfWeek, &genres,
		&artists, &contexts, &features, &profile.UpdatedAt); err != nil {
		return nil, err
	}

	for _, col := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"time_of_day", timeOfDay, &profile.TimeOfDay},
		{"day_of_week", dayOfWeek, &profile.DayOfWeek},
		{"genre_preferences", genres, &profile.GenrePreferences},
		{"artist_preferences", artists, &profile.ArtistPreferences},
		{"contexts", contexts, &profile.Contexts},
		{"features", features, &profile.Features},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", col.name, err)
		}
	}

	// Maps stay usable even when a column held an empty JSON object.
	if profile.TimeOfDay == nil {
		profile.TimeOfDay = models.IntHistogram{}
	}
	if profile.DayOfWeek == nil {
		profile.DayOfWeek = models.IntHistogram{}
	}
	if profile.GenrePreferences == nil {
		profile.GenrePreferences = models.Histogram{}
	}
	if profile.ArtistPreferences == nil {
		profile.ArtistPreferences = models.Histogram{}
	}
	if profile.Contexts == nil {
		profile.Contexts = models.Histogram{}
	}
	return &profile, nil
}
