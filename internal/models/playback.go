// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackEvent records a single completed or abandoned attempt to play one
// song for one user. Events are append-only: the core never mutates or deletes
// them once written.
//
// PlayedFully and Skipped are not mutually exclusive at the type level but are
// treated as such by the aggregator: a skip implies the song was not fully
// played.
type PlaybackEvent struct {
	ID       uuid.UUID `json:"id"`
	UserID   int64     `json:"user_id"`
	SongID   int64     `json:"song_id"`
	PlayedAt time.Time `json:"played_at"`

	// PlayedFully is true when the song ran to completion.
	PlayedFully bool `json:"played_fully"`

	// Skipped is true when the user skipped before completion.
	Skipped bool `json:"skipped"`

	// Context is an optional free-form label for the listening situation
	// (e.g. "workout", "commute"). Empty means unknown.
	Context string `json:"context,omitempty"`
}

// Preference score weights. The preference score is always recomputed from the
// counters with these fixed weights, never incrementally drifted, so repeated
// recomputation from the same counts is idempotent.
const (
	PlayWeight = 1.0
	SkipWeight = -0.5
)

// PreferenceScoreFromCounts returns playCount*PlayWeight + skipCount*SkipWeight.
func PreferenceScoreFromCounts(playCount, skipCount int) float64 {
	return float64(playCount)*PlayWeight + float64(skipCount)*SkipWeight
}

// UserSongPreference aggregates one user's interaction history with one song.
// Created lazily on the first relevant playback event and never deleted by the
// core.
type UserSongPreference struct {
	UserID int64 `json:"user_id"`
	SongID int64 `json:"song_id"`

	// PlayCount counts fully-played events. Monotonically non-decreasing.
	PlayCount int `json:"play_count"`

	// SkipCount counts skip events. Monotonically non-decreasing.
	SkipCount int `json:"skip_count"`

	// LastPlayedAt is set only by fully-played, non-skipped events.
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`

	// PreferenceScore is a pure function of PlayCount and SkipCount, see
	// PreferenceScoreFromCounts.
	PreferenceScore float64 `json:"preference_score"`

	UpdatedAt time.Time `json:"updated_at"`
}
