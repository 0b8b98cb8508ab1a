// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

// Package models defines the data structures shared across Resonate: catalog
// songs, playback events, per-user preference and listening-profile aggregates,
// and pairwise song similarities. It is the single source of truth for data
// structure definitions and carries no behavior beyond small invariant-keeping
// helpers on the aggregate types.
package models

import "time"

// Song is a catalog entry. Songs are owned by the catalog store and immutable
// from the shuffle core's perspective; optional attributes are pointers so that
// "absent" is distinguishable from a zero value.
type Song struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Artist *string `json:"artist,omitempty"`
	Album  *string `json:"album,omitempty"`
	Genre  *string `json:"genre,omitempty"`
	Year   *int    `json:"year,omitempty"`

	// DurationSec is the track length in seconds.
	DurationSec *int `json:"duration_sec,omitempty"`

	// Energy is a normalized intensity feature in [0.0, 1.0].
	Energy *float64 `json:"energy,omitempty"`

	// Tempo is the track tempo in BPM.
	Tempo *float64 `json:"tempo,omitempty"`

	// LastPlayedAt is touched by the aggregator on fully-played events.
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SongFilter narrows ListSongs results. Zero-valued fields match everything.
type SongFilter struct {
	Genre  string `json:"genre,omitempty"`
	Artist string `json:"artist,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
