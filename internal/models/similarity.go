// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package models

import "time"

// SongSimilarity is a sparse pairwise similarity score between two songs,
// keyed by the ordered (source, target) pair. Scores are produced by an
// external offline job and pushed in through the admin API; the shuffle core
// only reads them. Absence of an entry is not an error.
type SongSimilarity struct {
	SourceSongID int64 `json:"source_song_id"`
	TargetSongID int64 `json:"target_song_id"`

	// Score is the similarity in [0, 1].
	Score float64 `json:"score"`

	UpdatedAt time.Time `json:"updated_at"`
}
