// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package shuffle

import (
	"context"
	"fmt"
	"time"

	"github.com/jwhitmore/resonate/internal/models"
)

// Policy selects which scoring factors are active for one ranking call. It is
// request-scoped configuration: the core never persists it. All fields default
// to false, so the zero value is plain random shuffle; no combination is
// invalid.
type Policy struct {
	// UseSmart enables preference-aware scoring. When false the ranker
	// returns a uniform shuffle of the candidate pool.
	UseSmart bool `json:"use_smart"`

	// PreferHighlyRated weighs the per-song preference score into the total.
	PreferHighlyRated bool `json:"prefer_highly_rated"`

	// ExploreSimilar boosts songs by favorite artists and in favorite genres.
	ExploreSimilar bool `json:"explore_similar"`

	// ExploreNew excludes songs played within the recency window. This is a
	// hard constraint: excluded songs are never re-included to pad a short
	// result.
	ExploreNew bool `json:"explore_new"`

	// RespectTimeOfDay boosts familiar genres during hours the user
	// habitually listens.
	RespectTimeOfDay bool `json:"respect_time_of_day"`
}

// PreferenceStore holds per-(user, song) interaction aggregates.
//
// UpsertOnPlayback is the sole mutator and must be atomic per (userID,
// songID): concurrent playback events for the same pair must not lose an
// update. Get returns (nil, nil) when no record exists.
type PreferenceStore interface {
	// GetPreference returns the aggregate for the pair, or nil when the user
	// has no recorded interaction with the song.
	GetPreference(ctx context.Context, userID, songID int64) (*models.UserSongPreference, error)

	// UpsertOnPlayback increments PlayCount iff playedFully, SkipCount iff
	// skipped, recomputes PreferenceScore from the resulting counts, and sets
	// LastPlayedAt iff playedFully && !skipped. Creates the record on first
	// use.
	UpsertOnPlayback(ctx context.Context, userID, songID int64, playedFully, skipped bool) (*models.UserSongPreference, error)

	// TopPreferences returns up to limit aggregates for the user ordered by
	// descending preference score. Exposed for administrative inspection and
	// for the ranker's optional similarity anchors.
	TopPreferences(ctx context.Context, userID int64, limit int) ([]*models.UserSongPreference, error)
}

// ProfileStore holds per-user listening profiles. RecordFullPlay must be
// atomic per user with respect to concurrent calls for the same user. Get
// returns (nil, nil) when the user has no profile yet.
type ProfileStore interface {
	// GetProfile returns the user's profile, or nil when absent.
	GetProfile(ctx context.Context, userID int64) (*models.UserListeningProfile, error)

	// RecordFullPlay fetches-or-creates the user's profile, folds one
	// fully-played event into it (see models.UserListeningProfile
	// RecordFullPlay), and persists the result.
	RecordFullPlay(ctx context.Context, userID int64, song *models.Song, playContext string, at time.Time) (*models.UserListeningProfile, error)
}

// SimilarityIndex is a keyed store of sparse pairwise song-similarity scores.
// The core never computes scores; an external offline job populates the index
// through Upsert. Get returns (nil, nil) when no entry exists.
type SimilarityIndex interface {
	GetSimilarity(ctx context.Context, sourceSongID, targetSongID int64) (*models.SongSimilarity, error)
	UpsertSimilarity(ctx context.Context, sourceSongID, targetSongID int64, score float64) (*models.SongSimilarity, error)
}

// EventLog is the append-only durable store of playback events.
type EventLog interface {
	// AppendEvent persists the event, assigning ID and PlayedAt if unset, and
	// returns the stored event.
	AppendEvent(ctx context.Context, event *models.PlaybackEvent) (*models.PlaybackEvent, error)

	// RecentSongIDs returns the set of songs the user has any playback event
	// for since the given instant.
	RecentSongIDs(ctx context.Context, userID int64, since time.Time) (map[int64]struct{}, error)
}

// Catalog provides read access to the song library. Songs are immutable from
// the core's view within a single ranking call; GetSong returns (nil, nil)
// for unknown IDs.
type Catalog interface {
	GetSong(ctx context.Context, id int64) (*models.Song, error)
	ListSongs(ctx context.Context, filter models.SongFilter) ([]models.Song, error)

	// TouchLastPlayed updates the song's catalog-side last-played timestamp.
	// Best-effort bookkeeping; failures do not invalidate the playback.
	TouchLastPlayed(ctx context.Context, songID int64, at time.Time) error
}

// Fixed scoring constants. These mark "repeatedly chosen" behavior and the
// additive bonus weights; they are design constants, not tunables.
const (
	// favoriteThreshold is the histogram count above which an artist or
	// genre counts as a favorite.
	favoriteThreshold = 5

	// hourPreferenceThreshold is the time-of-day count above which an hour
	// counts as a habitual listening hour.
	hourPreferenceThreshold = 5

	preferenceWeight    = 2.0
	favoriteArtistBonus = 1.5
	favoriteGenreBonus  = 1.0
	timeOfDayBonus      = 0.5
)

// Config tunes the ranker's non-scoring behavior.
type Config struct {
	// Seed seeds the ranker's RNG. Zero selects a time-based seed.
	Seed int64 `koanf:"seed"`

	// RecentWindow is the wall-clock lookback used by ExploreNew.
	// Default: 24h.
	RecentWindow time.Duration `koanf:"recent_window"`

	// UseSimilarityIndex routes a pairwise similarity bonus through the
	// ExploreSimilar additive slot, using the user's top-preferred songs as
	// anchors. Off by default; the histogram proxy alone matches the
	// reference behavior.
	UseSimilarityIndex bool `koanf:"use_similarity_index"`

	// SimilarityAnchors is the number of top-preferred songs consulted when
	// UseSimilarityIndex is on. Default: 3.
	SimilarityAnchors int `koanf:"similarity_anchors"`

	// SimilarityWeight scales the pairwise similarity bonus. Default: 1.0.
	SimilarityWeight float64 `koanf:"similarity_weight"`
}

// DefaultConfig returns the default ranker configuration.
func DefaultConfig() *Config {
	return &Config{
		RecentWindow:      24 * time.Hour,
		SimilarityAnchors: 3,
		SimilarityWeight:  1.0,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.RecentWindow <= 0 {
		return fmt.Errorf("recent_window must be positive, got %v", c.RecentWindow)
	}
	if c.SimilarityAnchors < 0 {
		return fmt.Errorf("similarity_anchors must be non-negative, got %d", c.SimilarityAnchors)
	}
	if c.SimilarityWeight < 0 {
		return fmt.Errorf("similarity_weight must be non-negative, got %v", c.SimilarityWeight)
	}
	return nil
}
