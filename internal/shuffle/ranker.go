// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package shuffle

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwhitmore/resonate/internal/models"
)

// Ranker computes ranked song selections from a candidate pool. It only reads
// the preference, profile and similarity stores; concurrent Recommend calls
// never conflict and a call may be abandoned at any point with no side
// effects.
type Ranker struct {
	prefs        PreferenceStore
	profiles     ProfileStore
	similarities SimilarityIndex
	events       EventLog
	cfg          *Config
	logger       zerolog.Logger

	// rng is shared across calls; rngMu serializes draws.
	rng   *rand.Rand
	rngMu sync.Mutex

	// now is replaceable in tests.
	now func() time.Time
}

// NewRanker creates a ranker over the given read sources. similarities may be
// nil when no similarity index is available; it is only consulted when
// cfg.UseSimilarityIndex is set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRanker(prefs PreferenceStore, profiles ProfileStore, similarities SimilarityIndex, events EventLog, cfg *Config, logger zerolog.Logger) (*Ranker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ranker config: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Ranker{
		prefs:        prefs,
		profiles:     profiles,
		similarities: similarities,
		events:       events,
		cfg:          cfg,
		logger:       logger.With().Str("component", "ranker").Logger(),
		rng:          rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for shuffle scoring
		now:          time.Now,
	}, nil
}

// scoredSong pairs a candidate with its running score.
type scoredSong struct {
	song  models.Song
	score float64
}

// Recommend returns at most limit songs from candidatePool, best first, with
// no duplicates. An empty pool yields an empty result, not an error; missing
// profiles and preference records contribute zero to scores.
//
// Every candidate's score starts from a uniform draw in [0,1), so repeated
// calls with identical inputs produce varied orderings. That non-determinism
// is intended.
func (r *Ranker) Recommend(ctx context.Context, userID int64, policy Policy, candidatePool []models.Song, limit int) ([]models.Song, error) {
	start := r.now()

	if limit <= 0 || len(candidatePool) == 0 {
		return []models.Song{}, nil
	}

	candidates := dedupeByID(candidatePool)

	// The novelty constraint applies before scoring in both modes, so limit
	// truncation never counts excluded songs, and excluded songs are never
	// brought back to pad a short result.
	if policy.ExploreNew {
		var err error
		candidates, err = r.excludeRecent(ctx, userID, candidates)
		if err != nil {
			return nil, err
		}
	}

	var result []models.Song
	var err error
	if policy.UseSmart {
		result, err = r.rankSmart(ctx, userID, policy, candidates, limit)
	} else {
		result = r.shuffleBaseline(candidates, limit)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Int64("user_id", userID).
		Bool("smart", policy.UseSmart).
		Int("pool", len(candidatePool)).
		Int("eligible", len(candidates)).
		Int("returned", len(result)).
		Dur("elapsed", r.now().Sub(start)).
		Msg("recommendation complete")

	return result, nil
}

// excludeRecent drops candidates with any playback event for the user inside
// the recency window.
func (r *Ranker) excludeRecent(ctx context.Context, userID int64, candidates []models.Song) ([]models.Song, error) {
	since := r.now().Add(-r.cfg.RecentWindow)
	recent, err := r.events.RecentSongIDs(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch recent plays: %w", err)
	}
	if len(recent) == 0 {
		return candidates, nil
	}

	kept := candidates[:0]
	for _, song := range candidates {
		if _, played := recent[song.ID]; !played {
			kept = append(kept, song)
		}
	}
	return kept, nil
}

// shuffleBaseline returns a uniform random permutation truncated to limit.
func (r *Ranker) shuffleBaseline(candidates []models.Song, limit int) []models.Song {
	shuffled := make([]models.Song, len(candidates))
	copy(shuffled, candidates)

	r.rngMu.Lock()
	r.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	r.rngMu.Unlock()

	if limit < len(shuffled) {
		shuffled = shuffled[:limit]
	}
	return shuffled
}

// rankSmart scores each candidate additively and returns the top limit songs.
func (r *Ranker) rankSmart(ctx context.Context, userID int64, policy Policy, candidates []models.Song, limit int) ([]models.Song, error) {
	profile, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch listening profile: %w", err)
	}
	// A missing profile behaves as all-empty histograms.
	if profile == nil {
		profile = models.NewUserListeningProfile(userID)
	}

	favoriteArtists := favoritesAbove(profile.ArtistPreferences, favoriteThreshold)
	favoriteGenres := favoritesAbove(profile.GenrePreferences, favoriteThreshold)
	hourPref := profile.TimeOfDay.Count(r.now().Hour())

	var anchors []*models.UserSongPreference
	if policy.ExploreSimilar && r.cfg.UseSimilarityIndex && r.similarities != nil {
		anchors, err = r.positiveAnchors(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	scored := make([]scoredSong, 0, len(candidates))
	for _, song := range candidates {
		score := r.randomBase()

		if policy.PreferHighlyRated {
			pref, err := r.prefs.GetPreference(ctx, userID, song.ID)
			if err != nil {
				return nil, fmt.Errorf("fetch preference for song %d: %w", song.ID, err)
			}
			if pref != nil {
				score += pref.PreferenceScore * preferenceWeight
			}
		}

		if policy.ExploreSimilar {
			if song.Artist != nil && favoriteArtists[*song.Artist] {
				score += favoriteArtistBonus
			}
			if song.Genre != nil && favoriteGenres[*song.Genre] {
				score += favoriteGenreBonus
			}
			if len(anchors) > 0 {
				bonus, err := r.similarityBonus(ctx, song.ID, anchors)
				if err != nil {
					return nil, err
				}
				score += bonus
			}
		}

		if policy.RespectTimeOfDay && hourPref > hourPreferenceThreshold {
			if song.Genre != nil && profile.GenrePreferences.Count(*song.Genre) > 0 {
				score += timeOfDayBonus
			}
		}

		scored = append(scored, scoredSong{song: song, score: score})
	}

	// Descending by score; the random base already broke feature-score ties,
	// so no secondary deterministic tie-break is needed.
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if limit > len(scored) {
		limit = len(scored)
	}
	result := make([]models.Song, 0, limit)
	for _, s := range scored[:limit] {
		result = append(result, s.song)
	}
	return result, nil
}

// positiveAnchors returns the user's top positively-scored preferences for
// the pairwise similarity bonus.
func (r *Ranker) positiveAnchors(ctx context.Context, userID int64) ([]*models.UserSongPreference, error) {
	top, err := r.prefs.TopPreferences(ctx, userID, r.cfg.SimilarityAnchors)
	if err != nil {
		return nil, fmt.Errorf("fetch anchor preferences: %w", err)
	}
	anchors := top[:0]
	for _, pref := range top {
		if pref.PreferenceScore > 0 {
			anchors = append(anchors, pref)
		}
	}
	return anchors, nil
}

// similarityBonus returns the scaled maximum pairwise similarity between the
// candidate and any anchor song. Absent index entries contribute zero.
func (r *Ranker) similarityBonus(ctx context.Context, songID int64, anchors []*models.UserSongPreference) (float64, error) {
	var best float64
	for _, anchor := range anchors {
		if anchor.SongID == songID {
			continue
		}
		sim, err := r.similarities.GetSimilarity(ctx, anchor.SongID, songID)
		if err != nil {
			return 0, fmt.Errorf("fetch similarity (%d, %d): %w", anchor.SongID, songID, err)
		}
		if sim != nil && sim.Score > best {
			best = sim.Score
		}
	}
	return best * r.cfg.SimilarityWeight, nil
}

// randomBase draws the per-candidate uniform [0,1) score base.
func (r *Ranker) randomBase() float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64()
}

// favoritesAbove returns the histogram keys whose count exceeds threshold.
func favoritesAbove(h models.Histogram, threshold int) map[string]bool {
	favorites := make(map[string]bool)
	for key, count := range h {
		if count > threshold {
			favorites[key] = true
		}
	}
	return favorites
}

// dedupeByID drops later duplicates so the output can never repeat a song.
func dedupeByID(pool []models.Song) []models.Song {
	seen := make(map[int64]struct{}, len(pool))
	unique := make([]models.Song, 0, len(pool))
	for _, song := range pool {
		if _, dup := seen[song.ID]; dup {
			continue
		}
		seen[song.ID] = struct{}{}
		unique = append(unique, song)
	}
	return unique
}
