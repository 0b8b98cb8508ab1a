// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package shuffle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwhitmore/resonate/internal/models"
)

// Aggregator consumes playback events and maintains the preference and
// listening-profile aggregates. It is the sole writer of both; the ranker
// only reads them.
type Aggregator struct {
	events   EventLog
	prefs    PreferenceStore
	profiles ProfileStore
	catalog  Catalog
	logger   zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewAggregator wires the aggregator to its stores.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAggregator(events EventLog, prefs PreferenceStore, profiles ProfileStore, catalog Catalog, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		events:   events,
		prefs:    prefs,
		profiles: profiles,
		catalog:  catalog,
		logger:   logger.With().Str("component", "aggregator").Logger(),
		now:      time.Now,
	}
}

// RecordPlayback processes one playback decision for (userID, songID):
//
//  1. Appends the event to the durable log.
//  2. Upserts the per-(user, song) preference aggregate.
//  3. Iff the song was fully played and not skipped, folds the play into the
//     user's listening profile and touches the catalog's last-played stamp.
//
// Skips and partial plays stop after step 2: exploratory and negative signals
// refine per-song preference but never pollute the aggregate taste profile.
//
// A skip implies the song was not fully played; when both flags arrive set,
// the skip wins and playedFully is cleared.
//
// If step 3 fails after step 2 succeeded, the preference update is retained.
// Profile staleness is tolerated, and re-running the whole call is safe
// because the preference score is recomputed from counts rather than drifted.
func (a *Aggregator) RecordPlayback(ctx context.Context, userID, songID int64, playedFully, skipped bool, playContext string) (*models.PlaybackEvent, error) {
	if skipped {
		playedFully = false
	}
	now := a.now()

	event, err := a.events.AppendEvent(ctx, &models.PlaybackEvent{
		UserID:      userID,
		SongID:      songID,
		PlayedAt:    now,
		PlayedFully: playedFully,
		Skipped:     skipped,
		Context:     playContext,
	})
	if err != nil {
		return nil, fmt.Errorf("append playback event: %w", err)
	}

	if _, err := a.prefs.UpsertOnPlayback(ctx, userID, songID, playedFully, skipped); err != nil {
		return nil, fmt.Errorf("upsert preference: %w", err)
	}

	if playedFully && !skipped {
		if err := a.updateProfile(ctx, userID, songID, playContext, now); err != nil {
			return nil, err
		}
	}

	a.logger.Debug().
		Int64("user_id", userID).
		Int64("song_id", songID).
		Bool("played_fully", playedFully).
		Bool("skipped", skipped).
		Msg("playback recorded")

	return event, nil
}

// updateProfile performs step 3: resolve the song, fold the play into the
// profile, and touch the catalog's last-played stamp.
func (a *Aggregator) updateProfile(ctx context.Context, userID, songID int64, playContext string, at time.Time) error {
	song, err := a.catalog.GetSong(ctx, songID)
	if err != nil {
		return fmt.Errorf("fetch song %d: %w", songID, err)
	}
	if song == nil {
		// The song vanished from the catalog between playback and recording.
		// The preference update already happened; there is nothing to fold
		// into the profile.
		a.logger.Warn().
			Int64("user_id", userID).
			Int64("song_id", songID).
			Msg("song missing from catalog, profile not updated")
		return nil
	}

	if _, err := a.profiles.RecordFullPlay(ctx, userID, song, playContext, at); err != nil {
		return fmt.Errorf("update listening profile: %w", err)
	}

	if err := a.catalog.TouchLastPlayed(ctx, songID, at); err != nil {
		a.logger.Warn().Err(err).
			Int64("song_id", songID).
			Msg("failed to touch catalog last-played stamp")
	}
	return nil
}
