// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package shuffle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwhitmore/resonate/internal/models"
)

// failingEventLog rejects every append, simulating an unavailable store.
type failingEventLog struct {
	err error
}

func (f *failingEventLog) AppendEvent(context.Context, *models.PlaybackEvent) (*models.PlaybackEvent, error) {
	return nil, f.err
}

func (f *failingEventLog) RecentSongIDs(context.Context, int64, time.Time) (map[int64]struct{}, error) {
	return nil, f.err
}

// failingProfileStore fails RecordFullPlay while reads keep working.
type failingProfileStore struct {
	err error
}

func (f *failingProfileStore) GetProfile(context.Context, int64) (*models.UserListeningProfile, error) {
	return nil, nil
}

func (f *failingProfileStore) RecordFullPlay(context.Context, int64, *models.Song, string, time.Time) (*models.UserListeningProfile, error) {
	return nil, f.err
}

func testAggregator(m *Memory) *Aggregator {
	return NewAggregator(m, m, m, m, zerolog.Nop())
}

func seedSong(m *Memory) {
	m.AddSong(models.Song{
		ID:     10,
		Title:  "Test Track",
		Artist: strPtr("The Examples"),
		Genre:  strPtr("rock"),
		Energy: f64Ptr(0.7),
		Tempo:  f64Ptr(120),
	})
}

func TestRecordPlaybackFullPlayUpdatesEverything(t *testing.T) {
	m := NewMemory()
	seedSong(m)
	fixed := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC) // Wednesday 09:00
	agg := testAggregator(m)
	agg.now = func() time.Time { return fixed }
	ctx := context.Background()

	event, err := agg.RecordPlayback(ctx, 1, 10, true, false, "workout")
	if err != nil {
		t.Fatalf("RecordPlayback: %v", err)
	}
	if !event.PlayedFully || event.Skipped {
		t.Errorf("event flags = (%v, %v), want (true, false)", event.PlayedFully, event.Skipped)
	}
	if !event.PlayedAt.Equal(fixed) {
		t.Errorf("PlayedAt = %v, want %v", event.PlayedAt, fixed)
	}

	pref, err := m.GetPreference(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if pref.PlayCount != 1 || pref.SkipCount != 0 || pref.PreferenceScore != 1 {
		t.Errorf("preference = %+v, want playCount 1, skipCount 0, score 1", pref)
	}

	profile, err := m.GetProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile == nil {
		t.Fatal("profile should be created on first full play")
	}
	if profile.TimeOfDay.Count(9) != 1 {
		t.Errorf("TimeOfDay[9] = %d, want 1", profile.TimeOfDay.Count(9))
	}
	if profile.DayOfWeek.Count(3) != 1 {
		t.Errorf("DayOfWeek[3] = %d, want 1", profile.DayOfWeek.Count(3))
	}
	if profile.GenrePreferences.Count("rock") != 1 {
		t.Errorf("GenrePreferences[rock] = %d, want 1", profile.GenrePreferences.Count("rock"))
	}
	if profile.ArtistPreferences.Count("The Examples") != 1 {
		t.Errorf("ArtistPreferences = %v, want 1 for The Examples", profile.ArtistPreferences)
	}
	if profile.Contexts.Count("workout") != 1 {
		t.Errorf("Contexts[workout] = %d, want 1", profile.Contexts.Count("workout"))
	}
	if profile.Features.EnergyCount != 1 || profile.Features.TempoCount != 1 {
		t.Errorf("feature accumulators = %+v, want one sample each", profile.Features)
	}

	song, err := m.GetSong(ctx, 10)
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if song.LastPlayedAt == nil || !song.LastPlayedAt.Equal(fixed) {
		t.Errorf("catalog LastPlayedAt = %v, want %v", song.LastPlayedAt, fixed)
	}
}

func TestRecordPlaybackSkipNeverTouchesProfile(t *testing.T) {
	tests := []struct {
		name        string
		playedFully bool
		skipped     bool
	}{
		{"skip", false, true},
		{"partial play", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			seedSong(m)
			agg := testAggregator(m)
			ctx := context.Background()

			if _, err := agg.RecordPlayback(ctx, 1, 10, tt.playedFully, tt.skipped, "commute"); err != nil {
				t.Fatalf("RecordPlayback: %v", err)
			}

			profile, err := m.GetProfile(ctx, 1)
			if err != nil {
				t.Fatalf("GetProfile: %v", err)
			}
			if profile != nil {
				t.Errorf("profile must not be created by a %s event: %+v", tt.name, profile)
			}

			// The preference store still sees the event.
			pref, err := m.GetPreference(ctx, 1, 10)
			if err != nil {
				t.Fatalf("GetPreference: %v", err)
			}
			if pref == nil {
				t.Fatal("preference record should be created")
			}
		})
	}
}

func TestRecordPlaybackSkipWinsOverPlayedFully(t *testing.T) {
	m := NewMemory()
	seedSong(m)
	agg := testAggregator(m)
	ctx := context.Background()

	// Contradictory flags: the skip wins and the play counter stays put.
	event, err := agg.RecordPlayback(ctx, 1, 10, true, true, "")
	if err != nil {
		t.Fatalf("RecordPlayback: %v", err)
	}
	if event.PlayedFully {
		t.Error("PlayedFully should be cleared when skipped is set")
	}

	pref, err := m.GetPreference(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if pref.PlayCount != 0 || pref.SkipCount != 1 {
		t.Errorf("counts = (%d, %d), want (0, 1)", pref.PlayCount, pref.SkipCount)
	}
	if profile, _ := m.GetProfile(ctx, 1); profile != nil {
		t.Error("profile must not be touched when the skip wins")
	}
}

func TestRecordPlaybackCountsAreMonotonic(t *testing.T) {
	m := NewMemory()
	seedSong(m)
	agg := testAggregator(m)
	ctx := context.Background()

	events := []struct{ playedFully, skipped bool }{
		{true, false}, {false, true}, {true, false}, {false, false}, {true, false},
	}

	prevPlay, prevSkip := 0, 0
	relevant := 0
	for i, ev := range events {
		if _, err := agg.RecordPlayback(ctx, 1, 10, ev.playedFully, ev.skipped, ""); err != nil {
			t.Fatalf("RecordPlayback #%d: %v", i, err)
		}
		pref, err := m.GetPreference(ctx, 1, 10)
		if err != nil {
			t.Fatalf("GetPreference: %v", err)
		}
		if pref.PlayCount < prevPlay || pref.SkipCount < prevSkip {
			t.Fatalf("counts regressed at event %d: (%d, %d) after (%d, %d)",
				i, pref.PlayCount, pref.SkipCount, prevPlay, prevSkip)
		}
		prevPlay, prevSkip = pref.PlayCount, pref.SkipCount
		if ev.playedFully || ev.skipped {
			relevant++
		}
	}
	if prevPlay+prevSkip != relevant {
		t.Errorf("playCount+skipCount = %d, want %d relevant events", prevPlay+prevSkip, relevant)
	}
}

func TestRecordPlaybackEventLogFailureIsFatal(t *testing.T) {
	m := NewMemory()
	seedSong(m)
	storeErr := errors.New("event log unavailable")
	agg := NewAggregator(&failingEventLog{err: storeErr}, m, m, m, zerolog.Nop())
	ctx := context.Background()

	if _, err := agg.RecordPlayback(ctx, 1, 10, true, false, ""); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}

	// Step 1 failed, so step 2 must not have run.
	if pref, _ := m.GetPreference(ctx, 1, 10); pref != nil {
		t.Errorf("preference should be untouched after event log failure: %+v", pref)
	}
}

func TestRecordPlaybackProfileFailureRetainsPreference(t *testing.T) {
	m := NewMemory()
	seedSong(m)
	storeErr := errors.New("profile store unavailable")
	agg := NewAggregator(m, m, &failingProfileStore{err: storeErr}, m, zerolog.Nop())
	ctx := context.Background()

	if _, err := agg.RecordPlayback(ctx, 1, 10, true, false, ""); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}

	// Step 2 succeeded before step 3 failed; the preference update stays.
	pref, err := m.GetPreference(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if pref == nil || pref.PlayCount != 1 {
		t.Errorf("preference update should be retained, got %+v", pref)
	}
}

func TestRecordPlaybackUnknownSongSkipsProfile(t *testing.T) {
	m := NewMemory() // no songs in the catalog
	agg := testAggregator(m)
	ctx := context.Background()

	if _, err := agg.RecordPlayback(ctx, 1, 999, true, false, ""); err != nil {
		t.Fatalf("RecordPlayback should tolerate a missing song: %v", err)
	}

	pref, err := m.GetPreference(ctx, 1, 999)
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if pref == nil || pref.PlayCount != 1 {
		t.Errorf("preference still records the play, got %+v", pref)
	}
	if profile, _ := m.GetProfile(ctx, 1); profile != nil {
		t.Error("profile must not be created when the song is unknown")
	}
}
