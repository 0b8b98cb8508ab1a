// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwhitmore/resonate/internal/config"
	"github.com/jwhitmore/resonate/internal/models"
)

// testDBSemaphore serializes test database lifecycles. Concurrent DuckDB CGO
// connections from parallel tests can hang under CI resource pressure, so
// only one test holds an open database at a time.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory test database. The semaphore is held for
// the whole test lifecycle and released by t.Cleanup.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
		Threads:   2,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func insertTestSong(t *testing.T, db *DB, title, artist, genre string) *models.Song {
	t.Helper()

	song, err := db.InsertSong(context.Background(), &models.Song{
		Title:  title,
		Artist: &artist,
		Genre:  &genre,
	})
	if err != nil {
		t.Fatalf("Failed to insert song %q: %v", title, err)
	}
	return song
}

func TestNewAndPing(t *testing.T) {
	db := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSongCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	inserted := insertTestSong(t, db, "Midnight Static", "Glass Arcade", "synthwave")
	if inserted.ID == 0 {
		t.Fatal("InsertSong did not assign an ID")
	}

	got, err := db.GetSong(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSong returned nil for existing song")
	}
	if got.Title != "Midnight Static" {
		t.Errorf("Title = %q, want %q", got.Title, "Midnight Static")
	}
	if got.Artist == nil || *got.Artist != "Glass Arcade" {
		t.Errorf("Artist = %v, want Glass Arcade", got.Artist)
	}
	if got.LastPlayedAt != nil {
		t.Error("LastPlayedAt should be nil before any playback")
	}

	missing, err := db.GetSong(ctx, 99999)
	if err != nil {
		t.Fatalf("GetSong for missing ID failed: %v", err)
	}
	if missing != nil {
		t.Error("GetSong should return nil for a missing song")
	}
}

func TestListSongsFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTestSong(t, db, "A", "Glass Arcade", "synthwave")
	insertTestSong(t, db, "B", "Glass Arcade", "synthwave")
	insertTestSong(t, db, "C", "Hollow Pines", "folk")

	all, err := db.ListSongs(ctx, models.SongFilter{})
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListSongs returned %d songs, want 3", len(all))
	}

	folk, err := db.ListSongs(ctx, models.SongFilter{Genre: "folk"})
	if err != nil {
		t.Fatalf("ListSongs with genre filter failed: %v", err)
	}
	if len(folk) != 1 || folk[0].Title != "C" {
		t.Errorf("Genre filter returned %v, want single song C", folk)
	}

	limited, err := db.ListSongs(ctx, models.SongFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListSongs with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Limit 2 offset 1 returned %d songs, want 2", len(limited))
	}
}

func TestTouchLastPlayed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	song := insertTestSong(t, db, "River Bed", "Hollow Pines", "folk")
	at := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	if err := db.TouchLastPlayed(ctx, song.ID, at); err != nil {
		t.Fatalf("TouchLastPlayed failed: %v", err)
	}

	got, err := db.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if got.LastPlayedAt == nil {
		t.Fatal("LastPlayedAt not set after TouchLastPlayed")
	}
	if !got.LastPlayedAt.Equal(at) {
		t.Errorf("LastPlayedAt = %v, want %v", got.LastPlayedAt, at)
	}
}

func TestUpsertOnPlaybackCreatesAndIncrements(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	song := insertTestSong(t, db, "Overclock", "Kernel Panic", "electronic")

	pref, err := db.UpsertOnPlayback(ctx, 1, song.ID, true, false)
	if err != nil {
		t.Fatalf("UpsertOnPlayback failed: %v", err)
	}
	if pref.PlayCount != 1 || pref.SkipCount != 0 {
		t.Errorf("counts = (%d, %d), want (1, 0)", pref.PlayCount, pref.SkipCount)
	}
	if pref.PreferenceScore != 1.0 {
		t.Errorf("PreferenceScore = %v, want 1.0", pref.PreferenceScore)
	}
	if pref.LastPlayedAt == nil {
		t.Error("LastPlayedAt should be set on a full play")
	}

	pref, err = db.UpsertOnPlayback(ctx, 1, song.ID, false, true)
	if err != nil {
		t.Fatalf("UpsertOnPlayback (skip) failed: %v", err)
	}
	if pref.PlayCount != 1 || pref.SkipCount != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", pref.PlayCount, pref.SkipCount)
	}
	if pref.PreferenceScore != 0.5 {
		t.Errorf("PreferenceScore = %v, want 0.5", pref.PreferenceScore)
	}
}

func TestUpsertOnPlaybackSkipKeepsLastPlayed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	song := insertTestSong(t, db, "Counterweight", "Iron Meridian", "rock")

	first, err := db.UpsertOnPlayback(ctx, 1, song.ID, true, false)
	if err != nil {
		t.Fatalf("UpsertOnPlayback failed: %v", err)
	}

	second, err := db.UpsertOnPlayback(ctx, 1, song.ID, false, true)
	if err != nil {
		t.Fatalf("UpsertOnPlayback (skip) failed: %v", err)
	}
	if second.LastPlayedAt == nil {
		t.Fatal("skip erased LastPlayedAt")
	}
	if !second.LastPlayedAt.Equal(*first.LastPlayedAt) {
		t.Errorf("LastPlayedAt changed on skip: %v -> %v", first.LastPlayedAt, second.LastPlayedAt)
	}
}

func TestUpsertOnPlaybackConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	song := insertTestSong(t, db, "Static Bloom", "Iron Meridian", "rock")

	const plays = 20
	errCh := make(chan error, plays)
	for range plays {
		go func() {
			_, err := db.UpsertOnPlayback(ctx, 1, song.ID, true, false)
			errCh <- err
		}()
	}
	for range plays {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent UpsertOnPlayback failed: %v", err)
		}
	}

	pref, err := db.GetPreference(ctx, 1, song.ID)
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if pref.PlayCount != plays {
		t.Errorf("PlayCount = %d after %d concurrent plays, want %d", pref.PlayCount, plays, plays)
	}
	if pref.PreferenceScore != float64(plays) {
		t.Errorf("PreferenceScore = %v, want %v", pref.PreferenceScore, float64(plays))
	}
}

func TestTopPreferencesOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := insertTestSong(t, db, "A", "X", "rock")
	b := insertTestSong(t, db, "B", "X", "rock")
	c := insertTestSong(t, db, "C", "X", "rock")

	for range 3 {
		if _, err := db.UpsertOnPlayback(ctx, 1, b.ID, true, false); err != nil {
			t.Fatalf("UpsertOnPlayback failed: %v", err)
		}
	}
	if _, err := db.UpsertOnPlayback(ctx, 1, a.ID, true, false); err != nil {
		t.Fatalf("UpsertOnPlayback failed: %v", err)
	}
	if _, err := db.UpsertOnPlayback(ctx, 1, c.ID, false, true); err != nil {
		t.Fatalf("UpsertOnPlayback failed: %v", err)
	}

	top, err := db.TopPreferences(ctx, 1, 2)
	if err != nil {
		t.Fatalf("TopPreferences failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("TopPreferences returned %d rows, want 2", len(top))
	}
	if top[0].SongID != b.ID || top[1].SongID != a.ID {
		t.Errorf("TopPreferences order = [%d, %d], want [%d, %d]",
			top[0].SongID, top[1].SongID, b.ID, a.ID)
	}
}

func TestProfileRecordFullPlay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	song := insertTestSong(t, db, "Sunday Almanac", "Mara Voss", "jazz")
	at := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC) // Saturday, hour 21

	none, err := db.GetProfile(ctx, 7)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if none != nil {
		t.Error("GetProfile should return nil for a user with no profile")
	}

	profile, err := db.RecordFullPlay(ctx, 7, song, "evening", at)
	if err != nil {
		t.Fatalf("RecordFullPlay failed: %v", err)
	}
	if profile.TimeOfDay.Count(21) != 1 {
		t.Errorf("TimeOfDay[21] = %d, want 1", profile.TimeOfDay.Count(21))
	}
	if profile.GenrePreferences.Count("jazz") != 1 {
		t.Errorf("GenrePreferences[jazz] = %d, want 1", profile.GenrePreferences.Count("jazz"))
	}
	if profile.ArtistPreferences.Count("Mara Voss") != 1 {
		t.Errorf("ArtistPreferences[Mara Voss] = %d, want 1", profile.ArtistPreferences.Count("Mara Voss"))
	}
	if profile.Contexts.Count("evening") != 1 {
		t.Errorf("Contexts[evening] = %d, want 1", profile.Contexts.Count("evening"))
	}

	// Round-trips through the JSON columns.
	reloaded, err := db.GetProfile(ctx, 7)
	if err != nil {
		t.Fatalf("GetProfile after record failed: %v", err)
	}
	if reloaded == nil {
		t.Fatal("GetProfile returned nil after RecordFullPlay")
	}
	if reloaded.GenrePreferences.Count("jazz") != 1 {
		t.Errorf("reloaded GenrePreferences[jazz] = %d, want 1", reloaded.GenrePreferences.Count("jazz"))
	}
	if reloaded.DayOfWeek.Count(int(at.Weekday())) != 1 {
		t.Errorf("reloaded DayOfWeek[%d] = %d, want 1", int(at.Weekday()), reloaded.DayOfWeek.Count(int(at.Weekday())))
	}

	if _, err := db.RecordFullPlay(ctx, 7, song, "", at.Add(time.Hour)); err != nil {
		t.Fatalf("second RecordFullPlay failed: %v", err)
	}
	reloaded, err = db.GetProfile(ctx, 7)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if reloaded.GenrePreferences.Count("jazz") != 2 {
		t.Errorf("GenrePreferences[jazz] = %d after two plays, want 2", reloaded.GenrePreferences.Count("jazz"))
	}
	if reloaded.Contexts.Count("") != 0 {
		t.Error("empty play context should not be recorded")
	}
}

func TestProfileRecordFullPlayConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	song := insertTestSong(t, db, "Paper Lanterns", "Glass Arcade", "synthwave")
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	const plays = 10
	errCh := make(chan error, plays)
	for range plays {
		go func() {
			_, err := db.RecordFullPlay(ctx, 3, song, "", at)
			errCh <- err
		}()
	}
	for range plays {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent RecordFullPlay failed: %v", err)
		}
	}

	profile, err := db.GetProfile(ctx, 3)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.GenrePreferences.Count("synthwave") != plays {
		t.Errorf("GenrePreferences[synthwave] = %d after %d concurrent plays, want %d",
			profile.GenrePreferences.Count("synthwave"), plays, plays)
	}
}

func TestEventLogAppendAndRecency(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := insertTestSong(t, db, "A", "X", "rock")
	b := insertTestSong(t, db, "B", "X", "rock")

	event, err := db.AppendEvent(ctx, &models.PlaybackEvent{
		UserID:      1,
		SongID:      a.ID,
		PlayedFully: true,
	})
	if err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if event.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("AppendEvent did not assign an event ID")
	}
	if event.PlayedAt.IsZero() {
		t.Error("AppendEvent did not assign PlayedAt")
	}

	old := time.Now().Add(-48 * time.Hour)
	if _, err := db.AppendEvent(ctx, &models.PlaybackEvent{
		UserID:   1,
		SongID:   b.ID,
		Skipped:  true,
		PlayedAt: old,
	}); err != nil {
		t.Fatalf("AppendEvent (old) failed: %v", err)
	}

	recent, err := db.RecentSongIDs(ctx, 1, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("RecentSongIDs failed: %v", err)
	}
	if _, ok := recent[a.ID]; !ok {
		t.Errorf("song %d missing from recent set", a.ID)
	}
	if _, ok := recent[b.ID]; ok {
		t.Errorf("48h-old event for song %d should be outside the 24h window", b.ID)
	}
}

func TestSimilarityUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := insertTestSong(t, db, "A", "X", "rock")
	b := insertTestSong(t, db, "B", "X", "rock")

	none, err := db.GetSimilarity(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("GetSimilarity failed: %v", err)
	}
	if none != nil {
		t.Error("GetSimilarity should return nil for a missing pair")
	}

	sim, err := db.UpsertSimilarity(ctx, a.ID, b.ID, 0.8)
	if err != nil {
		t.Fatalf("UpsertSimilarity failed: %v", err)
	}
	if sim.Score != 0.8 {
		t.Errorf("Score = %v, want 0.8", sim.Score)
	}

	sim, err = db.UpsertSimilarity(ctx, a.ID, b.ID, 0.3)
	if err != nil {
		t.Fatalf("UpsertSimilarity (replace) failed: %v", err)
	}
	if sim.Score != 0.3 {
		t.Errorf("Score after replace = %v, want 0.3", sim.Score)
	}

	got, err := db.GetSimilarity(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("GetSimilarity failed: %v", err)
	}
	if got == nil || got.Score != 0.3 {
		t.Errorf("GetSimilarity = %v, want score 0.3", got)
	}

	// Directional: the reverse pair is a separate entry.
	reverse, err := db.GetSimilarity(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("GetSimilarity (reverse) failed: %v", err)
	}
	if reverse != nil {
		t.Error("reverse pair should have no entry")
	}
}

func TestSeedCatalog(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	logger := zerolog.Nop()
	if err := db.SeedCatalog(ctx, logger); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}

	songs, err := db.ListSongs(ctx, models.SongFilter{})
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(songs) == 0 {
		t.Fatal("SeedCatalog inserted no songs")
	}

	// Idempotent: a second run must not duplicate the catalog.
	if err := db.SeedCatalog(ctx, logger); err != nil {
		t.Fatalf("second SeedCatalog failed: %v", err)
	}
	again, err := db.ListSongs(ctx, models.SongFilter{})
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(again) != len(songs) {
		t.Errorf("second seed changed catalog size from %d to %d", len(songs), len(again))
	}
}
