// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package shuffle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwhitmore/resonate/internal/models"
)

type prefKey struct {
	userID int64
	songID int64
}

type simKey struct {
	sourceSongID int64
	targetSongID int64
}

// Memory is an in-process implementation of the PreferenceStore, ProfileStore,
// SimilarityIndex, EventLog and Catalog contracts. A single mutex serializes
// all mutations, so every upsert is atomic per key. Used by the core's tests
// and as a storage-free development backend.
type Memory struct {
	mu           sync.RWMutex
	songs        map[int64]models.Song
	songOrder    []int64
	events       []models.PlaybackEvent
	prefs        map[prefKey]*models.UserSongPreference
	profiles     map[int64]*models.UserListeningProfile
	similarities map[simKey]*models.SongSimilarity

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		songs:        make(map[int64]models.Song),
		prefs:        make(map[prefKey]*models.UserSongPreference),
		profiles:     make(map[int64]*models.UserListeningProfile),
		similarities: make(map[simKey]*models.SongSimilarity),
		now:          time.Now,
	}
}

// AddSong inserts or replaces a catalog entry.
func (m *Memory) AddSong(song models.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.songs[song.ID]; !exists {
		m.songOrder = append(m.songOrder, song.ID)
	}
	m.songs[song.ID] = song
}

// GetSong implements Catalog.
func (m *Memory) GetSong(_ context.Context, id int64) (*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	song, ok := m.songs[id]
	if !ok {
		return nil, nil
	}
	return &song, nil
}

// ListSongs implements Catalog. Songs are returned in insertion order.
func (m *Memory) ListSongs(_ context.Context, filter models.SongFilter) ([]models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]models.Song, 0, len(m.songOrder))
	for _, id := range m.songOrder {
		song := m.songs[id]
		if filter.Genre != "" && (song.Genre == nil || *song.Genre != filter.Genre) {
			continue
		}
		if filter.Artist != "" && (song.Artist == nil || *song.Artist != filter.Artist) {
			continue
		}
		matched = append(matched, song)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []models.Song{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// TouchLastPlayed implements Catalog.
func (m *Memory) TouchLastPlayed(_ context.Context, songID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	song, ok := m.songs[songID]
	if !ok {
		return nil
	}
	song.LastPlayedAt = &at
	m.songs[songID] = song
	return nil
}

// AppendEvent implements EventLog.
func (m *Memory) AppendEvent(_ context.Context, event *models.PlaybackEvent) (*models.PlaybackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *event
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.PlayedAt.IsZero() {
		stored.PlayedAt = m.now()
	}
	m.events = append(m.events, stored)
	return &stored, nil
}

// RecentSongIDs implements EventLog.
func (m *Memory) RecentSongIDs(_ context.Context, userID int64, since time.Time) (map[int64]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recent := make(map[int64]struct{})
	for i := range m.events {
		ev := &m.events[i]
		if ev.UserID == userID && ev.PlayedAt.After(since) {
			recent[ev.SongID] = struct{}{}
		}
	}
	return recent, nil
}

// GetPreference implements PreferenceStore.
func (m *Memory) GetPreference(_ context.Context, userID, songID int64) (*models.UserSongPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pref, ok := m.prefs[prefKey{userID, songID}]
	if !ok {
		return nil, nil
	}
	cp := *pref
	return &cp, nil
}

// UpsertOnPlayback implements PreferenceStore. The whole read-modify-write
// runs under the store lock, so concurrent events for the same pair cannot
// lose an update.
func (m *Memory) UpsertOnPlayback(_ context.Context, userID, songID int64, playedFully, skipped bool) (*models.UserSongPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := prefKey{userID, songID}
	pref, ok := m.prefs[key]
	if !ok {
		pref = &models.UserSongPreference{UserID: userID, SongID: songID}
		m.prefs[key] = pref
	}

	if playedFully {
		pref.PlayCount++
	}
	if skipped {
		pref.SkipCount++
	}
	// Recomputed from counts, never drifted.
	pref.PreferenceScore = models.PreferenceScoreFromCounts(pref.PlayCount, pref.SkipCount)
	if playedFully && !skipped {
		at := now
		pref.LastPlayedAt = &at
	}
	pref.UpdatedAt = now

	cp := *pref
	return &cp, nil
}

// TopPreferences implements PreferenceStore.
func (m *Memory) TopPreferences(_ context.Context, userID int64, limit int) ([]*models.UserSongPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var prefs []*models.UserSongPreference
	for key, pref := range m.prefs {
		if key.userID == userID {
			cp := *pref
			prefs = append(prefs, &cp)
		}
	}
	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].PreferenceScore != prefs[j].PreferenceScore {
			return prefs[i].PreferenceScore > prefs[j].PreferenceScore
		}
		return prefs[i].SongID < prefs[j].SongID
	})
	if limit > 0 && limit < len(prefs) {
		prefs = prefs[:limit]
	}
	return prefs, nil
}

// GetProfile implements ProfileStore.
func (m *Memory) GetProfile(_ context.Context, userID int64) (*models.UserListeningProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return copyProfile(profile), nil
}

// RecordFullPlay implements ProfileStore. The fetch-or-create and the
// histogram increments run under the store lock, so concurrent full plays for
// the same user cannot lose increments.
func (m *Memory) RecordFullPlay(_ context.Context, userID int64, song *models.Song, playContext string, at time.Time) (*models.UserListeningProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok {
		profile = models.NewUserListeningProfile(userID)
		m.profiles[userID] = profile
	}
	profile.RecordFullPlay(song, playContext, at)
	return copyProfile(profile), nil
}

// GetSimilarity implements SimilarityIndex.
func (m *Memory) GetSimilarity(_ context.Context, sourceSongID, targetSongID int64) (*models.SongSimilarity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sim, ok := m.similarities[simKey{sourceSongID, targetSongID}]
	if !ok {
		return nil, nil
	}
	cp := *sim
	return &cp, nil
}

// UpsertSimilarity implements SimilarityIndex.
func (m *Memory) UpsertSimilarity(_ context.Context, sourceSongID, targetSongID int64, score float64) (*models.SongSimilarity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sim := &models.SongSimilarity{
		SourceSongID: sourceSongID,
		TargetSongID: targetSongID,
		Score:        score,
		UpdatedAt:    m.now(),
	}
	m.similarities[simKey{sourceSongID, targetSongID}] = sim
	cp := *sim
	return &cp, nil
}

// copyProfile returns a deep copy so callers never share the stored maps.
func copyProfile(p *models.UserListeningProfile) *models.UserListeningProfile {
	cp := &models.UserListeningProfile{
		UserID:            p.UserID,
		TimeOfDay:         make(models.IntHistogram, len(p.TimeOfDay)),
		DayOfWeek:         make(models.IntHistogram, len(p.DayOfWeek)),
		GenrePreferences:  make(models.Histogram, len(p.GenrePreferences)),
		ArtistPreferences: make(models.Histogram, len(p.ArtistPreferences)),
		Contexts:          make(models.Histogram, len(p.Contexts)),
		Features:          p.Features,
		UpdatedAt:         p.UpdatedAt,
	}
	for k, v := range p.TimeOfDay {
		cp.TimeOfDay[k] = v
	}
	for k, v := range p.DayOfWeek {
		cp.DayOfWeek[k] = v
	}
	for k, v := range p.GenrePreferences {
		cp.GenrePreferences[k] = v
	}
	for k, v := range p.ArtistPreferences {
		cp.ArtistPreferences[k] = v
	}
	for k, v := range p.Contexts {
		cp.Contexts[k] = v
	}
	return cp
}
