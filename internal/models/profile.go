// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package models

import "time"

// Histogram is a frequency map over dynamic string keys (genres, artists,
// contexts) with default-zero lookup semantics: a missing key counts as zero,
// never as an error. Counters only ever increase; this model has no decay.
type Histogram map[string]int

// Inc increments the counter for key by one.
func (h Histogram) Inc(key string) {
	h[key]++
}

// Count returns the counter for key, zero when absent.
func (h Histogram) Count(key string) int {
	return h[key]
}

// IntHistogram is a frequency map over small integer keys (hour of day, day of
// week) with the same default-zero semantics as Histogram.
type IntHistogram map[int]int

// Inc increments the counter for key by one.
func (h IntHistogram) Inc(key int) {
	h[key]++
}

// Count returns the counter for key, zero when absent.
func (h IntHistogram) Count(key int) int {
	return h[key]
}

// FeatureAccumulators holds running sums and counts for numeric song features,
// allowing mean computation without storing raw history.
type FeatureAccumulators struct {
	EnergySum   float64 `json:"energy_sum"`
	EnergyCount int     `json:"energy_count"`
	TempoSum    float64 `json:"tempo_sum"`
	TempoCount  int     `json:"tempo_count"`
}

// MeanEnergy returns the mean accumulated energy. ok is false when no energy
// values have been observed.
func (f FeatureAccumulators) MeanEnergy() (mean float64, ok bool) {
	if f.EnergyCount == 0 {
		return 0, false
	}
	return f.EnergySum / float64(f.EnergyCount), true
}

// MeanTempo returns the mean accumulated tempo. ok is false when no tempo
// values have been observed.
func (f FeatureAccumulators) MeanTempo() (mean float64, ok bool) {
	if f.TempoCount == 0 {
		return 0, false
	}
	return f.TempoSum / float64(f.TempoCount), true
}

// UserListeningProfile aggregates one user's listening behavior: when they
// listen, what they listen to, and in which contexts. It is built exclusively
// from fully-played, non-skipped events; skips and partial plays never reach
// it. Created lazily on the user's first full play.
type UserListeningProfile struct {
	UserID int64 `json:"user_id"`

	// TimeOfDay counts full plays per hour (0-23).
	TimeOfDay IntHistogram `json:"time_of_day"`

	// DayOfWeek counts full plays per weekday (0=Sunday, 6=Saturday).
	DayOfWeek IntHistogram `json:"day_of_week"`

	GenrePreferences  Histogram `json:"genre_preferences"`
	ArtistPreferences Histogram `json:"artist_preferences"`
	Contexts          Histogram `json:"contexts"`

	Features FeatureAccumulators `json:"features"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserListeningProfile returns an empty profile with initialized maps.
func NewUserListeningProfile(userID int64) *UserListeningProfile {
	return &UserListeningProfile{
		UserID:            userID,
		TimeOfDay:         make(IntHistogram),
		DayOfWeek:         make(IntHistogram),
		GenrePreferences:  make(Histogram),
		ArtistPreferences: make(Histogram),
		Contexts:          make(Histogram),
	}
}

// RecordFullPlay folds one fully-played, non-skipped event into the profile.
// The caller is responsible for the full-play guard and for serializing
// concurrent calls for the same user.
func (p *UserListeningProfile) RecordFullPlay(song *Song, context string, at time.Time) {
	p.TimeOfDay.Inc(at.Hour())
	p.DayOfWeek.Inc(int(at.Weekday()))

	if song.Genre != nil && *song.Genre != "" {
		p.GenrePreferences.Inc(*song.Genre)
	}
	if song.Artist != nil && *song.Artist != "" {
		p.ArtistPreferences.Inc(*song.Artist)
	}
	if song.Energy != nil {
		p.Features.EnergySum += *song.Energy
		p.Features.EnergyCount++
	}
	if song.Tempo != nil {
		p.Features.TempoSum += *song.Tempo
		p.Features.TempoCount++
	}
	if context != "" {
		p.Contexts.Inc(context)
	}

	p.UpdatedAt = at
}
