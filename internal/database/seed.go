// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwhitmore/resonate/internal/models"
)

// SeedCatalog inserts a small demo catalog when the songs table is empty.
// Intended for development and first-run evaluation; a no-op on a populated
// database.
func (db *DB) SeedCatalog(ctx context.Context, logger zerolog.Logger) error {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM songs`).Scan(&count); err != nil {
		return fmt.Errorf("count songs: %w", err)
	}
	if count > 0 {
		logger.Debug().Int("songs", count).Msg("Catalog already populated, skipping seed")
		return nil
	}

	for _, song := range seedSongs() {
		if _, err := db.InsertSong(ctx, song); err != nil {
			return fmt.Errorf("seed song %q: %w", song.Title, err)
		}
	}
	logger.Info().Int("songs", len(seedSongs())).Msg("Seeded demo catalog")
	return nil
}

func seedSongs() []*models.Song {
	str := func(s string) *string { return &s }
	i := func(v int) *int { return &v }
	f := func(v float64) *float64 { return &v }

	return []*models.Song{
		{Title: "Midnight Static", Artist: str("Glass Arcade"), Album: str("Neon Ledger"), Genre: str("synthwave"), Year: i(2021), DurationSec: i(243), Energy: f(0.81), Tempo: f(118)},
		{Title: "Paper Lanterns", Artist: str("Glass Arcade"), Album: str("Neon Ledger"), Genre: str("synthwave"), Year: i(2021), DurationSec: i(198), Energy: f(0.64), Tempo: f(102)},
		{Title: "Cedar and Smoke", Artist: str("Hollow Pines"), Album: str("Northbound"), Genre: str("folk"), Year: i(2019), DurationSec: i(221), Energy: f(0.35), Tempo: f(84)},
		{Title: "River Bed", Artist: str("Hollow Pines"), Album: str("Northbound"), Genre: str("folk"), Year: i(2019), DurationSec: i(256), Energy: f(0.28), Tempo: f(76)},
		{Title: "Overclock", Artist: str("Kernel Panic"), Album: str("Race Condition"), Genre: str("electronic"), Year: i(2023), DurationSec: i(187), Energy: f(0.92), Tempo: f(140)},
		{Title: "Garbage Collector", Artist: str("Kernel Panic"), Album: str("Race Condition"), Genre: str("electronic"), Year: i(2023), DurationSec: i(204), Energy: f(0.88), Tempo: f(132)},
		{Title: "Sunday Almanac", Artist: str("Mara Voss"), Album: str("Field Notes"), Genre: str("jazz"), Year: i(2017), DurationSec: i(312), Energy: f(0.41), Tempo: f(92)},
		{Title: "Low Tide Letters", Artist: str("Mara Voss"), Album: str("Field Notes"), Genre: str("jazz"), Year: i(2017), DurationSec: i(287), Energy: f(0.38), Tempo: f(88)},
		{Title: "Static Bloom", Artist: str("Iron Meridian"), Album: str("Failsafe"), Genre: str("rock"), Year: i(2022), DurationSec: i(233), Energy: f(0.77), Tempo: f(126)},
		{Title: "Counterweight", Artist: str("Iron Meridian"), Album: str("Failsafe"), Genre: str("rock"), Year: i(2022), DurationSec: i(249), Energy: f(0.74), Tempo: f(122)},
	}
}
