// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwhitmore/resonate/internal/metrics"
	"github.com/jwhitmore/resonate/internal/models"
)

// InsertSong adds a song to the catalog and returns the stored row with its
// assigned identifier. When song.ID is nonzero the identifier is kept.
func (db *DB) InsertSong(ctx context.Context, song *models.Song) (*models.Song, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("insert", "songs", start)

	var row *sql.Row
	if song.ID != 0 {
		row = db.conn.QueryRowContext(ctx, `
			INSERT INTO songs (id, title, artist, album, genre, year, duration_sec, energy, tempo)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id, created_at`,
			song.ID, song.Title, song.Artist, song.Album, song.Genre,
			song.Year, song.DurationSec, song.Energy, song.Tempo)
	} else {
		row = db.conn.QueryRowContext(ctx, `
			INSERT INTO songs (title, artist, album, genre, year, duration_sec, energy, tempo)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id, created_at`,
			song.Title, song.Artist, song.Album, song.Genre,
			song.Year, song.DurationSec, song.Energy, song.Tempo)
	}

	stored := *song
	if err := row.Scan(&stored.ID, &stored.CreatedAt); err != nil {
		metrics.DBQueryErrors.WithLabelValues("insert", "songs").Inc()
		return nil, fmt.Errorf("insert song: %w", err)
	}
	return &stored, nil
}

// GetSong implements shuffle.Catalog. Returns (nil, nil) for unknown IDs.
func (db *DB) GetSong(ctx context.Context, id int64) (*models.Song, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "songs", start)

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, artist, album, genre, year, duration_sec, energy, tempo, last_played_at, created_at
		FROM songs WHERE id = ?`, id)

	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "songs").Inc()
		return nil, fmt.Errorf("get song %d: %w", id, err)
	}
	return song, nil
}

// ListSongs implements shuffle.Catalog.
func (db *DB) ListSongs(ctx context.Context, filter models.SongFilter) ([]models.Song, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "songs", start)

	var conditions []string
	var args []any
	if filter.Genre != "" {
		conditions = append(conditions, "genre = ?")
		args = append(args, filter.Genre)
	}
	if filter.Artist != "" {
		conditions = append(conditions, "artist = ?")
		args = append(args, filter.Artist)
	}

	query := `SELECT id, title, artist, album, genre, year, duration_sec, energy, tempo, last_played_at, created_at FROM songs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "songs").Inc()
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer closeWithLog(rows, "songs rows")

	songs := make([]models.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, *song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// TouchLastPlayed implements shuffle.Catalog.
func (db *DB) TouchLastPlayed(ctx context.Context, songID int64, at time.Time) error {
	start := time.Now()
	defer metrics.ObserveDBQuery("update", "songs", start)

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE songs SET last_played_at = ? WHERE id = ?`, at, songID); err != nil {
		metrics.DBQueryErrors.WithLabelValues("update", "songs").Inc()
		return fmt.Errorf("touch last played for song %d: %w", songID, err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*models.Song, error) {
	var song models.Song
	var artist, album, genre sql.NullString
	var year, duration sql.NullInt64
	var energy, tempo sql.NullFloat64
	var lastPlayed sql.NullTime

	if err := row.Scan(&song.ID, &song.Title, &artist, &album, &genre,
		&year, &duration, &energy, &tempo, &lastPlayed, &song.CreatedAt); err != nil {
		return nil, err
	}

	if artist.Valid {
		song.Artist = &artist.String
	}
	if album.Valid {
		song.Album = &album.String
	}
	if genre.Valid {
		song.Genre = &genre.String
	}
	if year.Valid {
		y := int(year.Int64)
		song.Year = &y
	}
	if duration.Valid {
		d := int(duration.Int64)
		song.DurationSec = &d
	}
	if energy.Valid {
		song.Energy = &energy.Float64
	}
	if tempo.Valid {
		song.Tempo = &tempo.Float64
	}
	if lastPlayed.Valid {
		t := lastPlayed.Time
		song.LastPlayedAt = &t
	}
	return &song, nil
}
