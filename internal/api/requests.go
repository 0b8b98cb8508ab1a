// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/jwhitmore/resonate/internal/models"
	"github.com/jwhitmore/resonate/internal/shuffle"
)

var requestValidator = validator.New()

// PlaybackRequest is the body of POST /api/v1/playback.
type PlaybackRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	SongID int64 `json:"song_id" validate:"required,gt=0"`

	PlayedFully bool `json:"played_fully"`
	Skipped     bool `json:"skipped"`

	// Context is an optional listening-situation label, e.g. "workout".
	Context string `json:"context" validate:"omitempty,max=64"`
}

// SimilarityRequest is the body of PUT /api/v1/similarity. Score updates come
// from an external offline scoring job.
type SimilarityRequest struct {
	SourceSongID int64   `json:"source_song_id" validate:"required,gt=0"`
	TargetSongID int64   `json:"target_song_id" validate:"required,gt=0,nefield=SourceSongID"`
	Score        float64 `json:"score" validate:"min=0,max=1"`
}

// SongRequest is the body of POST /api/v1/songs.
type SongRequest struct {
	Title       string   `json:"title" validate:"required,max=512"`
	Artist      *string  `json:"artist" validate:"omitempty,max=512"`
	Album       *string  `json:"album" validate:"omitempty,max=512"`
	Genre       *string  `json:"genre" validate:"omitempty,max=128"`
	Year        *int     `json:"year" validate:"omitempty,min=1000,max=3000"`
	DurationSec *int     `json:"duration_sec" validate:"omitempty,gt=0"`
	Energy      *float64 `json:"energy" validate:"omitempty,min=0,max=1"`
	Tempo       *float64 `json:"tempo" validate:"omitempty,gt=0"`
}

// ToSong converts the request body into a catalog model.
func (sr *SongRequest) ToSong() *models.Song {
	return &models.Song{
		Title:       sr.Title,
		Artist:      sr.Artist,
		Album:       sr.Album,
		Genre:       sr.Genre,
		Year:        sr.Year,
		DurationSec: sr.DurationSec,
		Energy:      sr.Energy,
		Tempo:       sr.Tempo,
	}
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. Validation failures are written to the client; the caller
// stops when ok is false.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, dst any) (ok bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return false
	}
	if err := requestValidator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
			rw.ValidationError("Request validation failed", details)
			return false
		}
		rw.BadRequest("Request validation failed")
		return false
	}
	return true
}

// shuffleQuery holds the parsed query parameters of GET /api/v1/shuffle.
type shuffleQuery struct {
	UserID int64
	Limit  int
	Genre  string
	Artist string
	Policy shuffle.Policy
}

// parseShuffleQuery parses and bounds the shuffle query parameters. Policy
// flags default to off; any value other than "true" leaves a flag off.
func parseShuffleQuery(r *http.Request, maxLimit int) (*shuffleQuery, error) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return nil, errors.New("user_id must be a positive integer")
	}

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, errors.New("limit must be a positive integer")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	boolParam := func(name string) bool {
		return q.Get(name) == "true"
	}

	return &shuffleQuery{
		UserID: userID,
		Limit:  limit,
		Genre:  q.Get("genre"),
		Artist: q.Get("artist"),
		Policy: shuffle.Policy{
			UseSmart:          boolParam("smart"),
			PreferHighlyRated: boolParam("prefer_highly_rated"),
			ExploreSimilar:    boolParam("explore_similar"),
			ExploreNew:        boolParam("explore_new"),
			RespectTimeOfDay:  boolParam("respect_time_of_day"),
		},
	}, nil
}

// parsePathID parses a positive int64 path parameter.
func parsePathID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("identifier must be a positive integer")
	}
	return id, nil
}
