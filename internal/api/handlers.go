// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jwhitmore/resonate/internal/metrics"
	"github.com/jwhitmore/resonate/internal/models"
	"github.com/jwhitmore/resonate/internal/shuffle"
)

// Pinger reports storage liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the HTTP API. All storage access goes through the shuffle
// store interfaces, so the same handlers run against DuckDB or the in-memory
// store.
type Handler struct {
	catalog      shuffle.Catalog
	prefs        shuffle.PreferenceStore
	profiles     shuffle.ProfileStore
	similarities shuffle.SimilarityIndex

	aggregator *shuffle.Aggregator
	ranker     *shuffle.Ranker

	pinger          Pinger
	maxShuffleLimit int
	logger          zerolog.Logger
}

// HandlerOptions bundles the dependencies of NewHandler.
type HandlerOptions struct {
	Catalog      shuffle.Catalog
	Prefs        shuffle.PreferenceStore
	Profiles     shuffle.ProfileStore
	Similarities shuffle.SimilarityIndex
	Aggregator   *shuffle.Aggregator
	Ranker       *shuffle.Ranker

	// Pinger is optional; when nil the readiness probe only checks that the
	// process is serving.
	Pinger Pinger

	MaxShuffleLimit int

	Logger zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.MaxShuffleLimit <= 0 {
		opts.MaxShuffleLimit = 500
	}
	return &Handler{
		catalog:         opts.Catalog,
		prefs:           opts.Prefs,
		profiles:        opts.Profiles,
		similarities:    opts.Similarities,
		aggregator:      opts.Aggregator,
		ranker:          opts.Ranker,
		pinger:          opts.Pinger,
		maxShuffleLimit: opts.MaxShuffleLimit,
		logger:          opts.Logger.With().Str("component", "api").Logger(),
	}
}

// RecordPlayback handles POST /api/v1/playback. The event feeds the
// preference aggregate and, for full plays, the listening profile.
func (h *Handler) RecordPlayback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req PlaybackRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	song, err := h.catalog.GetSong(r.Context(), req.SongID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if song == nil {
		rw.NotFound("Song not found")
		return
	}

	event, err := h.aggregator.RecordPlayback(r.Context(),
		req.UserID, req.SongID, req.PlayedFully, req.Skipped, req.Context)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	metrics.RecordPlaybackEvent(req.PlayedFully, req.Skipped)
	rw.Created(event)
}

// Shuffle handles GET /api/v1/shuffle. The candidate pool is the catalog,
// optionally narrowed by genre and artist filters, ranked per the policy
// flags in the query.
func (h *Handler) Shuffle(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	query, err := parseShuffleQuery(r, h.maxShuffleLimit)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	pool, err := h.catalog.ListSongs(r.Context(), models.SongFilter{
		Genre:  query.Genre,
		Artist: query.Artist,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	start := time.Now()
	songs, err := h.ranker.Recommend(r.Context(), query.UserID, query.Policy, pool, query.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	metrics.ObserveRecommendation(query.Policy.UseSmart, len(pool), start)

	rw.SuccessWithPagination(songs, &PaginationMeta{
		Count: len(songs),
		Limit: query.Limit,
	})
}

// ListSongs handles GET /api/v1/songs.
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	filter := models.SongFilter{
		Genre:  q.Get("genre"),
		Artist: q.Get("artist"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			rw.BadRequest("limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			rw.BadRequest("offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	songs, err := h.catalog.ListSongs(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithPagination(songs, &PaginationMeta{
		Count:  len(songs),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetSong handles GET /api/v1/songs/{songID}.
func (h *Handler) GetSong(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := parsePathID(chi.URLParam(r, "songID"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	song, err := h.catalog.GetSong(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if song == nil {
		rw.NotFound("Song not found")
		return
	}
	rw.Success(song)
}

// GetProfile handles GET /api/v1/users/{userID}/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := parsePathID(chi.URLParam(r, "userID"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if profile == nil {
		rw.NotFound("User has no listening profile yet")
		return
	}
	rw.Success(profile)
}

// GetPreference handles GET /api/v1/users/{userID}/preferences/{songID}.
func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := parsePathID(chi.URLParam(r, "userID"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	songID, err := parsePathID(chi.URLParam(r, "songID"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	pref, err := h.prefs.GetPreference(r.Context(), userID, songID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if pref == nil {
		rw.NotFound("No recorded interaction for this user and song")
		return
	}
	rw.Success(pref)
}

// CreateSong handles POST /api/v1/songs. The catalog interface only exposes
// reads to the shuffle engine, so inserts go through the optional
// SongInserter.
func (h *Handler) CreateSong(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	inserter, ok := h.catalog.(SongInserter)
	if !ok {
		rw.Error(http.StatusMethodNotAllowed, ErrCodeBadRequest, "Catalog is read-only")
		return
	}

	var req SongRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	song, err := inserter.InsertSong(r.Context(), req.ToSong())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(song)
}

// SongInserter is implemented by catalogs that accept new songs.
type SongInserter interface {
	InsertSong(ctx context.Context, song *models.Song) (*models.Song, error)
}

// UpsertSimilarity handles PUT /api/v1/similarity. Intended for the external
// offline scoring job that maintains the pairwise index.
func (h *Handler) UpsertSimilarity(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SimilarityRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	sim, err := h.similarities.UpsertSimilarity(r.Context(), req.SourceSongID, req.TargetSongID, req.Score)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	metrics.SimilarityUpsertsTotal.Inc()
	rw.Success(sim)
}

// Health handles GET /api/v1/health. It reports overall service health,
// including whether the storage backend answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := map[string]string{"status": "healthy", "storage": "ok"}
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Error().Err(err).Msg("Health check failed")
			status["status"] = "degraded"
			status["storage"] = "unreachable"
			meta := &APIMeta{}
			rw.fillMeta(meta)
			rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
				Success: false,
				Data:    status,
				Meta:    meta,
			})
			return
		}
	}
	rw.Success(status)
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Ready means the storage
// backend answers a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Error().Err(err).Msg("Readiness check failed")
			rw.Error(http.StatusServiceUnavailable, ErrCodeDatabaseError, "Storage not ready")
			return
		}
	}
	rw.Success(map[string]string{"status": "ready"})
}
