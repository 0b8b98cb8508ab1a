// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

// Package main is the entry point for the Resonate server.
//
// Resonate is a self-hosted music catalog with a smart shuffle engine. It
// records playback events, aggregates them into per-song preferences and
// per-user listening profiles, and ranks shuffle recommendations from those
// signals.
//
// The server initializes components in order:
//
//  1. Configuration: koanf v2 layering defaults, an optional YAML file, and
//     RESONATE_-prefixed environment variables
//  2. Logging: zerolog, JSON or console format
//  3. Database: DuckDB holding the catalog, event log, preferences,
//     profiles, and the similarity index
//  4. Shuffle engine: the playback aggregator and the recommendation ranker
//  5. HTTP server: chi REST API plus /metrics in Prometheus format
//
// Shutdown on SIGINT or SIGTERM is graceful: the listener stops accepting
// connections, in-flight requests drain within the configured timeout, and
// the database checkpoints before closing.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwhitmore/resonate/internal/api"
	"github.com/jwhitmore/resonate/internal/config"
	"github.com/jwhitmore/resonate/internal/database"
	"github.com/jwhitmore/resonate/internal/logging"
	"github.com/jwhitmore/resonate/internal/shuffle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Resonate")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	if cfg.Database.SeedMockData {
		if err := db.SeedCatalog(context.Background(), logging.Logger()); err != nil {
			logging.Error().Err(err).Msg("Failed to seed demo catalog")
			return
		}
	}

	logger := logging.Logger()
	aggregator := shuffle.NewAggregator(db, db, db, db, logger)
	ranker, err := shuffle.NewRanker(db, db, db, db, cfg.Shuffle, logger)
	if err != nil {
		logging.Error().Err(err).Msg("Invalid shuffle configuration")
		return
	}

	handler := api.NewHandler(api.HandlerOptions{
		Catalog:         db,
		Prefs:           db,
		Profiles:        db,
		Similarities:    db,
		Aggregator:      aggregator,
		Ranker:          ranker,
		Pinger:          db,
		MaxShuffleLimit: cfg.API.MaxShuffleLimit,
		Logger:          logger,
	})
	router := api.NewRouter(handler, &cfg.API)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
		if err := server.Close(); err != nil {
			logging.Error().Err(err).Msg("Forced close failed")
		}
	}
	logging.Info().Msg("Server stopped")
}
