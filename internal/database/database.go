// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/jwhitmore/resonate/internal/config"
	"github.com/jwhitmore/resonate/internal/logging"
)

// DB wraps the DuckDB connection and provides the durable implementations of
// the shuffle storage contracts (catalog, event log, preference store,
// profile store, similarity index).
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// Per-user write locks for profile read-modify-writes. Preference
	// upserts do not need these: they are single atomic ON CONFLICT
	// statements. Profile updates rewrite JSON histogram columns and must
	// be serialized per user.
	profileLocks sync.Map
}

// New opens (creating if necessary) the DuckDB database at cfg.Path and
// initializes the schema. Use ":memory:" for an ephemeral database.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists for file-backed databases.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Disable auto-install/auto-load of extensions to prevent hangs in
	// restricted network environments; this schema needs none.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{
		conn: conn,
		cfg:  cfg,
	}

	db.configureConnectionPool(numThreads)

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return db, nil
}

// configureConnectionPool bounds the pool. DuckDB is in-process; a handful of
// connections is enough and keeps memory predictable.
func (db *DB) configureConnectionPool(numThreads int) {
	maxConns := numThreads
	if maxConns > 8 {
		maxConns = 8
	}
	db.conn.SetMaxOpenConns(maxConns)
	db.conn.SetMaxIdleConns(maxConns)
	db.conn.SetConnMaxLifetime(0)
}

// Ping checks that the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close flushes the WAL with a checkpoint and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("failed to checkpoint database before close")
	}

	return db.conn.Close()
}

// userLock returns the mutex serializing profile writes for one user.
func (db *DB) userLock(userID int64) *sync.Mutex {
	lock, _ := db.profileLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
