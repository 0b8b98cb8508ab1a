// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jwhitmore/resonate/internal/shuffle"
)

// Config is the root application configuration, populated from defaults, an
// optional YAML file, and RESONATE_-prefixed environment variables, in that
// order of precedence.
type Config struct {
	Server   ServerConfig    `koanf:"server" validate:"required"`
	Database DatabaseConfig  `koanf:"database" validate:"required"`
	Logging  LoggingConfig   `koanf:"logging" validate:"required"`
	API      APIConfig       `koanf:"api" validate:"required"`
	Shuffle  *shuffle.Config `koanf:"shuffle" validate:"required"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"required,min=1,max=65535"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the DuckDB settings. Path ":memory:" runs without
// persistence.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory" validate:"required"`
	Threads   int    `koanf:"threads" validate:"min=0,max=64"`

	// SeedMockData inserts a small demo catalog on startup when the songs
	// table is empty.
	SeedMockData bool `koanf:"seed_mock_data"`
}

// LoggingConfig holds the zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"required,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// APIConfig holds per-client rate limiting and CORS settings for the HTTP
// API.
type APIConfig struct {
	RateLimit       int           `koanf:"rate_limit" validate:"required,min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"required"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MaxShuffleLimit caps the number of recommendations a single request
	// may ask for.
	MaxShuffleLimit int `koanf:"max_shuffle_limit" validate:"required,min=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8484,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         "data/resonate.duckdb",
			MaxMemory:    "1GB",
			Threads:      0, // auto
			SeedMockData: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		API: APIConfig{
			RateLimit:          100,
			RateLimitWindow:    time.Minute,
			CORSAllowedOrigins: []string{"*"},
			MaxShuffleLimit:    500,
		},
		Shuffle: shuffle.DefaultConfig(),
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct constraints plus the
// shuffle engine's own rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Shuffle.Validate(); err != nil {
		return fmt.Errorf("invalid shuffle configuration: %w", err)
	}
	return nil
}
