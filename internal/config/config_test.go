// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration failed validation: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8484" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8484", cfg.Server.Addr())
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8484 {
		t.Errorf("Server.Port = %d, want 8484", cfg.Server.Port)
	}
	if cfg.Database.MaxMemory != "1GB" {
		t.Errorf("Database.MaxMemory = %q, want 1GB", cfg.Database.MaxMemory)
	}
	if cfg.Shuffle.RecentWindow != 24*time.Hour {
		t.Errorf("Shuffle.RecentWindow = %v, want 24h", cfg.Shuffle.RecentWindow)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9001
database:
  path: ":memory:"
  seed_mock_data: true
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001 from file", cfg.Server.Port)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q, want :memory:", cfg.Database.Path)
	}
	if !cfg.Database.SeedMockData {
		t.Error("Database.SeedMockData should be true from file")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.API.RateLimit != 100 {
		t.Errorf("API.RateLimit = %d, want default 100", cfg.API.RateLimit)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("RESONATE_SERVER_PORT", "9002")
	t.Setenv("RESONATE_DATABASE_MAX_MEMORY", "2GB")
	t.Setenv("RESONATE_SHUFFLE_USE_SIMILARITY_INDEX", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9002 {
		t.Errorf("Server.Port = %d, env should beat file", cfg.Server.Port)
	}
	if cfg.Database.MaxMemory != "2GB" {
		t.Errorf("Database.MaxMemory = %q, want 2GB from env", cfg.Database.MaxMemory)
	}
	if !cfg.Shuffle.UseSimilarityIndex {
		t.Error("Shuffle.UseSimilarityIndex should be true from env")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "RESONATE_SERVER_PORT", "70000"},
		{"bad log level", "RESONATE_LOGGING_LEVEL", "verbose"},
		{"bad log format", "RESONATE_LOGGING_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RESONATE_SERVER_PORT", "server.port"},
		{"RESONATE_DATABASE_MAX_MEMORY", "database.max_memory"},
		{"RESONATE_API_RATE_LIMIT_WINDOW", "api.rate_limit_window"},
		{"RESONATE_SHUFFLE_USE_SIMILARITY_INDEX", "shuffle.use_similarity_index"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
