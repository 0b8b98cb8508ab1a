// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/resonate/config.yaml",
	"/etc/resonate/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "RESONATE_CONFIG"

// envPrefix namespaces the environment variables read by Load.
const envPrefix = "RESONATE_"

// Load builds the configuration from three layers in increasing priority:
// built-in defaults, an optional YAML file, and RESONATE_-prefixed
// environment variables (RESONATE_SERVER_PORT=9000 sets server.port).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps environment variable names to koanf paths. The first
// underscore after the prefix separates the section from the key:
// RESONATE_DATABASE_MAX_MEMORY becomes database.max_memory.
func envTransform(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, envPrefix))
	section, key, found := strings.Cut(name, "_")
	if !found {
		return name
	}
	return section + "." + key
}
