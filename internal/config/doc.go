// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

// Package config loads and validates the application configuration using
// koanf. Three layers apply in increasing priority: built-in defaults, an
// optional YAML file, and RESONATE_-prefixed environment variables.
package config
