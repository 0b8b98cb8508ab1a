// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package database

import (
	"io"

	"github.com/jwhitmore/resonate/internal/logging"
)

// closeQuietly closes a resource and explicitly ignores any error.
// Use in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// closeWithLog closes a resource and logs any error.
// Use for cleanup where errors should be acknowledged but not fail the
// operation, typically deferred rows.Close().
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("failed to close resource")
	}
}
