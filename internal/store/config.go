// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"log/slog"

	"github.com/cairn-dev/cairn/internal/config"
)

// StorageConfig controls which backend the store factory opens and how.
type StorageConfig struct {
	Backend  string // "age" is the only supported backend for now.
	Database config.DatabaseConfig
	Logger   *slog.Logger // nil uses slog.Default().
}
