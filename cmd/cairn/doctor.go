// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cairn-dev/cairn/internal/secrets"
)

// doctorTimeout bounds the database probe; doctor never retries.
const doctorTimeout = 5 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, keyring, database connectivity and local disk space.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Config", checkConfig},
		{"Keyring", checkKeyring},
		{"Database", func() string { return checkDatabase(ctx) }},
		{"Disk Space", func() string { return checkDiskSpace(configDir()) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}
	return nil
}

// configDir is the per-user directory cairn reads config from.
func configDir() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return filepath.Dir(used)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cairn")
}

func checkBinary() string {
	return fmt.Sprintf("cairn %s (%s/%s, %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig() string {
	if _, err := loadConfig(); err != nil {
		return fmt.Sprintf("invalid: %s", err)
	}
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkKeyring() string {
	if secrets.IsURI(viper.GetString("database.password")) {
		return "database.password references a secret that could not be read"
	}
	keys, err := secretStoreFactory().Keys(secrets.DefaultService)
	if err != nil {
		return fmt.Sprintf("unavailable: %s", err)
	}
	return fmt.Sprintf("%d secret(s) stored", len(keys))
}

func checkDatabase(ctx context.Context) string {
	cfg, err := loadConfig()
	if err != nil {
		return "skipped (invalid config)"
	}
	db := cfg.Database
	db.Retry.MaxAttempts = 1

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	stores, err := openBackend(ctx, db)
	if err != nil {
		return fmt.Sprintf("unreachable at %s: %s", db.Redacted(), err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			slog.Debug("closing stores", "error", err)
		}
	}()

	if err := stores.Admin.Ping(ctx); err != nil {
		return fmt.Sprintf("ping failed: %s", err)
	}
	return fmt.Sprintf("graph %q reachable at %s", db.Graph, db.Redacted())
}

// formatBytes renders a byte count for humans.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
