// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cairn-dev/cairn/internal/config"
	"github.com/cairn-dev/cairn/internal/store"
	_ "github.com/cairn-dev/cairn/internal/store/age" // register age backend
)

// loadConfig decodes and validates the configuration held by viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	config.WarnInsecurePermissions(viper.ConfigFileUsed())
	return cfg, nil
}

// openStores loads the configuration held by viper and opens every
// repository of the configured backend.
func openStores(ctx context.Context) (*store.Stores, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	stores, err := openBackend(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return stores, cfg, nil
}

func openBackend(ctx context.Context, db config.DatabaseConfig) (*store.Stores, error) {
	return store.Open(ctx, &store.StorageConfig{
		Backend:  store.DefaultBackend,
		Database: db,
		Logger:   slog.Default(),
	})
}

// withStores runs fn against freshly opened stores and closes them after.
func withStores(cmd *cobra.Command, fn func(ctx context.Context, s *store.Stores) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stores, _, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			slog.Warn("closing stores", "error", err)
		}
	}()

	return fn(ctx, stores)
}
