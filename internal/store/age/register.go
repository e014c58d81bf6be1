// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"fmt"

	"github.com/cairn-dev/cairn/internal/store"
)

// BackendName is the name this package registers under.
const BackendName = "age"

func init() {
	store.RegisterBackend(BackendName, newStores)
}

// newStores connects once, bootstraps the graph and shares the bridge
// between all repositories.
func newStores(ctx context.Context, cfg *store.StorageConfig) (*store.Stores, error) {
	b, err := Connect(ctx, cfg.Database, RetryPolicyFrom(cfg.Database.Retry), cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening age backend: %w", err)
	}
	if err := b.Bootstrap(ctx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("bootstrapping age graph: %w", err)
	}
	return store.NewStores(
		NewZoneStore(b),
		NewPlanStore(b),
		NewTaskStore(b),
		NewMemoryStore(b),
		b,
		b,
	), nil
}
