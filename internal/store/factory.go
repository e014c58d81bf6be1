// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// DefaultBackend is used when StorageConfig.Backend is empty.
const DefaultBackend = "age"

// Admin exposes maintenance operations of the backing database.
type Admin interface {
	Ping(ctx context.Context) error
	// Bootstrap creates the extension, graph and labels. Idempotent.
	Bootstrap(ctx context.Context) error
	// DropGraph deletes the graph with all of its data.
	DropGraph(ctx context.Context) error
	CountNodes(ctx context.Context, label Label) (int, error)
}

// BackendFactory opens every repository of a backend.
type BackendFactory func(ctx context.Context, cfg *StorageConfig) (*Stores, error)

var (
	backends   = map[string]BackendFactory{}
	backendsMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return DefaultBackend
	}
	return cfg.Backend
}

// Open creates all repositories for the configured backend.
func Open(ctx context.Context, cfg *StorageConfig) (*Stores, error) {
	backend := resolveBackend(cfg)

	backendsMu.RLock()
	factory, ok := backends[backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, cairnerr.New(cairnerr.CodeStoreBackendUnsupported,
			"unsupported storage backend: "+backend,
			cairnerr.Field("backend", backend))
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return factory(ctx, cfg)
}

// Stores bundles the four repositories sharing one connection pool.
type Stores struct {
	Zones    ZoneStore
	Plans    PlanStore
	Tasks    TaskStore
	Memories MemoryStore
	Admin    Admin

	closers []io.Closer
}

// NewStores composes the repositories of a backend. Closers (e.g. the
// shared pool) are released by Close in order.
func NewStores(zones ZoneStore, plans PlanStore, tasks TaskStore, memories MemoryStore, admin Admin, closers ...io.Closer) *Stores {
	return &Stores{
		Zones:    zones,
		Plans:    plans,
		Tasks:    tasks,
		Memories: memories,
		Admin:    admin,
		closers:  closers,
	}
}

// Close releases every resource held by the stores.
func (s *Stores) Close() error {
	var errs []error
	for _, cl := range s.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
