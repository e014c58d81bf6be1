// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/store"
	"github.com/cairn-dev/cairn/internal/store/age"
)

// testDatabaseEnv names the Postgres+AGE URL integration tests run against.
const testDatabaseEnv = "CAIRN_TEST_DATABASE_URL"

// testGraph connects to the test database and bootstraps a graph private
// to t. The graph is dropped when t finishes.
func testGraph(t *testing.T) (*age.Bridge, *store.Stores) {
	t.Helper()

	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set, skipping integration test", testDatabaseEnv)
	}

	ctx := context.Background()
	graph := "cairn_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b, err := age.ConnectURL(ctx, url, graph, age.RetryPolicy{MaxAttempts: 1}, logger)
	require.NoError(t, err)
	require.NoError(t, b.Bootstrap(ctx))

	t.Cleanup(func() {
		dropCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = b.DropGraph(dropCtx)
		_ = b.Close()
	})

	stores := store.NewStores(
		age.NewZoneStore(b),
		age.NewPlanStore(b),
		age.NewTaskStore(b),
		age.NewMemoryStore(b),
		b,
	)
	return b, stores
}

// mustZone creates a zone with a unique name.
func mustZone(t *testing.T, s *store.Stores) *store.Zone {
	t.Helper()
	z, err := s.Zones.Add(context.Background(), &store.Zone{Name: "zone " + t.Name()})
	require.NoError(t, err)
	return z
}

// mustPlan creates a plan inside zoneID.
func mustPlan(t *testing.T, s *store.Stores, zoneID, name string) *store.Plan {
	t.Helper()
	p, err := s.Plans.Add(context.Background(), &store.Plan{Name: name}, zoneID)
	require.NoError(t, err)
	return p
}

// mustTask appends a task to planIDs.
func mustTask(t *testing.T, s *store.Stores, content string, planIDs ...string) *store.Task {
	t.Helper()
	task, err := s.Tasks.Add(context.Background(), &store.Task{Content: content}, store.TaskPlacement{PlanIDs: planIDs})
	require.NoError(t, err)
	return task
}

func taskIDs(tasks []*store.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func relatedIDs(nodes []*store.RelatedNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = fmt.Sprintf("%s@%d", n.ID, n.Depth)
	}
	return out
}
