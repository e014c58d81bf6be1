// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/cairn-dev/cairn/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database connectivity and node counts",
		Long:  "Connect to the configured database (retrying with backoff) and count the nodes of every label.",
		RunE:  runStatus,
	}
}

// statusReport is the machine-readable status output.
type statusReport struct {
	Graph  string         `json:"graph" yaml:"graph"`
	Config string         `json:"config,omitempty" yaml:"config,omitempty"`
	Counts map[string]int `json:"counts" yaml:"counts"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
		if err := s.Admin.Ping(ctx); err != nil {
			return err
		}

		counts, err := countLabels(ctx, s.Admin)
		if err != nil {
			return err
		}

		report := statusReport{
			Graph:  viper.GetString("database.graph"),
			Config: viper.ConfigFileUsed(),
			Counts: make(map[string]int, len(counts)),
		}
		rows := make([][]string, 0, len(counts))
		for i, label := range store.NodeLabels {
			report.Counts[string(label)] = counts[i]
			rows = append(rows, []string{string(label), strconv.Itoa(counts[i])})
		}

		return render(cmd, report, func(w io.Writer) error {
			_, _ = fmt.Fprintf(w, "Graph %q is reachable\n\n", report.Graph)
			return table(w, "LABEL\tNODES", rows)
		})
	})
}

// countLabels counts every node label concurrently, in NodeLabels order.
func countLabels(ctx context.Context, admin store.Admin) ([]int, error) {
	counts := make([]int, len(store.NodeLabels))
	g, gctx := errgroup.WithContext(ctx)
	for i, label := range store.NodeLabels {
		g.Go(func() error {
			n, err := admin.CountNodes(gctx, label)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
