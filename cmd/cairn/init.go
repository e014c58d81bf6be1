// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cairn-dev/cairn/internal/store"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the AGE extension, graph and labels",
		Long:  "Create the AGE extension and graph if they are missing and seed every node and edge label. Safe to run repeatedly.",
		RunE:  runInit,
	}

	cmd.Flags().Bool("reset", false, "drop the graph and all of its data first")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	reset, _ := cmd.Flags().GetBool("reset")

	return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
		if reset {
			if err := s.Admin.DropGraph(ctx); err != nil {
				return err
			}
		}
		if err := s.Admin.Bootstrap(ctx); err != nil {
			return err
		}

		result := map[string]any{"ready": true, "reset": reset}
		return render(cmd, result, func(w io.Writer) error {
			if reset {
				_, _ = fmt.Fprintln(w, "Graph dropped")
			}
			_, err := fmt.Fprintln(w, "Graph ready")
			return err
		})
	})
}
