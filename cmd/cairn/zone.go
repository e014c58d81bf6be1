// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func newZoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone",
		Short: "Manage zones",
		Long:  "List, create, show, and delete zones. Deleting a zone removes its plans, exclusive tasks and memories.",
	}

	cmd.AddCommand(
		newZoneListCmd(),
		newZoneCreateCmd(),
		newZoneShowCmd(),
		newZoneDeleteCmd(),
	)

	return cmd
}

func newZoneListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List zones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			search, _ := cmd.Flags().GetString("search")
			limit, _ := cmd.Flags().GetInt("limit")

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				zones, err := s.Zones.List(ctx, store.ZoneFilter{Search: search, Limit: limit})
				if err != nil {
					return err
				}
				return render(cmd, zones, func(w io.Writer) error {
					if len(zones) == 0 {
						return none(w, "zones")
					}
					rows := make([][]string, 0, len(zones))
					for _, z := range zones {
						rows = append(rows, []string{z.ID, z.Name, shorten(z.Description, 50)})
					}
					return table(w, "ID\tNAME\tDESCRIPTION", rows)
				})
			})
		},
	}

	cmd.Flags().String("search", "", "case-insensitive substring of name or description")
	cmd.Flags().Int("limit", store.DefaultListLimit, "maximum number of zones")

	return cmd
}

func newZoneCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			tags, _ := cmd.Flags().GetStringSlice("tag")

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				zone, err := s.Zones.Add(ctx, &store.Zone{Name: args[0], Description: description, Tags: tags})
				if err != nil {
					return err
				}
				return render(cmd, zone, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created zone %q (%s)\n", zone.Name, zone.ID)
					return err
				})
			})
		},
	}

	cmd.Flags().String("description", "", "zone description")
	cmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")

	return cmd
}

func newZoneShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a zone with its plans, tasks and memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				contents, err := s.Zones.GetWithContents(ctx, args[0])
				if err != nil {
					return err
				}
				if contents == nil {
					return cairnerr.New(cairnerr.CodeStoreEntityNotFound, "zone not found", cairnerr.FieldZoneID(args[0]))
				}
				return render(cmd, contents, func(w io.Writer) error {
					return writeZoneContents(w, contents)
				})
			})
		},
	}
}

func writeZoneContents(w io.Writer, c *store.ZoneContents) error {
	_, _ = fmt.Fprintf(w, "Zone: %s (%s)\n", c.Zone.Name, c.Zone.ID)
	if c.Zone.Description != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", c.Zone.Description)
	}
	for _, pc := range c.Plans {
		_, _ = fmt.Fprintf(w, "\nPlan: %s [%s] (%s)\n", pc.Plan.Name, pc.Plan.Status, pc.Plan.ID)
		writeTaskSummaries(w, pc.Tasks)
	}
	if len(c.Memories) > 0 {
		_, _ = fmt.Fprintln(w, "\nMemories:")
		for _, m := range c.Memories {
			_, _ = fmt.Fprintf(w, "  - [%s] %s (%s)\n", m.Type, shorten(m.Content, 60), m.ID)
		}
	}
	return nil
}

func writeTaskSummaries(w io.Writer, tasks []*store.TaskSummary) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, "  (no tasks)")
		return
	}
	for i, ts := range tasks {
		_, _ = fmt.Fprintf(w, "  %d. [%s] %s (%s)\n", i+1, ts.Task.Status, shorten(ts.Task.Content, 60), ts.Task.ID)
		for _, dep := range ts.DependsOn {
			_, _ = fmt.Fprintf(w, "       depends on %s\n", dep)
		}
		for _, blocked := range ts.Blocks {
			_, _ = fmt.Fprintf(w, "       blocks %s\n", blocked)
		}
	}
}

func newZoneDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a zone and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				res, err := s.Zones.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd, res, func(w io.Writer) error {
					return writeCascade(w, "zone", args[0], res)
				})
			})
		},
	}
}

func writeCascade(w io.Writer, kind, id string, res *store.CascadeResult) error {
	_, err := fmt.Fprintf(w, "Deleted %s %s: %d plan(s), %d task(s), %d memory(ies); %d task(s) kept by other plans\n",
		kind, id, res.DeletedPlans, res.DeletedTasks, res.DeletedMemories, res.DetachedTasks)
	return err
}
