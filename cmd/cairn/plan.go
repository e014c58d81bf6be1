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

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage plans",
		Long:  "List, create, show, and delete plans. Deleting a plan removes tasks that belong to no other plan.",
	}

	cmd.AddCommand(
		newPlanListCmd(),
		newPlanCreateCmd(),
		newPlanShowCmd(),
		newPlanDeleteCmd(),
	)

	return cmd
}

func parsePlanStatus(s string) (store.PlanStatus, error) {
	status := store.PlanStatus(s)
	if s != "" && !status.Valid() {
		return "", cairnerr.Errorf(cairnerr.CodeCLIInputInvalid, "invalid plan status %q", s)
	}
	return status, nil
}

func newPlanListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			zoneID, _ := cmd.Flags().GetString("zone")
			rawStatus, _ := cmd.Flags().GetString("status")
			tag, _ := cmd.Flags().GetString("tag")
			search, _ := cmd.Flags().GetString("search")
			limit, _ := cmd.Flags().GetInt("limit")

			status, err := parsePlanStatus(rawStatus)
			if err != nil {
				return err
			}

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				plans, err := s.Plans.List(ctx, store.PlanFilter{
					ZoneID: zoneID,
					Status: status,
					Tag:    tag,
					Search: search,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				return render(cmd, plans, func(w io.Writer) error {
					if len(plans) == 0 {
						return none(w, "plans")
					}
					rows := make([][]string, 0, len(plans))
					for _, p := range plans {
						rows = append(rows, []string{p.ID, p.Name, string(p.Status), p.ZoneID})
					}
					return table(w, "ID\tNAME\tSTATUS\tZONE", rows)
				})
			})
		},
	}

	cmd.Flags().String("zone", "", "only plans in this zone")
	cmd.Flags().String("status", "", "only plans with this status")
	cmd.Flags().String("tag", "", "only plans carrying this tag")
	cmd.Flags().String("search", "", "case-insensitive substring of name or description")
	cmd.Flags().Int("limit", store.DefaultListLimit, "maximum number of plans")

	return cmd
}

func newPlanCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a plan",
		Long:  "Create a plan in --zone. Without --zone a new zone named after the plan is created.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zoneID, _ := cmd.Flags().GetString("zone")
			description, _ := cmd.Flags().GetString("description")
			rawStatus, _ := cmd.Flags().GetString("status")
			tags, _ := cmd.Flags().GetStringSlice("tag")

			status, err := parsePlanStatus(rawStatus)
			if err != nil {
				return err
			}

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				plan, err := s.Plans.AddWithZone(ctx, &store.Plan{
					Name:        args[0],
					Description: description,
					Status:      status,
					Tags:        tags,
				}, zoneID)
				if err != nil {
					return err
				}
				return render(cmd, plan, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created plan %q (%s) in zone %s\n", plan.Name, plan.ID, plan.ZoneID)
					return err
				})
			})
		},
	}

	cmd.Flags().String("zone", "", "zone to create the plan in")
	cmd.Flags().String("description", "", "plan description")
	cmd.Flags().String("status", "", "initial status (default draft)")
	cmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")

	return cmd
}

func newPlanShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a plan with its ordered tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				plan, err := s.Plans.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				if plan == nil {
					return cairnerr.New(cairnerr.CodeStoreEntityNotFound, "plan not found", cairnerr.FieldPlanID(args[0]))
				}
				tasks, err := s.Tasks.List(ctx, store.TaskFilter{PlanID: plan.ID})
				if err != nil {
					return err
				}

				out := struct {
					Plan  *store.Plan   `json:"plan" yaml:"plan"`
					Tasks []*store.Task `json:"tasks" yaml:"tasks"`
				}{plan, tasks}
				return render(cmd, out, func(w io.Writer) error {
					_, _ = fmt.Fprintf(w, "Plan: %s [%s] (%s)\n", plan.Name, plan.Status, plan.ID)
					if plan.Description != "" {
						_, _ = fmt.Fprintf(w, "  %s\n", plan.Description)
					}
					if len(tasks) == 0 {
						_, err := fmt.Fprintln(w, "  (no tasks)")
						return err
					}
					rows := make([][]string, 0, len(tasks))
					for _, t := range tasks {
						rows = append(rows, []string{
							fmt.Sprintf("%.2f", t.Position), t.ID, string(t.Status), shorten(t.Content, 60),
						})
					}
					return table(w, "POSITION\tID\tSTATUS\tCONTENT", rows)
				})
			})
		},
	}
}

func newPlanDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a plan and its exclusive tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				res, err := s.Plans.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd, res, func(w io.Writer) error {
					return writeCascade(w, "plan", args[0], res)
				})
			})
		},
	}
}
