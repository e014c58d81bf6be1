// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cairn-dev/cairn/internal/store"
	"github.com/cairn-dev/cairn/internal/store/age"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "List, add, complete, reorder tasks and record dependencies between them.",
	}

	cmd.AddCommand(
		newTaskListCmd(),
		newTaskAddCmd(),
		newTaskDoneCmd(),
		newTaskMoveCmd(),
		newTaskDependCmd(),
	)

	return cmd
}

func parseTaskStatus(s string) (store.TaskStatus, error) {
	status := store.TaskStatus(s)
	if s != "" && !status.Valid() {
		return "", cairnerr.Errorf(cairnerr.CodeCLIInputInvalid, "invalid task status %q", s)
	}
	return status, nil
}

func newTaskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, in position order when --plan is given",
		RunE: func(cmd *cobra.Command, _ []string) error {
			planID, _ := cmd.Flags().GetString("plan")
			rawStatus, _ := cmd.Flags().GetString("status")
			tag, _ := cmd.Flags().GetString("tag")
			search, _ := cmd.Flags().GetString("search")
			limit, _ := cmd.Flags().GetInt("limit")

			status, err := parseTaskStatus(rawStatus)
			if err != nil {
				return err
			}

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				tasks, err := s.Tasks.List(ctx, store.TaskFilter{
					PlanID: planID,
					Status: status,
					Tag:    tag,
					Search: search,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				return render(cmd, tasks, func(w io.Writer) error {
					if len(tasks) == 0 {
						return none(w, "tasks")
					}
					rows := make([][]string, 0, len(tasks))
					for _, t := range tasks {
						rows = append(rows, []string{t.ID, string(t.Status), shorten(t.Content, 60)})
					}
					return table(w, "ID\tSTATUS\tCONTENT", rows)
				})
			})
		},
	}

	cmd.Flags().String("plan", "", "only tasks in this plan")
	cmd.Flags().String("status", "", "only tasks with this status")
	cmd.Flags().String("tag", "", "only tasks carrying this tag")
	cmd.Flags().String("search", "", "case-insensitive substring of content")
	cmd.Flags().Int("limit", store.DefaultListLimit, "maximum number of tasks")

	return cmd
}

func newTaskAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a task to one or more plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planIDs, _ := cmd.Flags().GetStringSlice("plan")
			after, _ := cmd.Flags().GetString("after")
			before, _ := cmd.Flags().GetString("before")
			dependsOn, _ := cmd.Flags().GetStringSlice("depends-on")
			tags, _ := cmd.Flags().GetStringSlice("tag")

			if len(planIDs) == 0 {
				return cairnerr.New(cairnerr.CodeCLIInputInvalid, "--plan flag is required")
			}

			rels := make([]store.RelationshipSpec, 0, len(dependsOn))
			for _, id := range dependsOn {
				rels = append(rels, store.RelationshipSpec{TargetID: id, Type: store.RelDependsOn})
			}

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				task, err := s.Tasks.Add(ctx, &store.Task{Content: args[0], Tags: tags}, store.TaskPlacement{
					PlanIDs:       planIDs,
					Relationships: rels,
					AfterTaskID:   after,
					BeforeTaskID:  before,
				})
				if err != nil {
					return err
				}
				return render(cmd, task, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added task %s at position %.2f\n", task.ID, task.Position)
					return err
				})
			})
		},
	}

	cmd.Flags().StringSlice("plan", nil, "plan to add the task to (repeatable)")
	cmd.Flags().String("after", "", "place after this task")
	cmd.Flags().String("before", "", "place before this task")
	cmd.Flags().StringSlice("depends-on", nil, "task this one depends on (repeatable)")
	cmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")

	return cmd
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			completed := store.TaskStatusCompleted
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				task, err := s.Tasks.Update(ctx, args[0], store.TaskPatch{Status: &completed})
				if err != nil {
					return err
				}
				return render(cmd, task, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Completed task %s\n", task.ID)
					return err
				})
			})
		},
	}
}

func newTaskMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move [id]",
		Short: "Move a task within a plan, or into another plan",
		Long:  "Reposition a task inside --plan relative to --after or --before. Without anchors the task goes to the end. A task not yet in the plan is added to it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, _ := cmd.Flags().GetString("plan")
			after, _ := cmd.Flags().GetString("after")
			before, _ := cmd.Flags().GetString("before")
			if planID == "" {
				return cairnerr.New(cairnerr.CodeCLIInputInvalid, "--plan flag is required")
			}
			taskID := args[0]

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				tasks, err := s.Tasks.List(ctx, store.TaskFilter{PlanID: planID, Limit: -1})
				if err != nil {
					return err
				}

				var pos float64
				if !containsTask(tasks, taskID) {
					pos, err = s.Tasks.AddToPlan(ctx, taskID, planID, after, before)
					if err != nil {
						return err
					}
				} else {
					pos, err = movePosition(tasks, taskID, after, before)
					if err != nil {
						return err
					}
					if err := s.Tasks.UpdatePositions(ctx, planID, map[string]float64{taskID: pos}); err != nil {
						return err
					}
				}

				result := map[string]any{"task_id": taskID, "plan_id": planID, "position": pos}
				return render(cmd, result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Moved task %s to position %.2f\n", taskID, pos)
					return err
				})
			})
		},
	}

	cmd.Flags().String("plan", "", "plan to move the task in")
	cmd.Flags().String("after", "", "place after this task")
	cmd.Flags().String("before", "", "place before this task")

	return cmd
}

func containsTask(tasks []*store.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// movePosition computes the new position of taskID among the other tasks
// of an ordered plan listing.
func movePosition(tasks []*store.Task, taskID, afterID, beforeID string) (float64, error) {
	others := make([]*store.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != taskID {
			others = append(others, t)
		}
	}

	if afterID == "" && beforeID == "" {
		maxPos := 0.0
		if len(others) > 0 {
			maxPos = others[len(others)-1].Position
		}
		return age.AppendPosition(maxPos), nil
	}

	index := func(id string) (int, error) {
		for i, t := range others {
			if t.ID == id {
				return i, nil
			}
		}
		return -1, cairnerr.Errorf(cairnerr.CodeCLIInputInvalid, "anchor task %s is not in the plan", id)
	}

	var lo, hi float64
	switch {
	case afterID != "" && beforeID != "":
		a, err := index(afterID)
		if err != nil {
			return 0, err
		}
		b, err := index(beforeID)
		if err != nil {
			return 0, err
		}
		if a >= b {
			return 0, cairnerr.New(cairnerr.CodeCLIInputInvalid, "--after must come before --before")
		}
		lo, hi = others[a].Position, others[b].Position
	case afterID != "":
		a, err := index(afterID)
		if err != nil {
			return 0, err
		}
		lo = others[a].Position
		if a+1 < len(others) {
			hi = others[a+1].Position
		}
	default:
		b, err := index(beforeID)
		if err != nil {
			return 0, err
		}
		hi = others[b].Position
		if b > 0 {
			lo = others[b-1].Position
		}
	}
	return age.ComputeInsertPositions(lo, hi, 1)[0], nil
}

func newTaskDependCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "depend [task-id] [depends-on-id]",
		Short: "Record that a task depends on another",
		Long:  "Add a DEPENDS_ON edge. Edges that would create a dependency cycle are rejected.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				if err := s.Tasks.AddDependency(ctx, args[0], args[1]); err != nil {
					return err
				}
				result := store.Relationship{FromID: args[0], ToID: args[1], Type: store.RelDependsOn}
				return render(cmd, result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Task %s now depends on %s\n", args[0], args[1])
					return err
				})
			})
		},
	}
}
