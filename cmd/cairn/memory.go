// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage memories",
		Long:  "Add memories, search them, and walk the graph around them.",
	}

	cmd.AddCommand(
		newMemoryAddCmd(),
		newMemorySearchCmd(),
		newMemoryRelatedCmd(),
	)

	return cmd
}

// parseLinks turns TYPE:ID pairs into relationship specs. A bare ID
// means RELATES_TO.
func parseLinks(raw []string) ([]store.RelationshipSpec, error) {
	specs := make([]store.RelationshipSpec, 0, len(raw))
	for _, r := range raw {
		relType, target, found := strings.Cut(r, ":")
		if !found {
			relType, target = string(store.RelRelatesTo), r
		}
		spec := store.RelationshipSpec{TargetID: target, Type: store.RelationshipType(strings.ToUpper(relType))}
		if err := spec.Validate(); err != nil {
			return nil, cairnerr.Wrapf(err, cairnerr.CodeCLIInputInvalid, "invalid --link %q", r)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func newMemoryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a memory to a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zoneID, _ := cmd.Flags().GetString("zone")
			memType, _ := cmd.Flags().GetString("type")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			links, _ := cmd.Flags().GetStringSlice("link")

			if zoneID == "" {
				return cairnerr.New(cairnerr.CodeCLIInputInvalid, "--zone flag is required")
			}
			rels, err := parseLinks(links)
			if err != nil {
				return err
			}

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				memory, err := s.Memories.Add(ctx, &store.Memory{Type: memType, Content: args[0], Tags: tags}, zoneID, rels)
				if err != nil {
					return err
				}
				return render(cmd, memory, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added %s memory %s\n", memory.Type, memory.ID)
					return err
				})
			})
		},
	}

	cmd.Flags().String("zone", "", "zone the memory belongs to")
	cmd.Flags().String("type", "", "memory type (default "+store.DefaultMemoryType+")")
	cmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")
	cmd.Flags().StringSlice("link", nil, "TYPE:ID relationship to create, or a bare ID for RELATES_TO (repeatable)")

	return cmd
}

func newMemorySearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by content or ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				results, err := s.Memories.Search(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return render(cmd, results, func(w io.Writer) error {
					if len(results) == 0 {
						return none(w, "memories")
					}
					rows := make([][]string, 0, len(results))
					for _, r := range results {
						rows = append(rows, []string{
							r.Memory.ID, r.Memory.Type, shorten(r.Memory.Content, 60), strconv.Itoa(len(r.RelatedMemoryIDs)),
						})
					}
					return table(w, "ID\tTYPE\tCONTENT\tRELATED", rows)
				})
			})
		},
	}

	cmd.Flags().Int("limit", store.DefaultListLimit, "maximum number of results")

	return cmd
}

func newMemoryRelatedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "related [id]",
		Short: "Walk the graph around a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, _ := cmd.Flags().GetInt("depth")
			relType, _ := cmd.Flags().GetString("type")
			direction, _ := cmd.Flags().GetString("direction")

			opts := store.TraversalOptions{
				RelationType: store.RelationshipType(strings.ToUpper(relType)),
				Direction:    store.Direction(direction),
				Depth:        depth,
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				nodes, err := s.Memories.GetRelated(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return render(cmd, nodes, func(w io.Writer) error {
					if len(nodes) == 0 {
						return none(w, "related nodes")
					}
					rows := make([][]string, 0, len(nodes))
					for _, n := range nodes {
						rows = append(rows, []string{
							strconv.Itoa(n.Depth), string(n.Label), n.ID, string(n.Relation), string(n.Direction), shorten(n.Name, 50),
						})
					}
					return table(w, "DEPTH\tLABEL\tID\tRELATION\tDIRECTION\tNAME", rows)
				})
			})
		},
	}

	cmd.Flags().Int("depth", 1, fmt.Sprintf("hops to follow (1-%d)", store.MaxTraversalDepth))
	cmd.Flags().String("type", "", "only follow this relationship type")
	cmd.Flags().String("direction", string(store.DirectionBoth), "outgoing, incoming or both")

	return cmd
}
