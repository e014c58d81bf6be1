// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cairn-dev/cairn/internal/store"
)

// hop is one edge leaving a node during expansion.
type hop struct {
	ID        string
	Label     store.Label
	Name      string
	Relation  store.RelationshipType
	Direction store.Direction
}

// hopFunc returns the single-hop neighbors of nodeID.
type hopFunc func(ctx context.Context, nodeID string) ([]hop, error)

// clampDepth bounds a requested traversal depth to [1, MaxTraversalDepth].
func clampDepth(depth int) int {
	switch {
	case depth < 1:
		return 1
	case depth > store.MaxTraversalDepth:
		return store.MaxTraversalDepth
	default:
		return depth
	}
}

// traverse expands breadth-first from originID, one hop query per frontier
// node. Every node is reported once, at the depth where it was first seen.
// The origin is never reported.
func traverse(ctx context.Context, originID string, depth int, next hopFunc) ([]*store.RelatedNode, error) {
	depth = clampDepth(depth)

	seen := map[string]bool{originID: true}
	frontier := []string{originID}
	var out []*store.RelatedNode

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var upcoming []string
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			hops, err := next(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, h := range hops {
				if seen[h.ID] {
					continue
				}
				seen[h.ID] = true
				out = append(out, &store.RelatedNode{
					ID:        h.ID,
					Label:     h.Label,
					Name:      h.Name,
					Relation:  h.Relation,
					Direction: h.Direction,
					Depth:     level,
				})
				upcoming = append(upcoming, h.ID)
			}
		}
		frontier = upcoming
	}
	return out, nil
}

// directRelated reports every edge in hops at depth 1. Unlike traverse it
// keeps several edges to the same node when their type or direction differ;
// only exact repeats are dropped.
func directRelated(hops []hop) []*store.RelatedNode {
	type edgeKey struct {
		id        string
		relation  store.RelationshipType
		direction store.Direction
	}
	seen := make(map[edgeKey]bool, len(hops))
	out := make([]*store.RelatedNode, 0, len(hops))
	for _, h := range hops {
		k := edgeKey{h.ID, h.Relation, h.Direction}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, &store.RelatedNode{
			ID:        h.ID,
			Label:     h.Label,
			Name:      h.Name,
			Relation:  h.Relation,
			Direction: h.Direction,
			Depth:     1,
		})
	}
	return out
}

// graphHops builds a hopFunc that queries AGE for neighbors of any node
// kind, optionally restricted to one relationship type.
func graphHops(b *Bridge, tx pgx.Tx, relType store.RelationshipType, direction store.Direction) hopFunc {
	if direction == "" {
		direction = store.DirectionBoth
	}
	return func(ctx context.Context, nodeID string) ([]hop, error) {
		var hops []hop
		if direction == store.DirectionOutgoing || direction == store.DirectionBoth {
			out, err := neighbors(ctx, b, tx, nodeID, relType, store.DirectionOutgoing)
			if err != nil {
				return nil, err
			}
			hops = append(hops, out...)
		}
		if direction == store.DirectionIncoming || direction == store.DirectionBoth {
			in, err := neighbors(ctx, b, tx, nodeID, relType, store.DirectionIncoming)
			if err != nil {
				return nil, err
			}
			hops = append(hops, in...)
		}
		return hops, nil
	}
}

// neighbors runs one single-hop query in one direction.
func neighbors(ctx context.Context, b *Bridge, tx pgx.Tx, nodeID string, relType store.RelationshipType, direction store.Direction) ([]hop, error) {
	rel := "[r]"
	if relType != "" {
		rel = fmt.Sprintf("[r:%s]", relType)
	}
	pattern := "(a)-" + rel + "->(n)"
	if direction == store.DirectionIncoming {
		pattern = "(a)<-" + rel + "-(n)"
	}

	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH %s WHERE a.id = %s AND label(n) IN %s RETURN n, type(r)",
		pattern, Quote(nodeID), labelList(store.NodeLabels)), "n", "rel")
	if err != nil {
		return nil, err
	}

	hops := make([]hop, 0, len(rows))
	for _, row := range rows {
		props, err := ParsePayload(row[0])
		if err != nil {
			return nil, err
		}
		hops = append(hops, hop{
			ID:        propString(props, "id"),
			Label:     store.Label(payloadLabel(row[0])),
			Name:      displayName(props),
			Relation:  store.RelationshipType(ParseScalarString(row[1])),
			Direction: direction,
		})
	}
	return hops, nil
}
