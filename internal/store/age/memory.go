// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Compile-time interface check.
var _ store.MemoryStore = (*MemoryStore)(nil)

// MemoryStore implements store.MemoryStore on an AGE graph.
type MemoryStore struct {
	b *Bridge
}

// NewMemoryStore returns a memory repository using b.
func NewMemoryStore(b *Bridge) *MemoryStore {
	return &MemoryStore{b: b}
}

// searchScore is assigned to every search hit. Results are not ranked.
const searchScore = 1.0

func memoryProps(m *store.Memory) []prop {
	return append([]prop{
		strProp("type", m.Type),
		strProp("content", m.Content),
	}, commonProps(store.LabelMemory, m.ID, m.Tags, m.Metadata, m.CreatedAt, m.UpdatedAt)...)
}

// Add creates a memory inside zoneID and links it to rels.
func (s *MemoryStore) Add(ctx context.Context, memory *store.Memory, zoneID string, rels []store.RelationshipSpec) (*store.Memory, error) {
	if memory == nil {
		return nil, cairnerr.New(cairnerr.CodeStoreInvalidInput, "memory is required")
	}
	if zoneID == "" {
		return nil, zoneIDRequired()
	}
	if err := store.ValidateRelationships(rels); err != nil {
		return nil, err
	}

	m := *memory
	m.ID = newID(m.ID)
	if m.Type == "" {
		m.Type = store.DefaultMemoryType
	}
	m.CreatedAt = nowUTC()
	m.UpdatedAt = m.CreatedAt
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var out *store.Memory
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if err := requireNode(ctx, s.b, tx, store.LabelZone, zoneID); err != nil {
			return err
		}
		exists, err := nodeExists(ctx, s.b, tx, store.LabelMemory, m.ID)
		if err != nil {
			return err
		}
		if exists {
			return cairnerr.New(cairnerr.CodeStoreConflict, "memory already exists", cairnerr.FieldMemoryID(m.ID))
		}

		props, err := createNode(ctx, s.b, tx, store.LabelMemory, memoryProps(&m))
		if err != nil {
			return err
		}
		if _, err := createRelationship(ctx, s.b, tx, m.ID, zoneID, store.RelBelongsTo); err != nil {
			return err
		}
		out = memoryFromProps(props)
		out.ZoneID = zoneID
		return linkAll(ctx, s.b, tx, m.ID, rels)
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("memory.add"), cairnerr.FieldZoneID(zoneID))
	}
	return out, nil
}

// GetByID returns the memory with its zone ID, or nil when it does not exist.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*store.Memory, error) {
	return getMemory(ctx, s.b, nil, id)
}

func getMemory(ctx context.Context, b *Bridge, tx pgx.Tx, id string) (*store.Memory, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (n:Memory) WHERE n.id = %s OPTIONAL MATCH (n)-[:BELONGS_TO]->(z:Zone) RETURN n, z.id",
		Quote(id)), "n", "zone_id")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeMemoryRow(rows[0])
}

func decodeMemoryRow(row []string) (*store.Memory, error) {
	props, err := ParsePayload(row[0])
	if err != nil {
		return nil, err
	}
	m := memoryFromProps(props)
	m.ZoneID = ParseScalarString(row[1])
	return m, nil
}

// Update applies the non-nil fields of patch and appends relationships.
func (s *MemoryStore) Update(ctx context.Context, id string, patch store.MemoryPatch) (*store.Memory, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var props []prop
	if patch.Type != nil {
		props = append(props, strProp("type", *patch.Type))
	}
	if patch.Content != nil {
		props = append(props, strProp("content", *patch.Content))
	}
	props = append(props, commonPatch(patch.Tags, patch.Metadata)...)

	var out *store.Memory
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := updateNode(ctx, s.b, tx, store.LabelMemory, id, props); err != nil {
			return err
		}
		if err := linkAll(ctx, s.b, tx, id, patch.AddRelationships); err != nil {
			return err
		}
		var err error
		out, err = getMemory(ctx, s.b, tx, id)
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("memory.update"), cairnerr.FieldMemoryID(id))
	}
	return out, nil
}

// Delete removes the memory and its edges.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		return deleteNode(ctx, s.b, tx, store.LabelMemory, id)
	})
	return cairnerr.With(err, cairnerr.FieldOp("memory.delete"), cairnerr.FieldMemoryID(id))
}

// List returns memories ordered by creation time.
func (s *MemoryStore) List(ctx context.Context, filter store.MemoryFilter) ([]*store.Memory, error) {
	return listMemories(ctx, s.b, nil, filter)
}

func listMemories(ctx context.Context, b *Bridge, tx pgx.Tx, filter store.MemoryFilter) ([]*store.Memory, error) {
	var preds []string
	if filter.Type != "" {
		preds = append(preds, "n.type = "+Quote(filter.Type))
	}
	if filter.Tag != "" {
		preds = append(preds, Quote(filter.Tag)+" IN n.tags")
	}

	var cypher string
	if filter.ZoneID != "" {
		preds = append(preds, "z.id = "+Quote(filter.ZoneID))
		cypher = "MATCH (n:Memory)-[:BELONGS_TO]->(z:Zone)" + whereClause(preds)
	} else {
		cypher = "MATCH (n:Memory)" + whereClause(preds) + " OPTIONAL MATCH (n)-[:BELONGS_TO]->(z:Zone)"
	}
	rows, err := b.Query(ctx, tx, cypher+" RETURN n, z.id ORDER BY n.created_at"+limitClause(filter.Limit),
		"n", "zone_id")
	if err != nil {
		return nil, err
	}

	memories := make([]*store.Memory, 0, len(rows))
	for _, row := range rows {
		m, err := decodeMemoryRow(row)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// Search matches query as a case-insensitive substring of content or ID.
// Each hit lists the memories directly linked to it in either direction.
func (s *MemoryStore) Search(ctx context.Context, query string, limit int) ([]*store.SearchResult, error) {
	var results []*store.SearchResult
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := s.b.Query(ctx, tx, fmt.Sprintf(
			"MATCH (n:Memory) WHERE %s OPTIONAL MATCH (n)-[:BELONGS_TO]->(z:Zone) RETURN n, z.id ORDER BY n.created_at%s",
			searchPredicate("n", query, "content", "id"), limitClause(limit)), "n", "zone_id")
		if err != nil {
			return err
		}

		results = make([]*store.SearchResult, 0, len(rows))
		for _, row := range rows {
			m, err := decodeMemoryRow(row)
			if err != nil {
				return err
			}
			related, err := s.b.Query(ctx, tx, fmt.Sprintf(
				"MATCH (n:Memory)-[]-(o:Memory) WHERE n.id = %s AND o.id <> n.id RETURN DISTINCT o.id",
				Quote(m.ID)), "id")
			if err != nil {
				return err
			}
			results = append(results, &store.SearchResult{
				Memory:           m,
				Score:            searchScore,
				RelatedMemoryIDs: scalarIDs(related),
			})
		}
		return nil
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("memory.search"))
	}
	return results, nil
}

// GetByIDWithRelated returns the memory and every edge touching it, in both
// directions, or nil when it does not exist. A neighbor linked twice is
// listed once per edge.
func (s *MemoryStore) GetByIDWithRelated(ctx context.Context, id string) (*store.MemoryWithRelated, error) {
	var out *store.MemoryWithRelated
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		m, err := getMemory(ctx, s.b, tx, id)
		if err != nil || m == nil {
			return err
		}
		hops, err := graphHops(s.b, tx, "", store.DirectionBoth)(ctx, id)
		if err != nil {
			return err
		}
		out = &store.MemoryWithRelated{Memory: m, Related: directRelated(hops)}
		return nil
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("memory.get_with_related"), cairnerr.FieldMemoryID(id))
	}
	return out, nil
}

// GetRelated walks the graph breadth-first from a memory. Depth defaults
// to 1 and is capped at store.MaxTraversalDepth.
func (s *MemoryStore) GetRelated(ctx context.Context, id string, opts store.TraversalOptions) ([]*store.RelatedNode, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var out []*store.RelatedNode
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if err := requireNode(ctx, s.b, tx, store.LabelMemory, id); err != nil {
			return err
		}
		var err error
		out, err = traverse(ctx, id, opts.Depth, graphHops(s.b, tx, opts.RelationType, opts.Direction))
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("memory.get_related"), cairnerr.FieldMemoryID(id))
	}
	if out == nil {
		out = []*store.RelatedNode{}
	}
	return out, nil
}

// Link creates a relationship from a memory to any node. Existing edges
// are left alone.
func (s *MemoryStore) Link(ctx context.Context, fromID, toID string, relType store.RelationshipType) error {
	spec := store.RelationshipSpec{TargetID: toID, Type: relType}
	if err := spec.Validate(); err != nil {
		return err
	}

	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if relType == store.RelDependsOn {
			return addDependency(ctx, s.b, tx, fromID, toID)
		}
		created, err := createRelationship(ctx, s.b, tx, fromID, toID, relType)
		if err != nil || !created {
			return err
		}
		return touch(ctx, s.b, tx, store.LabelMemory, fromID)
	})
	return cairnerr.With(err, cairnerr.FieldOp("memory.link"),
		cairnerr.Field("from_id", fromID), cairnerr.Field("to_id", toID))
}
