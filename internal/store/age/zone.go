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
var _ store.ZoneStore = (*ZoneStore)(nil)

// ZoneStore implements store.ZoneStore on an AGE graph.
type ZoneStore struct {
	b *Bridge
}

// NewZoneStore returns a zone repository using b.
func NewZoneStore(b *Bridge) *ZoneStore {
	return &ZoneStore{b: b}
}

func zoneProps(z *store.Zone) []prop {
	return append([]prop{
		strProp("name", z.Name),
		strProp("description", z.Description),
	}, commonProps(store.LabelZone, z.ID, z.Tags, z.Metadata, z.CreatedAt, z.UpdatedAt)...)
}

// Add creates a zone. An empty ID is replaced by a new UUID.
func (s *ZoneStore) Add(ctx context.Context, zone *store.Zone) (*store.Zone, error) {
	var out *store.Zone
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = addZone(ctx, s.b, tx, zone)
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("zone.add"))
	}
	return out, nil
}

// addZone inserts a zone inside tx. Shared with plan creation.
func addZone(ctx context.Context, b *Bridge, tx pgx.Tx, zone *store.Zone) (*store.Zone, error) {
	if zone == nil {
		return nil, cairnerr.New(cairnerr.CodeStoreInvalidInput, "zone is required")
	}
	z := *zone
	z.ID = newID(z.ID)
	z.CreatedAt = nowUTC()
	z.UpdatedAt = z.CreatedAt
	if err := z.Validate(); err != nil {
		return nil, err
	}

	exists, err := nodeExists(ctx, b, tx, store.LabelZone, z.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, cairnerr.New(cairnerr.CodeStoreConflict, "zone already exists", cairnerr.FieldZoneID(z.ID))
	}

	props, err := createNode(ctx, b, tx, store.LabelZone, zoneProps(&z))
	if err != nil {
		return nil, err
	}
	return zoneFromProps(props), nil
}

// GetByID returns the zone, or nil when it does not exist.
func (s *ZoneStore) GetByID(ctx context.Context, id string) (*store.Zone, error) {
	props, ok, err := getNode(ctx, s.b, nil, store.LabelZone, id)
	if err != nil || !ok {
		return nil, err
	}
	return zoneFromProps(props), nil
}

// Update applies the non-nil fields of patch.
func (s *ZoneStore) Update(ctx context.Context, id string, patch store.ZonePatch) (*store.Zone, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var props []prop
	if patch.Name != nil {
		props = append(props, strProp("name", *patch.Name))
	}
	if patch.Description != nil {
		props = append(props, strProp("description", *patch.Description))
	}
	props = append(props, commonPatch(patch.Tags, patch.Metadata)...)

	updated, err := updateNode(ctx, s.b, nil, store.LabelZone, id, props)
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("zone.update"), cairnerr.FieldZoneID(id))
	}
	return zoneFromProps(updated), nil
}

// Delete removes the zone with its plans, exclusive tasks and memories.
func (s *ZoneStore) Delete(ctx context.Context, id string) (*store.CascadeResult, error) {
	var res *store.CascadeResult
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		res, err = cascadeDeleteZone(ctx, s.b, tx, id)
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("zone.delete"), cairnerr.FieldZoneID(id))
	}

	s.b.logger.InfoContext(ctx, "zone deleted",
		"zone_id", id,
		"plans", res.DeletedPlans,
		"tasks", res.DeletedTasks,
		"memories", res.DeletedMemories,
		"detached_tasks", res.DetachedTasks,
	)
	return res, nil
}

// List returns zones ordered by creation time.
func (s *ZoneStore) List(ctx context.Context, filter store.ZoneFilter) ([]*store.Zone, error) {
	return listZones(ctx, s.b, nil, filter)
}

func listZones(ctx context.Context, b *Bridge, tx pgx.Tx, filter store.ZoneFilter) ([]*store.Zone, error) {
	var preds []string
	if filter.Search != "" {
		preds = append(preds, searchPredicate("n", filter.Search, "name", "description"))
	}

	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (n:Zone)%s RETURN n ORDER BY n.created_at%s",
		whereClause(preds), limitClause(filter.Limit)), "n")
	if err != nil {
		return nil, err
	}

	zones := make([]*store.Zone, 0, len(rows))
	for _, row := range rows {
		props, err := ParsePayload(row[0])
		if err != nil {
			return nil, err
		}
		zones = append(zones, zoneFromProps(props))
	}
	return zones, nil
}

// GetWithContents loads the zone, its plans with ordered tasks and its
// memories from one transaction. Returns nil when the zone is missing.
func (s *ZoneStore) GetWithContents(ctx context.Context, id string) (*store.ZoneContents, error) {
	var out *store.ZoneContents
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		props, ok, err := getNode(ctx, s.b, tx, store.LabelZone, id)
		if err != nil || !ok {
			return err
		}
		contents := &store.ZoneContents{Zone: zoneFromProps(props)}

		plans, err := listPlans(ctx, s.b, tx, store.PlanFilter{ZoneID: id, Limit: unlimited})
		if err != nil {
			return err
		}
		contents.Plans = make([]*store.PlanContents, 0, len(plans))
		for _, plan := range plans {
			pc, err := planContents(ctx, s.b, tx, plan)
			if err != nil {
				return err
			}
			contents.Plans = append(contents.Plans, pc)
		}

		contents.Memories, err = listMemories(ctx, s.b, tx, store.MemoryFilter{ZoneID: id, Limit: unlimited})
		if err != nil {
			return err
		}
		out = contents
		return nil
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("zone.get_with_contents"), cairnerr.FieldZoneID(id))
	}
	return out, nil
}
