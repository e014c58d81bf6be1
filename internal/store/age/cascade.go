// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cairn-dev/cairn/internal/store"
)

// cascadeDeletePlans removes planIDs and every task that belongs to no
// other plan. Tasks still linked elsewhere only lose their edge to the
// deleted plans. Must run inside tx.
func cascadeDeletePlans(ctx context.Context, b *Bridge, tx pgx.Tx, planIDs []string) (*store.CascadeResult, error) {
	res := &store.CascadeResult{}
	if len(planIDs) == 0 {
		return res, nil
	}
	ids := idList(planIDs)

	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (t:Task)-[:PART_OF]->(p:Plan) WHERE p.id IN %s RETURN DISTINCT t.id", ids), "id")
	if err != nil {
		return nil, err
	}

	for _, taskID := range scalarIDs(rows) {
		others, err := b.Query(ctx, tx, fmt.Sprintf(
			"MATCH (t:Task)-[:PART_OF]->(p:Plan) WHERE t.id = %s AND NOT (p.id IN %s) RETURN count(p)",
			Quote(taskID), ids), "count")
		if err != nil {
			return nil, err
		}
		n, err := firstInt(others)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			res.DetachedTasks++
			continue
		}
		if err := b.Exec(ctx, tx, fmt.Sprintf(
			"MATCH (t:Task) WHERE t.id = %s DETACH DELETE t", Quote(taskID))); err != nil {
			return nil, err
		}
		res.DeletedTasks++
	}

	count, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (p:Plan) WHERE p.id IN %s RETURN count(p)", ids), "count")
	if err != nil {
		return nil, err
	}
	if res.DeletedPlans, err = firstInt(count); err != nil {
		return nil, err
	}
	if err := b.Exec(ctx, tx, fmt.Sprintf(
		"MATCH (p:Plan) WHERE p.id IN %s DETACH DELETE p", ids)); err != nil {
		return nil, err
	}
	return res, nil
}

// cascadeDeleteZone removes a zone with its plans, their exclusive tasks
// and its memories. Must run inside tx.
func cascadeDeleteZone(ctx context.Context, b *Bridge, tx pgx.Tx, zoneID string) (*store.CascadeResult, error) {
	if err := requireNode(ctx, b, tx, store.LabelZone, zoneID); err != nil {
		return nil, err
	}
	zone := Quote(zoneID)

	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (p:Plan)-[:BELONGS_TO]->(z:Zone) WHERE z.id = %s RETURN p.id", zone), "id")
	if err != nil {
		return nil, err
	}
	res, err := cascadeDeletePlans(ctx, b, tx, scalarIDs(rows))
	if err != nil {
		return nil, err
	}

	mems, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (m:Memory)-[:BELONGS_TO]->(z:Zone) WHERE z.id = %s RETURN count(m)", zone), "count")
	if err != nil {
		return nil, err
	}
	if res.DeletedMemories, err = firstInt(mems); err != nil {
		return nil, err
	}
	if res.DeletedMemories > 0 {
		if err := b.Exec(ctx, tx, fmt.Sprintf(
			"MATCH (m:Memory)-[:BELONGS_TO]->(z:Zone) WHERE z.id = %s DETACH DELETE m", zone)); err != nil {
			return nil, err
		}
	}

	if err := b.Exec(ctx, tx, fmt.Sprintf("MATCH (z:Zone) WHERE z.id = %s DETACH DELETE z", zone)); err != nil {
		return nil, err
	}
	return res, nil
}
