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
var _ store.PlanStore = (*PlanStore)(nil)

// PlanStore implements store.PlanStore on an AGE graph.
type PlanStore struct {
	b *Bridge
}

// NewPlanStore returns a plan repository using b.
func NewPlanStore(b *Bridge) *PlanStore {
	return &PlanStore{b: b}
}

func planProps(p *store.Plan) []prop {
	return append([]prop{
		strProp("name", p.Name),
		strProp("description", p.Description),
		strProp("status", string(p.Status)),
	}, commonProps(store.LabelPlan, p.ID, p.Tags, p.Metadata, p.CreatedAt, p.UpdatedAt)...)
}

// Add creates a plan inside an existing zone.
func (s *PlanStore) Add(ctx context.Context, plan *store.Plan, zoneID string) (*store.Plan, error) {
	if zoneID == "" {
		return nil, zoneIDRequired()
	}
	var out *store.Plan
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if err := requireNode(ctx, s.b, tx, store.LabelZone, zoneID); err != nil {
			return err
		}
		var err error
		out, err = addPlan(ctx, s.b, tx, plan, zoneID)
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("plan.add"), cairnerr.FieldZoneID(zoneID))
	}
	return out, nil
}

// AddWithZone creates a plan. With an empty zoneID a zone named after the
// plan is created first, in the same transaction.
func (s *PlanStore) AddWithZone(ctx context.Context, plan *store.Plan, zoneID string) (*store.Plan, error) {
	if plan == nil {
		return nil, cairnerr.New(cairnerr.CodeStoreInvalidInput, "plan is required")
	}
	var out *store.Plan
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if zoneID == "" {
			zone, err := addZone(ctx, s.b, tx, &store.Zone{
				Name:        plan.Name,
				Description: plan.Description,
			})
			if err != nil {
				return err
			}
			zoneID = zone.ID
		} else if err := requireNode(ctx, s.b, tx, store.LabelZone, zoneID); err != nil {
			return err
		}

		var err error
		out, err = addPlan(ctx, s.b, tx, plan, zoneID)
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("plan.add_with_zone"))
	}
	return out, nil
}

// addPlan inserts the plan node and its BELONGS_TO edge inside tx.
func addPlan(ctx context.Context, b *Bridge, tx pgx.Tx, plan *store.Plan, zoneID string) (*store.Plan, error) {
	if plan == nil {
		return nil, cairnerr.New(cairnerr.CodeStoreInvalidInput, "plan is required")
	}
	p := *plan
	p.ID = newID(p.ID)
	if p.Status == "" {
		p.Status = store.PlanStatusDraft
	}
	p.CreatedAt = nowUTC()
	p.UpdatedAt = p.CreatedAt
	if err := p.Validate(); err != nil {
		return nil, err
	}

	exists, err := nodeExists(ctx, b, tx, store.LabelPlan, p.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, cairnerr.New(cairnerr.CodeStoreConflict, "plan already exists", cairnerr.FieldPlanID(p.ID))
	}

	props, err := createNode(ctx, b, tx, store.LabelPlan, planProps(&p))
	if err != nil {
		return nil, err
	}
	if _, err := createRelationship(ctx, b, tx, p.ID, zoneID, store.RelBelongsTo); err != nil {
		return nil, err
	}

	out := planFromProps(props)
	out.ZoneID = zoneID
	return out, nil
}

// GetByID returns the plan with its zone ID, or nil when it does not exist.
func (s *PlanStore) GetByID(ctx context.Context, id string) (*store.Plan, error) {
	return getPlan(ctx, s.b, nil, id)
}

func getPlan(ctx context.Context, b *Bridge, tx pgx.Tx, id string) (*store.Plan, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (n:Plan) WHERE n.id = %s OPTIONAL MATCH (n)-[:BELONGS_TO]->(z:Zone) RETURN n, z.id",
		Quote(id)), "n", "zone_id")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodePlanRow(rows[0])
}

func decodePlanRow(row []string) (*store.Plan, error) {
	props, err := ParsePayload(row[0])
	if err != nil {
		return nil, err
	}
	plan := planFromProps(props)
	plan.ZoneID = ParseScalarString(row[1])
	return plan, nil
}

// Update applies the non-nil fields of patch and appends relationships.
func (s *PlanStore) Update(ctx context.Context, id string, patch store.PlanPatch) (*store.Plan, error) {
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
	if patch.Status != nil {
		props = append(props, strProp("status", string(*patch.Status)))
	}
	props = append(props, commonPatch(patch.Tags, patch.Metadata)...)

	var out *store.Plan
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := updateNode(ctx, s.b, tx, store.LabelPlan, id, props); err != nil {
			return err
		}
		if err := linkAll(ctx, s.b, tx, id, patch.AddRelationships); err != nil {
			return err
		}
		var err error
		out, err = getPlan(ctx, s.b, tx, id)
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("plan.update"), cairnerr.FieldPlanID(id))
	}
	return out, nil
}

// Delete removes the plan and every task that belongs to no other plan.
func (s *PlanStore) Delete(ctx context.Context, id string) (*store.CascadeResult, error) {
	var res *store.CascadeResult
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if err := requireNode(ctx, s.b, tx, store.LabelPlan, id); err != nil {
			return err
		}
		var err error
		res, err = cascadeDeletePlans(ctx, s.b, tx, []string{id})
		return err
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("plan.delete"), cairnerr.FieldPlanID(id))
	}

	s.b.logger.InfoContext(ctx, "plan deleted",
		"plan_id", id,
		"tasks", res.DeletedTasks,
		"detached_tasks", res.DetachedTasks,
	)
	return res, nil
}

// List returns plans ordered by creation time.
func (s *PlanStore) List(ctx context.Context, filter store.PlanFilter) ([]*store.Plan, error) {
	return listPlans(ctx, s.b, nil, filter)
}

func listPlans(ctx context.Context, b *Bridge, tx pgx.Tx, filter store.PlanFilter) ([]*store.Plan, error) {
	var preds []string
	if filter.Status != "" {
		preds = append(preds, "n.status = "+Quote(string(filter.Status)))
	}
	if filter.Tag != "" {
		preds = append(preds, Quote(filter.Tag)+" IN n.tags")
	}
	if filter.Search != "" {
		preds = append(preds, searchPredicate("n", filter.Search, "name", "description"))
	}

	var cypher string
	if filter.ZoneID != "" {
		preds = append(preds, "z.id = "+Quote(filter.ZoneID))
		cypher = "MATCH (n:Plan)-[:BELONGS_TO]->(z:Zone)" + whereClause(preds)
	} else {
		cypher = "MATCH (n:Plan)" + whereClause(preds) + " OPTIONAL MATCH (n)-[:BELONGS_TO]->(z:Zone)"
	}
	rows, err := b.Query(ctx, tx, cypher+" RETURN n, z.id ORDER BY n.created_at"+limitClause(filter.Limit),
		"n", "zone_id")
	if err != nil {
		return nil, err
	}

	plans := make([]*store.Plan, 0, len(rows))
	for _, row := range rows {
		plan, err := decodePlanRow(row)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// planContents loads a plan's tasks in position order with their outgoing
// DEPENDS_ON and BLOCKS neighbors.
func planContents(ctx context.Context, b *Bridge, tx pgx.Tx, plan *store.Plan) (*store.PlanContents, error) {
	tasks, err := listTasks(ctx, b, tx, store.TaskFilter{PlanID: plan.ID, Limit: unlimited})
	if err != nil {
		return nil, err
	}
	dependsOn, err := planEdges(ctx, b, tx, plan.ID, store.RelDependsOn)
	if err != nil {
		return nil, err
	}
	blocks, err := planEdges(ctx, b, tx, plan.ID, store.RelBlocks)
	if err != nil {
		return nil, err
	}

	pc := &store.PlanContents{Plan: plan, Tasks: make([]*store.TaskSummary, 0, len(tasks))}
	for _, t := range tasks {
		pc.Tasks = append(pc.Tasks, &store.TaskSummary{
			Task:      t,
			DependsOn: dependsOn[t.ID],
			Blocks:    blocks[t.ID],
		})
	}
	return pc, nil
}

// planEdges maps each task of planID to the targets of its relType edges.
func planEdges(ctx context.Context, b *Bridge, tx pgx.Tx, planID string, relType store.RelationshipType) (map[string][]string, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (t:Task)-[:PART_OF]->(p:Plan), (t)-[:%s]->(o) WHERE p.id = %s RETURN t.id, o.id",
		relType, Quote(planID)), "task_id", "target_id")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, row := range rows {
		from, to := ParseScalarString(row[0]), ParseScalarString(row[1])
		out[from] = append(out[from], to)
	}
	return out, nil
}
