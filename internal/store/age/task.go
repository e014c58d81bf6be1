// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Compile-time interface check.
var _ store.TaskStore = (*TaskStore)(nil)

// TaskStore implements store.TaskStore on an AGE graph.
type TaskStore struct {
	b *Bridge
}

// NewTaskStore returns a task repository using b.
func NewTaskStore(b *Bridge) *TaskStore {
	return &TaskStore{b: b}
}

// taskPos is a task's position on one PART_OF edge.
type taskPos struct {
	ID  string
	Pos float64
}

func taskProps(t *store.Task) []prop {
	return append([]prop{
		strProp("content", t.Content),
		strProp("status", string(t.Status)),
	}, commonProps(store.LabelTask, t.ID, t.Tags, t.Metadata, t.CreatedAt, t.UpdatedAt)...)
}

// Add creates a task and links it into every plan of placement.
func (s *TaskStore) Add(ctx context.Context, task *store.Task, placement store.TaskPlacement) (*store.Task, error) {
	if task == nil {
		return nil, cairnerr.New(cairnerr.CodeStoreInvalidInput, "task is required")
	}
	if err := placement.Validate(); err != nil {
		return nil, err
	}

	t := *task
	t.ID = newID(t.ID)
	if t.Status == "" {
		t.Status = store.TaskStatusPending
	}
	t.CreatedAt = nowUTC()
	t.UpdatedAt = t.CreatedAt
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var out *store.Task
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		for _, planID := range placement.PlanIDs {
			if err := requireNode(ctx, s.b, tx, store.LabelPlan, planID); err != nil {
				return err
			}
		}
		exists, err := nodeExists(ctx, s.b, tx, store.LabelTask, t.ID)
		if err != nil {
			return err
		}
		if exists {
			return cairnerr.New(cairnerr.CodeStoreConflict, "task already exists", cairnerr.FieldTaskID(t.ID))
		}

		props, err := createNode(ctx, s.b, tx, store.LabelTask, taskProps(&t))
		if err != nil {
			return err
		}
		out = taskFromProps(props)

		for i, planID := range placement.PlanIDs {
			pos, err := s.placementPosition(ctx, tx, planID, placement.AfterTaskID, placement.BeforeTaskID)
			if err != nil {
				return err
			}
			if err := linkToPlan(ctx, s.b, tx, t.ID, planID, pos); err != nil {
				return err
			}
			if i == 0 {
				out.Position = pos
			}
		}

		return linkAll(ctx, s.b, tx, t.ID, placement.Relationships)
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("task.add"), cairnerr.FieldTaskID(t.ID))
	}
	return out, nil
}

// placementPosition resolves the position for a task entering planID.
// Anchors not linked to planID are ignored, which appends to the end.
func (s *TaskStore) placementPosition(ctx context.Context, tx pgx.Tx, planID, afterID, beforeID string) (float64, error) {
	ordered, err := planPositions(ctx, s.b, tx, planID)
	if err != nil {
		return 0, err
	}

	positions := make([]float64, len(ordered))
	var afterPos, beforePos float64
	var hasAfter, hasBefore bool
	for i, tp := range ordered {
		positions[i] = tp.Pos
		if afterID != "" && tp.ID == afterID {
			afterPos, hasAfter = tp.Pos, true
		}
		if beforeID != "" && tp.ID == beforeID {
			beforePos, hasBefore = tp.Pos, true
		}
	}
	if (afterID != "" && !hasAfter) || (beforeID != "" && !hasBefore) {
		s.b.logger.DebugContext(ctx, "anchor task not in plan, ignoring it",
			"plan_id", planID,
			"after_task_id", afterID,
			"before_task_id", beforeID,
		)
	}
	if hasAfter && hasBefore && afterPos >= beforePos {
		hasBefore = false
	}

	if !hasAfter && !hasBefore {
		maxPos := 0.0
		if len(positions) > 0 {
			maxPos = positions[len(positions)-1]
		}
		return AppendPosition(maxPos), nil
	}

	lo, hi := neighborBounds(positions, afterPos, beforePos, hasAfter, hasBefore)
	return ComputeInsertPositions(lo, hi, 1)[0], nil
}

// planPositions returns the tasks of planID ordered by position.
func planPositions(ctx context.Context, b *Bridge, tx pgx.Tx, planID string) ([]taskPos, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (t:Task)-[r:PART_OF]->(p:Plan) WHERE p.id = %s RETURN t.id, r.position ORDER BY r.position",
		Quote(planID)), "id", "position")
	if err != nil {
		return nil, err
	}
	out := make([]taskPos, 0, len(rows))
	for _, row := range rows {
		pos, err := ParseFloat(row[1])
		if err != nil {
			return nil, err
		}
		out = append(out, taskPos{ID: ParseScalarString(row[0]), Pos: pos})
	}
	return out, nil
}

// linkToPlan creates the PART_OF edge carrying pos.
func linkToPlan(ctx context.Context, b *Bridge, tx pgx.Tx, taskID, planID string, pos float64) error {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (t:Task), (p:Plan) WHERE t.id = %s AND p.id = %s CREATE (t)-[:PART_OF {position: %s}]->(p) RETURN count(*)",
		Quote(taskID), Quote(planID), floatLiteral(pos)), "count")
	if err != nil {
		return err
	}
	n, err := firstInt(rows)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(store.LabelPlan, planID)
	}
	return nil
}

// GetByID returns the task, or nil when it does not exist.
func (s *TaskStore) GetByID(ctx context.Context, id string) (*store.Task, error) {
	props, ok, err := getNode(ctx, s.b, nil, store.LabelTask, id)
	if err != nil || !ok {
		return nil, err
	}
	return taskFromProps(props), nil
}

// Update applies the non-nil fields of patch and appends relationships.
func (s *TaskStore) Update(ctx context.Context, id string, patch store.TaskPatch) (*store.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var props []prop
	if patch.Content != nil {
		props = append(props, strProp("content", *patch.Content))
	}
	if patch.Status != nil {
		props = append(props, strProp("status", string(*patch.Status)))
	}
	props = append(props, commonPatch(patch.Tags, patch.Metadata)...)

	var out *store.Task
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		updated, err := updateNode(ctx, s.b, tx, store.LabelTask, id, props)
		if err != nil {
			return err
		}
		out = taskFromProps(updated)
		return linkAll(ctx, s.b, tx, id, patch.AddRelationships)
	})
	if err != nil {
		return nil, cairnerr.With(err, cairnerr.FieldOp("task.update"), cairnerr.FieldTaskID(id))
	}
	return out, nil
}

// Delete removes the task and all of its edges.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		return deleteNode(ctx, s.b, tx, store.LabelTask, id)
	})
	return cairnerr.With(err, cairnerr.FieldOp("task.delete"), cairnerr.FieldTaskID(id))
}

// List returns tasks. With PlanID set they come in position order and
// carry their position; otherwise they are ordered by creation time.
func (s *TaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*store.Task, error) {
	return listTasks(ctx, s.b, nil, filter)
}

func listTasks(ctx context.Context, b *Bridge, tx pgx.Tx, filter store.TaskFilter) ([]*store.Task, error) {
	var preds []string
	if filter.Status != "" {
		preds = append(preds, "n.status = "+Quote(string(filter.Status)))
	}
	if filter.Tag != "" {
		preds = append(preds, Quote(filter.Tag)+" IN n.tags")
	}
	if filter.Search != "" {
		preds = append(preds, searchPredicate("n", filter.Search, "content"))
	}

	var rows [][]string
	var err error
	if filter.PlanID != "" {
		preds = append(preds, "p.id = "+Quote(filter.PlanID))
		rows, err = b.Query(ctx, tx, fmt.Sprintf(
			"MATCH (n:Task)-[r:PART_OF]->(p:Plan)%s RETURN n, r.position ORDER BY r.position%s",
			whereClause(preds), limitClause(filter.Limit)), "n", "position")
	} else {
		rows, err = b.Query(ctx, tx, fmt.Sprintf(
			"MATCH (n:Task)%s RETURN n ORDER BY n.created_at%s",
			whereClause(preds), limitClause(filter.Limit)), "n")
	}
	if err != nil {
		return nil, err
	}

	tasks := make([]*store.Task, 0, len(rows))
	for _, row := range rows {
		props, err := ParsePayload(row[0])
		if err != nil {
			return nil, err
		}
		t := taskFromProps(props)
		if len(row) > 1 {
			if t.Position, err = ParseFloat(row[1]); err != nil {
				return nil, err
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdatePositions sets the position of each task on its edge to planID.
// Every task must already belong to the plan.
func (s *TaskStore) UpdatePositions(ctx context.Context, planID string, positions map[string]float64) error {
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		for _, id := range ids {
			if err := setPosition(ctx, s.b, tx, id, planID, positions[id]); err != nil {
				return err
			}
		}
		return nil
	})
	return cairnerr.With(err, cairnerr.FieldOp("task.update_positions"), cairnerr.FieldPlanID(planID))
}

func setPosition(ctx context.Context, b *Bridge, tx pgx.Tx, taskID, planID string, pos float64) error {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (t:Task)-[r:PART_OF]->(p:Plan) WHERE t.id = %s AND p.id = %s "+
			"SET r.position = %s, t.updated_at = %s RETURN count(r)",
		Quote(taskID), Quote(planID), floatLiteral(pos), Quote(formatTime(nowUTC()))), "count")
	if err != nil {
		return err
	}
	n, err := firstInt(rows)
	if err != nil {
		return err
	}
	if n == 0 {
		return cairnerr.New(cairnerr.CodeStoreTaskPositionNotFound, "task is not part of plan",
			cairnerr.FieldTaskID(taskID),
			cairnerr.FieldPlanID(planID))
	}
	return nil
}

// Rebalance renumbers the plan's positions to even increments, keeping
// their current order.
func (s *TaskStore) Rebalance(ctx context.Context, planID string) error {
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if err := requireNode(ctx, s.b, tx, store.LabelPlan, planID); err != nil {
			return err
		}
		ordered, err := planPositions(ctx, s.b, tx, planID)
		if err != nil {
			return err
		}
		for i, pos := range RebalancePositions(len(ordered)) {
			if err := setPosition(ctx, s.b, tx, ordered[i].ID, planID, pos); err != nil {
				return err
			}
		}
		return nil
	})
	return cairnerr.With(err, cairnerr.FieldOp("task.rebalance"), cairnerr.FieldPlanID(planID))
}

// AddToPlan links an existing task into another plan and returns its
// position there. A task already in the plan keeps its position.
func (s *TaskStore) AddToPlan(ctx context.Context, taskID, planID, afterTaskID, beforeTaskID string) (float64, error) {
	var pos float64
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if err := requireNode(ctx, s.b, tx, store.LabelTask, taskID); err != nil {
			return err
		}
		if err := requireNode(ctx, s.b, tx, store.LabelPlan, planID); err != nil {
			return err
		}

		ordered, err := planPositions(ctx, s.b, tx, planID)
		if err != nil {
			return err
		}
		for _, tp := range ordered {
			if tp.ID == taskID {
				pos = tp.Pos
				return nil
			}
		}

		if pos, err = s.placementPosition(ctx, tx, planID, afterTaskID, beforeTaskID); err != nil {
			return err
		}
		if err := linkToPlan(ctx, s.b, tx, taskID, planID, pos); err != nil {
			return err
		}
		return touch(ctx, s.b, tx, store.LabelTask, taskID)
	})
	if err != nil {
		return 0, cairnerr.With(err, cairnerr.FieldOp("task.add_to_plan"),
			cairnerr.FieldTaskID(taskID), cairnerr.FieldPlanID(planID))
	}
	return pos, nil
}

// RemoveFromPlan unlinks a task from one plan. A task must keep at least
// one plan, so removing the last membership is rejected.
func (s *TaskStore) RemoveFromPlan(ctx context.Context, taskID, planID string) error {
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := s.b.Query(ctx, tx, fmt.Sprintf(
			"MATCH (t:Task)-[:PART_OF]->(p:Plan) WHERE t.id = %s RETURN p.id", Quote(taskID)), "id")
		if err != nil {
			return err
		}
		plans := scalarIDs(rows)

		linked := false
		for _, id := range plans {
			if id == planID {
				linked = true
				break
			}
		}
		if !linked {
			return cairnerr.New(cairnerr.CodeStoreTaskPositionNotFound, "task is not part of plan")
		}
		if len(plans) == 1 {
			return cairnerr.New(cairnerr.CodeStoreTaskPlansInvalid, "cannot remove a task from its only plan")
		}

		if _, err := deleteRelationship(ctx, s.b, tx, taskID, planID, store.RelPartOf); err != nil {
			return err
		}
		return touch(ctx, s.b, tx, store.LabelTask, taskID)
	})
	return cairnerr.With(err, cairnerr.FieldOp("task.remove_from_plan"),
		cairnerr.FieldTaskID(taskID), cairnerr.FieldPlanID(planID))
}

// AddDependency records that fromID depends on toID. Edges that would close
// a DEPENDS_ON cycle are rejected.
func (s *TaskStore) AddDependency(ctx context.Context, fromID, toID string) error {
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		if err := requireNode(ctx, s.b, tx, store.LabelTask, fromID); err != nil {
			return err
		}
		if err := requireNode(ctx, s.b, tx, store.LabelTask, toID); err != nil {
			return err
		}
		return addDependency(ctx, s.b, tx, fromID, toID)
	})
	return cairnerr.With(err, cairnerr.FieldOp("task.add_dependency"),
		cairnerr.Field("from_id", fromID), cairnerr.Field("to_id", toID))
}

// RemoveRelationship deletes relType edges from fromID to toID. Missing
// edges are not an error.
func (s *TaskStore) RemoveRelationship(ctx context.Context, fromID, toID string, relType store.RelationshipType) error {
	if relType == store.RelPartOf {
		return s.RemoveFromPlan(ctx, fromID, toID)
	}
	err := s.b.InTx(ctx, func(tx pgx.Tx) error {
		n, err := deleteRelationship(ctx, s.b, tx, fromID, toID, relType)
		if err != nil || n == 0 {
			return err
		}
		return touch(ctx, s.b, tx, store.LabelTask, fromID)
	})
	return cairnerr.With(err, cairnerr.FieldOp("task.remove_relationship"),
		cairnerr.Field("from_id", fromID), cairnerr.Field("to_id", toID))
}
