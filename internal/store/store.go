// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import "context"

// ZoneStore manages zones and their cascading lifecycle.
type ZoneStore interface {
	Add(ctx context.Context, zone *Zone) (*Zone, error)
	// GetByID returns nil, nil when the zone does not exist.
	GetByID(ctx context.Context, id string) (*Zone, error)
	Update(ctx context.Context, id string, patch ZonePatch) (*Zone, error)
	Delete(ctx context.Context, id string) (*CascadeResult, error)
	List(ctx context.Context, filter ZoneFilter) ([]*Zone, error)
	GetWithContents(ctx context.Context, id string) (*ZoneContents, error)
}

// PlanStore manages plans.
type PlanStore interface {
	Add(ctx context.Context, plan *Plan, zoneID string) (*Plan, error)
	// AddWithZone creates a zone named after the plan when zoneID is empty.
	AddWithZone(ctx context.Context, plan *Plan, zoneID string) (*Plan, error)
	GetByID(ctx context.Context, id string) (*Plan, error)
	Update(ctx context.Context, id string, patch PlanPatch) (*Plan, error)
	Delete(ctx context.Context, id string) (*CascadeResult, error)
	List(ctx context.Context, filter PlanFilter) ([]*Plan, error)
}

// TaskStore manages tasks, their plan membership and ordering.
type TaskStore interface {
	Add(ctx context.Context, task *Task, placement TaskPlacement) (*Task, error)
	GetByID(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) (*Task, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)

	// Ordering within a plan.
	UpdatePositions(ctx context.Context, planID string, positions map[string]float64) error
	Rebalance(ctx context.Context, planID string) error
	AddToPlan(ctx context.Context, taskID, planID, afterTaskID, beforeTaskID string) (float64, error)
	RemoveFromPlan(ctx context.Context, taskID, planID string) error

	// Dependencies between tasks are cycle-checked.
	AddDependency(ctx context.Context, fromID, toID string) error
	RemoveRelationship(ctx context.Context, fromID, toID string, relType RelationshipType) error
}

// MemoryStore manages memories, search and graph neighborhoods.
type MemoryStore interface {
	Add(ctx context.Context, memory *Memory, zoneID string, rels []RelationshipSpec) (*Memory, error)
	GetByID(ctx context.Context, id string) (*Memory, error)
	Update(ctx context.Context, id string, patch MemoryPatch) (*Memory, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter MemoryFilter) ([]*Memory, error)

	Search(ctx context.Context, query string, limit int) ([]*SearchResult, error)
	GetByIDWithRelated(ctx context.Context, id string) (*MemoryWithRelated, error)
	GetRelated(ctx context.Context, id string, opts TraversalOptions) ([]*RelatedNode, error)
	Link(ctx context.Context, fromID, toID string, relType RelationshipType) error
}
