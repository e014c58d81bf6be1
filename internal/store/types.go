// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import "time"

// --- Node labels ---

// Label identifies a node kind in the graph.
type Label string

const (
	LabelZone   Label = "Zone"
	LabelPlan   Label = "Plan"
	LabelTask   Label = "Task"
	LabelMemory Label = "Memory"
)

// NodeLabels lists every node kind a relationship endpoint may have.
var NodeLabels = []Label{LabelZone, LabelPlan, LabelTask, LabelMemory}

// NodeType returns the lower-case node_type property value for the label.
func (l Label) NodeType() string {
	switch l {
	case LabelZone:
		return "zone"
	case LabelPlan:
		return "plan"
	case LabelTask:
		return "task"
	case LabelMemory:
		return "memory"
	default:
		return ""
	}
}

// --- Relationship types ---

// RelationshipType is one of the closed set of edge labels.
type RelationshipType string

const (
	RelRelatesTo  RelationshipType = "RELATES_TO"
	RelPartOf     RelationshipType = "PART_OF"
	RelReferences RelationshipType = "REFERENCES"
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelBlocks     RelationshipType = "BLOCKS"
	RelFollows    RelationshipType = "FOLLOWS"
	RelImplements RelationshipType = "IMPLEMENTS"
	RelBelongsTo  RelationshipType = "BELONGS_TO"
)

// RelationshipTypes is the full edge vocabulary.
var RelationshipTypes = []RelationshipType{
	RelRelatesTo, RelPartOf, RelReferences, RelDependsOn,
	RelBlocks, RelFollows, RelImplements, RelBelongsTo,
}

// Direction selects which edges a neighborhood query follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// --- Statuses ---

// PlanStatus represents the lifecycle state of a plan.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusArchived  PlanStatus = "archived"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// --- Nodes ---

// Zone is the top-level workspace container for plans and memories.
type Zone struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"updated_at"`
}

// Plan is a named, ordered collection of tasks inside one zone.
type Plan struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Status      PlanStatus        `json:"status" yaml:"status"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"updated_at"`
	// ZoneID is read from the BELONGS_TO edge; it is not a node property.
	ZoneID string `json:"zone_id,omitempty" yaml:"zone_id,omitempty"`
}

// Task is a unit of work. The same task may appear in several plans.
type Task struct {
	ID        string            `json:"id" yaml:"id"`
	Content   string            `json:"content" yaml:"content"`
	Status    TaskStatus        `json:"status" yaml:"status"`
	Tags      []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at"`
	// Position is the PART_OF edge position. Only set when the task was
	// read in the context of a single plan.
	Position float64 `json:"position,omitempty" yaml:"position,omitempty"`
}

// Memory is a free-form note that can be linked to any node.
type Memory struct {
	ID        string            `json:"id" yaml:"id"`
	Type      string            `json:"type" yaml:"type"`
	Content   string            `json:"content" yaml:"content"`
	Tags      []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at"`
	ZoneID    string            `json:"zone_id,omitempty" yaml:"zone_id,omitempty"`
}

// DefaultMemoryType is used when a memory is added without a type.
const DefaultMemoryType = "Memory"

// --- Relationships ---

// Relationship is a directed edge between two nodes.
type Relationship struct {
	FromID string           `json:"from_id" yaml:"from_id"`
	ToID   string           `json:"to_id" yaml:"to_id"`
	Type   RelationshipType `json:"type" yaml:"type"`
}

// RelationshipSpec requests an outgoing edge from the node being written.
type RelationshipSpec struct {
	TargetID string           `json:"target_id" yaml:"target_id"`
	Type     RelationshipType `json:"type" yaml:"type"`
}

// RelatedNode is a neighbor reached from an origin node.
type RelatedNode struct {
	ID        string           `json:"id" yaml:"id"`
	Label     Label            `json:"label" yaml:"label"`
	Name      string           `json:"name,omitempty" yaml:"name,omitempty"`
	Relation  RelationshipType `json:"relation" yaml:"relation"`
	Direction Direction        `json:"direction" yaml:"direction"`
	Depth     int              `json:"depth" yaml:"depth"`
}

// TraversalOptions constrains Memory.GetRelated.
type TraversalOptions struct {
	RelationType RelationshipType
	Direction    Direction
	Depth        int
}

// MaxTraversalDepth bounds breadth-first expansion.
const MaxTraversalDepth = 5

// --- Aggregates ---

// TaskSummary is a task with its outgoing dependency and blocks neighbors.
type TaskSummary struct {
	Task      *Task    `json:"task" yaml:"task"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Blocks    []string `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

// PlanContents is a plan with its tasks in position order.
type PlanContents struct {
	Plan  *Plan          `json:"plan" yaml:"plan"`
	Tasks []*TaskSummary `json:"tasks" yaml:"tasks"`
}

// ZoneContents is a zone eagerly loaded with everything it owns.
type ZoneContents struct {
	Zone     *Zone           `json:"zone" yaml:"zone"`
	Plans    []*PlanContents `json:"plans" yaml:"plans"`
	Memories []*Memory       `json:"memories" yaml:"memories"`
}

// MemoryWithRelated is a memory plus its one-hop neighborhood.
type MemoryWithRelated struct {
	Memory  *Memory        `json:"memory" yaml:"memory"`
	Related []*RelatedNode `json:"related" yaml:"related"`
}

// SearchResult is one memory search hit.
type SearchResult struct {
	Memory *Memory `json:"memory" yaml:"memory"`
	// Score is constant; hits are not ranked.
	Score            float64  `json:"score" yaml:"score"`
	RelatedMemoryIDs []string `json:"related_memory_ids,omitempty" yaml:"related_memory_ids,omitempty"`
}

// CascadeResult reports what a cascading delete removed.
type CascadeResult struct {
	DeletedPlans    int `json:"deleted_plans" yaml:"deleted_plans"`
	DeletedTasks    int `json:"deleted_tasks" yaml:"deleted_tasks"`
	DeletedMemories int `json:"deleted_memories" yaml:"deleted_memories"`
	// DetachedTasks survived because another plan still references them.
	DetachedTasks int `json:"detached_tasks" yaml:"detached_tasks"`
}

// --- Filters ---

// DefaultListLimit applies when a filter leaves Limit unset.
const DefaultListLimit = 100

// ZoneFilter selects zones.
type ZoneFilter struct {
	Search string // case-insensitive substring of name or description
	Limit  int
}

// PlanFilter selects plans.
type PlanFilter struct {
	ZoneID string
	Status PlanStatus
	Tag    string
	Search string
	Limit  int
}

// TaskFilter selects tasks. With PlanID set, results are in position order.
type TaskFilter struct {
	PlanID string
	Status TaskStatus
	Tag    string
	Search string
	Limit  int
}

// MemoryFilter selects memories.
type MemoryFilter struct {
	ZoneID string
	Type   string
	Tag    string
	Limit  int
}

// --- Patches ---

// ZonePatch updates only non-nil fields.
type ZonePatch struct {
	Name        *string
	Description *string
	Tags        *[]string
	Metadata    *map[string]string
}

// PlanPatch updates only non-nil fields and appends relationships.
type PlanPatch struct {
	Name             *string
	Description      *string
	Status           *PlanStatus
	Tags             *[]string
	Metadata         *map[string]string
	AddRelationships []RelationshipSpec
}

// TaskPatch updates only non-nil fields and appends relationships.
type TaskPatch struct {
	Content          *string
	Status           *TaskStatus
	Tags             *[]string
	Metadata         *map[string]string
	AddRelationships []RelationshipSpec
}

// MemoryPatch updates only non-nil fields and appends relationships.
type MemoryPatch struct {
	Type             *string
	Content          *string
	Tags             *[]string
	Metadata         *map[string]string
	AddRelationships []RelationshipSpec
}

// TaskPlacement describes where a new task goes.
type TaskPlacement struct {
	PlanIDs       []string
	Relationships []RelationshipSpec
	// AfterTaskID and BeforeTaskID anchor the task inside every listed
	// plan. Both empty appends to the end.
	AfterTaskID  string
	BeforeTaskID string
}

// ClampLimit returns limit, or DefaultListLimit when limit is not positive.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
