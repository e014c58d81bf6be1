// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"errors"
	"fmt"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidRelationshipType reports whether t is in the edge vocabulary.
func ValidRelationshipType(t RelationshipType) bool {
	for _, known := range RelationshipTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Valid reports whether the status is a known plan lifecycle state.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusActive, PlanStatusCompleted, PlanStatusArchived:
		return true
	default:
		return false
	}
}

// Valid reports whether the status is a known task lifecycle state.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Valid reports whether d is a traversal direction.
func (d Direction) Valid() bool {
	return d == DirectionOutgoing || d == DirectionIncoming || d == DirectionBoth
}

var (
	planStatusRule = validation.In(PlanStatusDraft, PlanStatusActive, PlanStatusCompleted, PlanStatusArchived)
	taskStatusRule = validation.In(TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled, TaskStatusBlocked)
)

// Validate checks that the Zone has all required fields set.
func (z Zone) Validate() error {
	return invalid("zone", validation.ValidateStruct(&z,
		validation.Field(&z.Name, validation.Required),
	))
}

// Validate checks that the Plan has all required fields set correctly.
func (p Plan) Validate() error {
	return invalid("plan", validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Status, validation.Required, planStatusRule),
	))
}

// Validate checks that the Task has all required fields set correctly.
func (t Task) Validate() error {
	return invalid("task", validation.ValidateStruct(&t,
		validation.Field(&t.Content, validation.Required),
		validation.Field(&t.Status, validation.Required, taskStatusRule),
	))
}

// Validate checks that the Memory has all required fields set.
func (m Memory) Validate() error {
	return invalid("memory", validation.ValidateStruct(&m,
		validation.Field(&m.Content, validation.Required),
		validation.Field(&m.Type, validation.Required),
	))
}

// Validate checks the target and edge type of a relationship request.
// An unknown type is reported with its own code so callers can tell it
// apart from a missing target.
func (r RelationshipSpec) Validate() error {
	if !ValidRelationshipType(r.Type) {
		return cairnerr.New(cairnerr.CodeStoreRelationshipInvalid,
			fmt.Sprintf("relationship: unknown type %q", r.Type),
			cairnerr.Field("relationship_type", string(r.Type)))
	}
	return invalid("relationship", validation.ValidateStruct(&r,
		validation.Field(&r.TargetID, validation.Required),
	))
}

// ValidateRelationships checks every spec and returns the first failure.
func ValidateRelationships(specs []RelationshipSpec) error {
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a status patch against the plan lifecycle.
func (p PlanPatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return cairnerr.New(cairnerr.CodeStoreInvalidInput, "plan: name cannot be blank")
	}
	if p.Status != nil && !p.Status.Valid() {
		return cairnerr.Errorf(cairnerr.CodeStoreInvalidInput, "plan: invalid status %q", *p.Status)
	}
	return ValidateRelationships(p.AddRelationships)
}

// Validate checks a task patch.
func (p TaskPatch) Validate() error {
	if p.Content != nil && *p.Content == "" {
		return cairnerr.New(cairnerr.CodeStoreInvalidInput, "task: content cannot be blank")
	}
	if p.Status != nil && !p.Status.Valid() {
		return cairnerr.Errorf(cairnerr.CodeStoreInvalidInput, "task: invalid status %q", *p.Status)
	}
	return ValidateRelationships(p.AddRelationships)
}

// Validate checks a memory patch.
func (p MemoryPatch) Validate() error {
	if p.Content != nil && *p.Content == "" {
		return cairnerr.New(cairnerr.CodeStoreInvalidInput, "memory: content cannot be blank")
	}
	if p.Type != nil && *p.Type == "" {
		return cairnerr.New(cairnerr.CodeStoreInvalidInput, "memory: type cannot be blank")
	}
	return ValidateRelationships(p.AddRelationships)
}

// Validate checks a zone patch.
func (p ZonePatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return cairnerr.New(cairnerr.CodeStoreInvalidInput, "zone: name cannot be blank")
	}
	return nil
}

// Validate checks that a placement names at least one plan and valid edges.
func (p TaskPlacement) Validate() error {
	if len(p.PlanIDs) == 0 {
		return cairnerr.New(cairnerr.CodeStoreTaskPlansInvalid, "task: at least one plan ID is required")
	}
	for _, id := range p.PlanIDs {
		if id == "" {
			return cairnerr.New(cairnerr.CodeStoreTaskPlansInvalid, "task: plan ID must not be empty")
		}
	}
	if p.AfterTaskID != "" && p.AfterTaskID == p.BeforeTaskID {
		return cairnerr.New(cairnerr.CodeStoreInvalidInput, "task: after and before anchors must differ")
	}
	return ValidateRelationships(p.Relationships)
}

// Validate checks the direction and depth of a traversal request.
func (o TraversalOptions) Validate() error {
	if o.Direction != "" && !o.Direction.Valid() {
		return cairnerr.Errorf(cairnerr.CodeStoreInvalidInput, "traversal: invalid direction %q", o.Direction)
	}
	if o.RelationType != "" && !ValidRelationshipType(o.RelationType) {
		return cairnerr.New(cairnerr.CodeStoreRelationshipInvalid,
			fmt.Sprintf("traversal: unknown relationship type %q", o.RelationType))
	}
	return nil
}

// invalid converts an ozzo validation error into a coded invalid-input error.
func invalid(entity string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return cairnerr.Errorf(cairnerr.CodeStoreInvalidInput, "%s: %s", entity, verrs.Error())
	}
	return cairnerr.Errorf(cairnerr.CodeStoreInvalidInput, "%s: %w", entity, err)
}
