// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// endpointLabels returns the labels allowed at each end of relType.
// Types without a structural meaning accept any node kind.
func endpointLabels(relType store.RelationshipType) (from, to []store.Label) {
	switch relType {
	case store.RelPartOf:
		return []store.Label{store.LabelTask}, []store.Label{store.LabelPlan}
	case store.RelBelongsTo:
		return []store.Label{store.LabelPlan, store.LabelMemory}, []store.Label{store.LabelZone}
	default:
		return store.NodeLabels, store.NodeLabels
	}
}

func labelList(labels []store.Label) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = Quote(string(l))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// relationshipCount counts relType edges from fromID to toID.
func relationshipCount(ctx context.Context, b *Bridge, tx pgx.Tx, fromID, toID string, relType store.RelationshipType) (int, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (a)-[r:%s]->(b) WHERE a.id = %s AND b.id = %s RETURN count(r)",
		relType, Quote(fromID), Quote(toID)), "count")
	if err != nil {
		return 0, err
	}
	return firstInt(rows)
}

// createRelationship adds a relType edge unless one already exists. AGE has
// no MERGE for edges, so this checks first and then creates. It reports
// whether a new edge was written.
func createRelationship(ctx context.Context, b *Bridge, tx pgx.Tx, fromID, toID string, relType store.RelationshipType) (bool, error) {
	if !store.ValidRelationshipType(relType) {
		return false, cairnerr.New(cairnerr.CodeStoreRelationshipInvalid,
			fmt.Sprintf("unknown relationship type %q", relType),
			cairnerr.Field("relationship_type", string(relType)))
	}

	existing, err := relationshipCount(ctx, b, tx, fromID, toID, relType)
	if err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	fromLabels, toLabels := endpointLabels(relType)
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH (a), (b) WHERE a.id = %s AND b.id = %s AND label(a) IN %s AND label(b) IN %s "+
			"CREATE (a)-[:%s]->(b) RETURN count(*)",
		Quote(fromID), Quote(toID), labelList(fromLabels), labelList(toLabels), relType), "count")
	if err != nil {
		return false, err
	}
	created, err := firstInt(rows)
	if err != nil {
		return false, err
	}
	if created == 0 {
		return false, cairnerr.New(cairnerr.CodeStoreEntityNotFound, "relationship endpoint not found",
			cairnerr.Field("from_id", fromID),
			cairnerr.Field("to_id", toID),
			cairnerr.Field("relationship_type", string(relType)))
	}
	return true, nil
}

// deleteRelationship removes every relType edge from fromID to toID and
// returns how many were removed.
func deleteRelationship(ctx context.Context, b *Bridge, tx pgx.Tx, fromID, toID string, relType store.RelationshipType) (int, error) {
	if !store.ValidRelationshipType(relType) {
		return 0, cairnerr.New(cairnerr.CodeStoreRelationshipInvalid,
			fmt.Sprintf("unknown relationship type %q", relType),
			cairnerr.Field("relationship_type", string(relType)))
	}

	n, err := relationshipCount(ctx, b, tx, fromID, toID, relType)
	if err != nil || n == 0 {
		return 0, err
	}
	err = b.Exec(ctx, tx, fmt.Sprintf(
		"MATCH (a)-[r:%s]->(b) WHERE a.id = %s AND b.id = %s DELETE r",
		relType, Quote(fromID), Quote(toID)))
	if err != nil {
		return 0, err
	}
	return n, nil
}

// dependencyPathExists reports whether fromID already reaches toID through
// DEPENDS_ON edges.
func dependencyPathExists(ctx context.Context, b *Bridge, tx pgx.Tx, fromID, toID string) (bool, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf(
		"MATCH p = (a:Task)-[:DEPENDS_ON*1..]->(b:Task) WHERE a.id = %s AND b.id = %s RETURN count(p)",
		Quote(fromID), Quote(toID)), "count")
	if err != nil {
		return false, err
	}
	n, err := firstInt(rows)
	return n > 0, err
}

// dependencyLockKey names the advisory lock serializing dependency writers.
const dependencyLockKey = "cairn.depends_on"

// lockDependencies takes the transaction-scoped advisory lock that
// serializes cycle checks. It is held until the outermost transaction
// ends, so a concurrent writer's check runs after this one's edge commits.
func lockDependencies(ctx context.Context, b *Bridge, tx pgx.Tx) error {
	if _, err := b.on(tx).Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", dependencyLockKey); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreTransactionFailure, "locking dependency graph")
	}
	return nil
}

// addDependency creates fromID DEPENDS_ON toID unless the edge would close a
// cycle. The check and the write share tx and run under the dependency
// lock.
func addDependency(ctx context.Context, b *Bridge, tx pgx.Tx, fromID, toID string) error {
	if fromID == toID {
		return cairnerr.New(cairnerr.CodeStoreDependencyCycle, "a task cannot depend on itself",
			cairnerr.FieldTaskID(fromID))
	}
	if err := lockDependencies(ctx, b, tx); err != nil {
		return err
	}

	cycle, err := dependencyPathExists(ctx, b, tx, toID, fromID)
	if err != nil {
		return err
	}
	if cycle {
		return cairnerr.New(cairnerr.CodeStoreDependencyCycle, "dependency would create a cycle",
			cairnerr.Field("from_id", fromID),
			cairnerr.Field("to_id", toID))
	}

	_, err = createRelationship(ctx, b, tx, fromID, toID, store.RelDependsOn)
	return err
}

// linkAll creates every requested relationship from fromID. Dependency
// cycles are returned as errors; any other failure is logged and skipped.
// Each edge runs under its own savepoint so a failed statement does not
// abort tx.
func linkAll(ctx context.Context, b *Bridge, tx pgx.Tx, fromID string, specs []store.RelationshipSpec) error {
	for _, spec := range specs {
		err := savepoint(ctx, tx, func(sp pgx.Tx) error {
			if spec.Type == store.RelDependsOn {
				return addDependency(ctx, b, sp, fromID, spec.TargetID)
			}
			_, err := createRelationship(ctx, b, sp, fromID, spec.TargetID, spec.Type)
			return err
		})
		if cairnerr.IsCycle(err) {
			return err
		}
		if err != nil {
			b.logger.WarnContext(ctx, "skipping relationship",
				"from_id", fromID,
				"to_id", spec.TargetID,
				"type", spec.Type,
				"error", err,
			)
		}
	}
	return nil
}

// savepoint runs fn in a nested transaction of tx and rolls only that
// nested part back on error.
func savepoint(ctx context.Context, tx pgx.Tx, fn func(sp pgx.Tx) error) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreTransactionFailure, "creating savepoint")
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(context.WithoutCancel(ctx))
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreTransactionFailure, "releasing savepoint")
	}
	return nil
}
