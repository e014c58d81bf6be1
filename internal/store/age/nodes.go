// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// prop is one property assignment rendered into a Cypher map or SET clause.
type prop struct {
	key   string
	value string // already a Cypher literal
}

func strProp(key, value string) prop {
	return prop{key: key, value: Quote(value)}
}

func rawProp(key, literal string) prop {
	return prop{key: key, value: literal}
}

// commonProps returns the properties shared by every node kind.
func commonProps(label store.Label, id string, tags []string, metadata map[string]string, created, updated time.Time) []prop {
	return []prop{
		strProp("id", id),
		rawProp("tags", TagsLiteral(tags)),
		strProp("metadata", MetadataToJSON(metadata)),
		strProp("created_at", formatTime(created)),
		strProp("updated_at", formatTime(updated)),
		strProp("node_type", label.NodeType()),
	}
}

func propMap(props []prop) string {
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = p.key + ": " + p.value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func setClause(variable string, props []prop) string {
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = variable + "." + p.key + " = " + p.value
	}
	return "SET " + strings.Join(parts, ", ")
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// nowUTC is the timestamp source for every write.
func nowUTC() time.Time { return time.Now().UTC() }

// createNode inserts a node and returns its stored properties.
func createNode(ctx context.Context, b *Bridge, tx pgx.Tx, label store.Label, props []prop) (map[string]any, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf("CREATE (n:%s %s) RETURN n", label, propMap(props)), "n")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, cairnerr.Errorf(cairnerr.CodeStoreQueryFailure, "creating %s returned no row", label)
	}
	return ParsePayload(rows[0][0])
}

// getNode loads one node by ID. The bool is false when no node matched.
func getNode(ctx context.Context, b *Bridge, tx pgx.Tx, label store.Label, id string) (map[string]any, bool, error) {
	rows, err := b.Query(ctx, tx,
		fmt.Sprintf("MATCH (n:%s) WHERE n.id = %s RETURN n", label, Quote(id)), "n")
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	props, err := ParsePayload(rows[0][0])
	return props, err == nil, err
}

// nodeExists reports whether a node with label and id exists.
func nodeExists(ctx context.Context, b *Bridge, tx pgx.Tx, label store.Label, id string) (bool, error) {
	rows, err := b.Query(ctx, tx,
		fmt.Sprintf("MATCH (n:%s) WHERE n.id = %s RETURN count(n)", label, Quote(id)), "count")
	if err != nil {
		return false, err
	}
	n, err := firstInt(rows)
	return n > 0, err
}

// requireNode fails with a not-found error when the node is missing.
func requireNode(ctx context.Context, b *Bridge, tx pgx.Tx, label store.Label, id string) error {
	ok, err := nodeExists(ctx, b, tx, label, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(label, id)
	}
	return nil
}

// updateNode applies props to a node and returns the updated properties.
func updateNode(ctx context.Context, b *Bridge, tx pgx.Tx, label store.Label, id string, props []prop) (map[string]any, error) {
	rows, err := b.Query(ctx, tx, fmt.Sprintf("MATCH (n:%s) WHERE n.id = %s %s RETURN n",
		label, Quote(id), setClause("n", props)), "n")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound(label, id)
	}
	return ParsePayload(rows[0][0])
}

// deleteNode detaches and deletes a node, failing when it does not exist.
func deleteNode(ctx context.Context, b *Bridge, tx pgx.Tx, label store.Label, id string) error {
	if err := requireNode(ctx, b, tx, label, id); err != nil {
		return err
	}
	return b.Exec(ctx, tx, fmt.Sprintf("MATCH (n:%s) WHERE n.id = %s DETACH DELETE n", label, Quote(id)))
}

// touch bumps updated_at on a node.
func touch(ctx context.Context, b *Bridge, tx pgx.Tx, label store.Label, id string) error {
	return b.Exec(ctx, tx, fmt.Sprintf("MATCH (n:%s) WHERE n.id = %s SET n.updated_at = %s",
		label, Quote(id), Quote(formatTime(nowUTC()))))
}

// scalarIDs decodes the first column of rows as string IDs.
func scalarIDs(rows [][]string) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if id := ParseScalarString(row[0]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func notFound(label store.Label, id string) error {
	return cairnerr.New(cairnerr.CodeStoreEntityNotFound,
		fmt.Sprintf("%s not found", strings.ToLower(string(label))),
		cairnerr.Field("label", string(label)),
		cairnerr.Field("id", id))
}

func zoneIDRequired() error {
	return cairnerr.New(cairnerr.CodeStoreInvalidInput, "zone ID is required")
}

// commonPatch renders the tag and metadata parts of a patch plus updated_at.
func commonPatch(tags *[]string, metadata *map[string]string) []prop {
	var props []prop
	if tags != nil {
		props = append(props, rawProp("tags", TagsLiteral(*tags)))
	}
	if metadata != nil {
		props = append(props, strProp("metadata", MetadataToJSON(*metadata)))
	}
	return append(props, strProp("updated_at", formatTime(nowUTC())))
}

// --- Decoding ---

func zoneFromProps(p map[string]any) *store.Zone {
	return &store.Zone{
		ID:          propString(p, "id"),
		Name:        propString(p, "name"),
		Description: propString(p, "description"),
		Tags:        propTags(p, "tags"),
		Metadata:    JSONToMetadata(propString(p, "metadata")),
		CreatedAt:   propTime(p, "created_at"),
		UpdatedAt:   propTime(p, "updated_at"),
	}
}

func planFromProps(p map[string]any) *store.Plan {
	return &store.Plan{
		ID:          propString(p, "id"),
		Name:        propString(p, "name"),
		Description: propString(p, "description"),
		Status:      store.PlanStatus(propString(p, "status")),
		Tags:        propTags(p, "tags"),
		Metadata:    JSONToMetadata(propString(p, "metadata")),
		CreatedAt:   propTime(p, "created_at"),
		UpdatedAt:   propTime(p, "updated_at"),
	}
}

func taskFromProps(p map[string]any) *store.Task {
	return &store.Task{
		ID:        propString(p, "id"),
		Content:   propString(p, "content"),
		Status:    store.TaskStatus(propString(p, "status")),
		Tags:      propTags(p, "tags"),
		Metadata:  JSONToMetadata(propString(p, "metadata")),
		CreatedAt: propTime(p, "created_at"),
		UpdatedAt: propTime(p, "updated_at"),
	}
}

func memoryFromProps(p map[string]any) *store.Memory {
	return &store.Memory{
		ID:        propString(p, "id"),
		Type:      propString(p, "type"),
		Content:   propString(p, "content"),
		Tags:      propTags(p, "tags"),
		Metadata:  JSONToMetadata(propString(p, "metadata")),
		CreatedAt: propTime(p, "created_at"),
		UpdatedAt: propTime(p, "updated_at"),
	}
}

// displayName picks a short human label for any node kind.
func displayName(p map[string]any) string {
	if name := propString(p, "name"); name != "" {
		return name
	}
	return truncate(propString(p, "content"), 80)
}

// searchPredicate renders a case-insensitive substring match over fields.
func searchPredicate(variable, query string, fields ...string) string {
	q := Quote(strings.ToLower(query))
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("toLower(coalesce(%s.%s, '')) CONTAINS %s", variable, f, q)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// unlimited disables the row limit of internal list queries.
const unlimited = -1

// limitClause renders the LIMIT for a filter, applying the default limit
// when none is set.
func limitClause(limit int) string {
	if limit == unlimited {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", store.ClampLimit(limit))
}

// whereClause joins non-empty predicates with AND.
func whereClause(preds []string) string {
	if len(preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(preds, " AND ")
}
