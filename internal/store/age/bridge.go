// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cairn-dev/cairn/internal/config"
	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// dollarTag is the preferred delimiter for the Cypher text inside the SQL
// statement. dollarQuote numbers it when the text would collide.
const dollarTag = "$cairn$"

// seedID marks sentinel nodes created while seeding label tables.
const seedID = "__cairn_seed__"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RetryPolicy controls startup connectivity retries.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy matches the configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 30, InitialDelay: time.Second, MaxDelay: 10 * time.Second}
}

// RetryPolicyFrom converts the configured retry section.
func RetryPolicyFrom(c config.RetryConfig) RetryPolicy {
	return RetryPolicy{MaxAttempts: c.MaxAttempts, InitialDelay: c.InitialDelay, MaxDelay: c.MaxDelay}
}

// backoff returns the wait before retry number attempt (0-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// withRetry runs fn until it succeeds, attempts run out or ctx is done.
func withRetry(ctx context.Context, p RetryPolicy, logger *slog.Logger, fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.backoff(attempt)
		logger.WarnContext(ctx, "database not reachable, retrying",
			"attempt", attempt+1,
			"max_attempts", attempts,
			"wait", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// Bridge owns the connection pool and turns Cypher text into SQL calls
// against the AGE cypher() function.
type Bridge struct {
	pool   *pgxpool.Pool
	graph  string
	logger *slog.Logger
}

// Compile-time interface check.
var _ store.Admin = (*Bridge)(nil)

// Connect opens a pool for cfg and waits for the database with retries.
func Connect(ctx context.Context, cfg config.DatabaseConfig, retry RetryPolicy, logger *slog.Logger) (*Bridge, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, cairnerr.Wrap(err, cairnerr.CodeStoreConnectFailure, "parsing connection config",
			cairnerr.Field("database", cfg.Redacted()))
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	return connect(ctx, pcfg, cfg.Graph, retry, logger)
}

// ConnectURL is Connect for a postgres:// URL or key=value DSN.
func ConnectURL(ctx context.Context, connString, graph string, retry RetryPolicy, logger *slog.Logger) (*Bridge, error) {
	pcfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, cairnerr.Wrap(err, cairnerr.CodeStoreConnectFailure, "parsing connection string")
	}
	return connect(ctx, pcfg, graph, retry, logger)
}

func connect(ctx context.Context, pcfg *pgxpool.Config, graph string, retry RetryPolicy, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if graph == "" {
		return nil, cairnerr.New(cairnerr.CodeStoreInvalidInput, "graph name is required")
	}
	pcfg.AfterConnect = setupSession

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, cairnerr.Wrap(err, cairnerr.CodeStoreConnectFailure, "creating connection pool")
	}

	if err := withRetry(ctx, retry, logger, pool.Ping); err != nil {
		pool.Close()
		return nil, cairnerr.Wrap(err, cairnerr.CodeStoreConnectFailure, "connecting to database",
			cairnerr.Field("host", pcfg.ConnConfig.Host))
	}

	logger.DebugContext(ctx, "connected to database",
		"host", pcfg.ConnConfig.Host,
		"database", pcfg.ConnConfig.Database,
		"graph", graph,
	)
	return &Bridge{pool: pool, graph: graph, logger: logger}, nil
}

// setupSession loads AGE into every pooled connection.
func setupSession(ctx context.Context, conn *pgx.Conn) error {
	if _, err := conn.Exec(ctx, "LOAD 'age'"); err != nil {
		return fmt.Errorf("loading age: %w", err)
	}
	if _, err := conn.Exec(ctx, `SET search_path = ag_catalog, "$user", public`); err != nil {
		return fmt.Errorf("setting search_path: %w", err)
	}
	return nil
}

// Graph returns the name of the AGE graph queries run against.
func (b *Bridge) Graph() string { return b.graph }

// Close closes every pooled connection.
func (b *Bridge) Close() error {
	b.pool.Close()
	return nil
}

// Ping checks that a pooled connection is usable.
func (b *Bridge) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreConnectFailure, "pinging database")
	}
	return nil
}

// Bootstrap creates the extension and graph if missing and seeds every
// node and edge label so that empty label tables can be queried.
func (b *Bridge) Bootstrap(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS age"); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreBootstrapFailure, "creating age extension")
	}

	var exists bool
	row := b.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM ag_catalog.ag_graph WHERE name = $1)", b.graph)
	if err := row.Scan(&exists); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreBootstrapFailure, "looking up graph",
			cairnerr.Field("graph", b.graph))
	}
	if !exists {
		if _, err := b.pool.Exec(ctx, "SELECT ag_catalog.create_graph($1)", b.graph); err != nil {
			return cairnerr.Wrap(err, cairnerr.CodeStoreBootstrapFailure, "creating graph",
				cairnerr.Field("graph", b.graph))
		}
		b.logger.InfoContext(ctx, "created graph", "graph", b.graph)
	}

	err := b.InTx(ctx, func(tx pgx.Tx) error {
		for _, label := range store.NodeLabels {
			create := fmt.Sprintf("CREATE (:%s {id: %s})", label, Quote(seedID))
			if err := b.Exec(ctx, tx, create); err != nil {
				return err
			}
		}
		for _, rel := range store.RelationshipTypes {
			create := fmt.Sprintf("CREATE (:%s {id: %s})-[:%s]->(:%s {id: %s})",
				store.LabelZone, Quote(seedID), rel, store.LabelZone, Quote(seedID))
			if err := b.Exec(ctx, tx, create); err != nil {
				return err
			}
		}
		return b.Exec(ctx, tx, fmt.Sprintf("MATCH (n) WHERE n.id = %s DETACH DELETE n", Quote(seedID)))
	})
	if err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreBootstrapFailure, "seeding labels",
			cairnerr.Field("graph", b.graph))
	}
	return nil
}

// DropGraph deletes the graph and all of its data. A missing graph is not
// an error.
func (b *Bridge) DropGraph(ctx context.Context) error {
	var exists bool
	row := b.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM ag_catalog.ag_graph WHERE name = $1)", b.graph)
	if err := row.Scan(&exists); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreQueryFailure, "looking up graph",
			cairnerr.Field("graph", b.graph))
	}
	if !exists {
		return nil
	}
	if _, err := b.pool.Exec(ctx, "SELECT ag_catalog.drop_graph($1, true)", b.graph); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreQueryFailure, "dropping graph",
			cairnerr.Field("graph", b.graph))
	}
	b.logger.InfoContext(ctx, "dropped graph", "graph", b.graph)
	return nil
}

// CountNodes returns the number of nodes carrying label.
func (b *Bridge) CountNodes(ctx context.Context, label store.Label) (int, error) {
	rows, err := b.Query(ctx, nil,
		fmt.Sprintf("MATCH (n) WHERE label(n) = %s RETURN count(n)", Quote(string(label))), "count")
	if err != nil {
		return 0, err
	}
	return firstInt(rows)
}

// statement wraps cypher in the SQL call to cypher() with one agtype
// column per name in columns.
func (b *Bridge) statement(cypher string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", cairnerr.New(cairnerr.CodeStoreQueryFailure, "at least one result column is required")
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		if !isIdentifier(col) {
			return "", cairnerr.Errorf(cairnerr.CodeStoreQueryFailure, "invalid result column name %q", col)
		}
		defs[i] = col + " agtype"
	}

	tag := dollarQuote(cypher)
	return fmt.Sprintf("SELECT * FROM cypher('%s', %s %s %s) AS (%s)",
		b.graph, tag, cypher, tag, strings.Join(defs, ", ")), nil
}

// dollarQuote returns a dollar-quote tag that cannot close early inside
// text: $cairn$, else $cairn1$, $cairn2$ and so on. The text is followed by
// a space in the statement, so only occurrences inside it matter.
func dollarQuote(text string) string {
	tag := dollarTag
	for i := 1; strings.Contains(text, tag); i++ {
		tag = "$cairn" + strconv.Itoa(i) + "$"
	}
	return tag
}

func (b *Bridge) on(tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return b.pool
}

// Query runs cypher and returns each row's columns as agtype text. SQL NULL
// becomes "". A nil tx runs on the pool.
func (b *Bridge) Query(ctx context.Context, tx pgx.Tx, cypher string, columns ...string) ([][]string, error) {
	sql, err := b.statement(cypher, columns)
	if err != nil {
		return nil, err
	}
	b.logger.DebugContext(ctx, "cypher query", "query", cypher)

	rows, err := b.on(tx).Query(ctx, sql)
	if err != nil {
		return nil, queryError(err, cypher)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, queryError(err, cypher)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = agtypeText(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, cypher)
	}
	return out, nil
}

// Exec runs cypher and discards any rows.
func (b *Bridge) Exec(ctx context.Context, tx pgx.Tx, cypher string) error {
	sql, err := b.statement(cypher, []string{"_"})
	if err != nil {
		return err
	}
	b.logger.DebugContext(ctx, "cypher exec", "query", cypher)

	if _, err := b.on(tx).Exec(ctx, sql); err != nil {
		return queryError(err, cypher)
	}
	return nil
}

// InTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on error or panic.
func (b *Bridge) InTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreTransactionFailure, "beginning transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			b.rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			b.rollback(ctx, tx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return cairnerr.Wrap(err, cairnerr.CodeStoreTransactionFailure, "committing transaction")
	}
	return nil
}

func (b *Bridge) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		b.logger.WarnContext(ctx, "rollback failed", "error", err)
	}
}

// queryError classifies a driver error. Serialization failures and unique
// violations are conflicts; everything else is a query failure.
func queryError(err error, cypher string) error {
	code := cairnerr.CodeStoreQueryFailure
	fields := []cairnerr.Attr{cairnerr.Field("query", cypher)}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields = append(fields, cairnerr.Field("sqlstate", pgErr.Code))
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			code = cairnerr.CodeStoreConflict
		}
	}
	return cairnerr.Wrap(err, code, "executing cypher", fields...)
}

// agtypeText renders a scanned agtype value as text.
func agtypeText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// firstInt parses the first column of the first row as an integer count.
func firstInt(rows [][]string) (int, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	f, err := ParseFloat(rows[0][0])
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
