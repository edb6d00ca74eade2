package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// execer is the subset of database handles protocol statements run against:
// *sql.DB for single-statement operations, *sql.Tx or *sql.Conn inside a
// write transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dialect owns the SQL differences between backends: placeholder style, DDL
// types, lease id retrieval, and the claim select's row-locking clause.
type dialect interface {
	name() string

	// rebind rewrites ?-style placeholders into the backend's native style.
	rebind(query string) string

	// createQueueStmts returns the idempotent DDL provisioning one queue.
	createQueueStmts(queue string) []string

	// registryStmts returns the idempotent DDL for the queue name registry.
	registryStmts() []string

	// registerQueue records a queue name in the registry, ignoring duplicates.
	registerQueue(ctx context.Context, e execer, queue string, createdAt int64) error

	// claimLock is appended to selects that reserve rows for update. Empty
	// when writer serialization already guarantees exclusivity.
	claimLock() string

	// insertLease inserts a pending lease and returns its id.
	insertLease(ctx context.Context, e execer, queue string, createdAt int64) (int64, error)
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) rebind(query string) string { return query }

func (sqliteDialect) createQueueStmts(queue string) []string {
	items, leases := itemTable(queue), leaseTable(queue)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at INTEGER NOT NULL
        )`, leases),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            payload BLOB NOT NULL,
            lease_ref INTEGER REFERENCES %s(id) ON DELETE SET NULL
        )`, items, leases),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_lease_ref_idx ON %s (lease_ref)`, items, items),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_status_idx ON %s (status, created_at)`, leases, leases),
	}
}

func (sqliteDialect) registryStmts() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS workq_queues (
            name TEXT PRIMARY KEY,
            created_at INTEGER NOT NULL
        )`,
	}
}

func (sqliteDialect) registerQueue(ctx context.Context, e execer, queue string, createdAt int64) error {
	_, err := e.ExecContext(ctx,
		`INSERT OR IGNORE INTO workq_queues (name, created_at) VALUES (?, ?)`,
		queue, createdAt)
	if err != nil {
		return fmt.Errorf("register queue: %w", err)
	}
	return nil
}

// SQLite has no SKIP LOCKED; claim transactions run under BEGIN IMMEDIATE,
// which serializes writers, so the select needs no locking clause.
func (sqliteDialect) claimLock() string { return "" }

func (sqliteDialect) insertLease(ctx context.Context, e execer, queue string, createdAt int64) (int64, error) {
	res, err := e.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (status, created_at) VALUES (?, ?)`, leaseTable(queue)),
		string(StatusPending), createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert lease: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("lease id: %w", err)
	}
	return id, nil
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) createQueueStmts(queue string) []string {
	items, leases := itemTable(queue), leaseTable(queue)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id BIGSERIAL PRIMARY KEY,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at BIGINT NOT NULL
        )`, leases),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id BIGSERIAL PRIMARY KEY,
            payload BYTEA NOT NULL,
            lease_ref BIGINT REFERENCES %s(id) ON DELETE SET NULL
        )`, items, leases),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_lease_ref_idx ON %s (lease_ref)`, items, items),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_status_idx ON %s (status, created_at)`, leases, leases),
	}
}

func (postgresDialect) registryStmts() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS workq_queues (
            name TEXT PRIMARY KEY,
            created_at BIGINT NOT NULL
        )`,
	}
}

func (postgresDialect) registerQueue(ctx context.Context, e execer, queue string, createdAt int64) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO workq_queues (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		queue, createdAt)
	if err != nil {
		return fmt.Errorf("register queue: %w", err)
	}
	return nil
}

func (postgresDialect) claimLock() string { return " FOR UPDATE SKIP LOCKED" }

// lib/pq does not implement LastInsertId, so the lease insert round-trips
// through RETURNING.
func (postgresDialect) insertLease(ctx context.Context, e execer, queue string, createdAt int64) (int64, error) {
	var id int64
	err := e.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (status, created_at) VALUES ($1, $2) RETURNING id`, leaseTable(queue)),
		string(StatusPending), createdAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert lease: %w", err)
	}
	return id, nil
}
