package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Catalog resolves queue names to handles, provisioning the backing tables
// for a queue the first time its name is seen.
type Catalog struct {
	store *Store

	mu      sync.Mutex
	handles map[string]*Queue
}

// NewCatalog wraps a store with a handle cache.
func NewCatalog(store *Store) *Catalog {
	return &Catalog{store: store, handles: make(map[string]*Queue)}
}

// Resolve returns a handle for the named queue, creating its tables when they
// do not exist yet. Provisioning is idempotent: concurrent resolves of the
// same name, including from separate processes, all converge on the same
// structures.
func (c *Catalog) Resolve(ctx context.Context, name string) (*Queue, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.handles[name]; ok {
		return q, nil
	}

	exists, err := c.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := c.provision(ctx, name); err != nil {
			// Another process may have provisioned the queue between the
			// existence check and our DDL; treat that as success.
			if again, checkErr := c.Exists(ctx, name); checkErr != nil || !again {
				return nil, err
			}
		}
	}

	q := newQueue(c.store, name)
	c.handles[name] = q
	return q, nil
}

// Exists reports whether the named queue has been provisioned.
func (c *Catalog) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	query := c.store.dialect.rebind(`SELECT 1 FROM workq_queues WHERE name = ?`)
	var one int
	err := c.store.db.QueryRowContext(ctx, query, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check queue %q: %w", name, err)
	}
	return true, nil
}

// List returns the names of all provisioned queues in lexical order.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	rows, err := c.store.db.QueryContext(ctx, `SELECT name FROM workq_queues ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *Catalog) provision(ctx context.Context, name string) error {
	return c.store.withWriteTx(ctx, func(e execer) error {
		for _, stmt := range c.store.dialect.createQueueStmts(name) {
			if _, err := e.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("provision queue %q: %w", name, err)
			}
		}
		return c.store.dialect.registerQueue(ctx, e, name, nowMillis())
	})
}
