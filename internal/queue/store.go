package queue

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"workq/internal/config"
)

// Store owns the database connection and dialect for the configured backend.
type Store struct {
	db      *sql.DB
	dialect dialect
	backend string
	path    string // sqlite database file, empty for postgres
}

// Open connects to the configured storage backend and initializes the queue
// registry. The sqlite backend creates its database file under the data
// directory on first use.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	store := &Store{backend: cfg.Storage.Backend}
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		path := cfg.SQLitePath()
		db, err := sql.Open("sqlite", sqliteDSN(path))
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		store.db = db
		store.dialect = sqliteDialect{}
		store.path = path
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		store.db = db
		store.dialect = postgresDialect{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Storage.Backend)
	}

	if err := store.initRegistry(context.Background()); err != nil {
		_ = store.db.Close()
		return nil, err
	}
	return store, nil
}

// sqliteDSN builds a connection string that applies the required pragmas on
// every pooled connection; pragmas issued with Exec bind to a single
// connection only.
func sqliteDSN(path string) string {
	return "file:" + filepath.ToSlash(path) + "?" + url.Values{
		"_pragma": []string{
			"journal_mode(WAL)",
			"busy_timeout(5000)",
			"foreign_keys(1)",
		},
	}.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the storage collaborator is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Backend reports the configured backend name.
func (s *Store) Backend() string {
	return s.backend
}

// Path reports the sqlite database file path; empty for postgres.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initRegistry(ctx context.Context) error {
	for _, stmt := range s.dialect.registryStmts() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init queue registry: %w", err)
		}
	}
	return nil
}

// withWriteTx runs fn inside a write transaction. On sqlite the transaction
// starts with BEGIN IMMEDIATE so the write lock is taken up front and
// concurrent claimers serialize instead of failing on lock upgrade; on
// postgres an ordinary transaction suffices because the claim select locks
// rows with SKIP LOCKED.
func (s *Store) withWriteTx(ctx context.Context, fn func(e execer) error) error {
	if s.backend == config.BackendSQLite {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			return fmt.Errorf("begin immediate: %w", err)
		}
		committed := false
		defer func() {
			if !committed {
				_, _ = conn.ExecContext(ctx, "ROLLBACK")
			}
		}()
		if err := fn(conn); err != nil {
			return err
		}
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		committed = true
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
