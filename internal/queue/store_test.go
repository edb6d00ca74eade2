package queue_test

import (
	"context"
	"errors"
	"testing"

	"workq/internal/config"
	"workq/internal/queue"
	"workq/internal/testsupport"
)

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Backend = "memcached"

	if _, err := queue.Open(cfg); !errors.Is(err, queue.ErrUnknownBackend) {
		t.Fatalf("Open error = %v, want ErrUnknownBackend", err)
	}
}

func TestOpenReportsBackendAndPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if store.Backend() != config.BackendSQLite {
		t.Fatalf("backend = %q, want sqlite", store.Backend())
	}
	if store.Path() != cfg.SQLitePath() {
		t.Fatalf("path = %q, want %q", store.Path(), cfg.SQLitePath())
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	q, err := queue.NewCatalog(first).Resolve(context.Background(), "jobs")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	testsupport.MustPut(t, q, "persisted")
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	q, err = queue.NewCatalog(second).Resolve(context.Background(), "jobs")
	if err != nil {
		t.Fatalf("Resolve after reopen: %v", err)
	}
	claim, err := q.Claim(context.Background(), 1, true)
	if err != nil {
		t.Fatalf("Claim after reopen: %v", err)
	}
	if len(claim.Payloads) != 1 || string(claim.Payloads[0]) != "persisted" {
		t.Fatalf("payloads = %v, want [persisted]", claim.Payloads)
	}
}
