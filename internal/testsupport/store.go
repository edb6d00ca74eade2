package testsupport

import (
	"context"
	"testing"

	"workq/internal/config"
	"workq/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustResolve provisions a queue through a fresh catalog and returns its handle.
func MustResolve(t testing.TB, store *queue.Store, name string) *queue.Queue {
	t.Helper()

	q, err := queue.NewCatalog(store).Resolve(context.Background(), name)
	if err != nil {
		t.Fatalf("catalog.Resolve(%q): %v", name, err)
	}
	return q
}

// MustPut appends string payloads to a queue.
func MustPut(t testing.TB, q *queue.Queue, payloads ...string) {
	t.Helper()

	raw := make([][]byte, len(payloads))
	for i, payload := range payloads {
		raw[i] = []byte(payload)
	}
	if err := q.Put(context.Background(), raw...); err != nil {
		t.Fatalf("queue.Put: %v", err)
	}
}
