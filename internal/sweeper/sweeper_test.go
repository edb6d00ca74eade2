package sweeper_test

import (
	"context"
	"testing"
	"time"

	"workq/internal/queue"
	"workq/internal/sweeper"
	"workq/internal/testsupport"
)

func TestSweepOnceReclaimsAndCollects(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := queue.NewCatalog(store)

	ctx := context.Background()
	q, err := catalog.Resolve(ctx, "jobs")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	testsupport.MustPut(t, q, "a", "b", "c")

	// One acknowledged lease whose items are collectable, one pending lease
	// that an expiry threshold of zero treats as dead.
	done, err := q.Claim(ctx, 1, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if won, err := q.Acknowledge(ctx, done.LeaseID, false); err != nil || !won {
		t.Fatalf("acknowledge = (%v, %v), want won", won, err)
	}
	if _, err := q.Claim(ctx, 1, true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	s := sweeper.New(catalog, sweeper.Options{MaxAge: 0, ReclaimLimit: 10, CollectLimit: 10}, nil)
	result, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if result.Reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", result.Reclaimed)
	}
	if result.Collected != 1 {
		t.Fatalf("collected = %d, want 1", result.Collected)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Unclaimed != 2 {
		t.Fatalf("stats = %+v, want the reclaimed item plus the never-claimed one", stats)
	}
}

func TestSweepOnceSpansQueues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := queue.NewCatalog(store)

	ctx := context.Background()
	for _, name := range []string{"first", "second"} {
		q, err := catalog.Resolve(ctx, name)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", name, err)
		}
		testsupport.MustPut(t, q, "payload")
		if _, err := q.Claim(ctx, 1, true); err != nil {
			t.Fatalf("claim on %q failed: %v", name, err)
		}
	}

	s := sweeper.New(catalog, sweeper.Options{MaxAge: 0, ReclaimLimit: 10, CollectLimit: 10}, nil)
	result, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if result.Reclaimed != 2 {
		t.Fatalf("reclaimed = %d, want one lease per queue", result.Reclaimed)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := queue.NewCatalog(store)

	s := sweeper.New(catalog, sweeper.Options{
		Interval:     10 * time.Millisecond,
		MaxAge:       time.Hour,
		ReclaimLimit: 10,
		CollectLimit: 10,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Start(ctx) // second Start is a no-op

	time.Sleep(50 * time.Millisecond)
	s.Stop()
	s.Stop() // second Stop is a no-op
}
