package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"workq/internal/queue"
	"workq/internal/testsupport"
)

func payloadsToStrings(raw [][]byte) []string {
	out := make([]string, len(raw))
	for i, p := range raw {
		out[i] = string(p)
	}
	return out
}

func TestClaimReturnsItemsInInsertionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "a", "b", "c", "d")

	first, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if got := payloadsToStrings(first.Payloads); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("first claim payloads = %v, want [a b]", got)
	}

	second, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if got := payloadsToStrings(second.Payloads); len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("second claim payloads = %v, want [c d]", got)
	}
	if first.LeaseID == second.LeaseID {
		t.Fatalf("expected distinct lease ids, both were %d", first.LeaseID)
	}
}

func TestClaimTruncatesToAvailableItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "only")

	claim, err := q.Claim(ctx, 10, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(claim.Payloads) != 1 || string(claim.Payloads[0]) != "only" {
		t.Fatalf("claim payloads = %v, want [only]", payloadsToStrings(claim.Payloads))
	}
}

func TestClaimOnEmptyQueueAutoAcknowledges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	claim, err := q.Claim(ctx, 5, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(claim.Payloads) != 0 {
		t.Fatalf("expected no payloads, got %v", payloadsToStrings(claim.Payloads))
	}

	// The empty lease was auto-acknowledged, so a later ack must lose.
	won, err := q.Acknowledge(ctx, claim.LeaseID, false)
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if won {
		t.Fatal("acknowledge of an auto-acknowledged lease should return false")
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingLeases != 0 || stats.DoneLeases != 1 {
		t.Fatalf("stats = %+v, want 0 pending / 1 done lease", stats)
	}
}

func TestClaimWithoutAckAutoAcknowledges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "x", "y")

	claim, err := q.Claim(ctx, 2, false)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(claim.Payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(claim.Payloads))
	}

	won, err := q.Acknowledge(ctx, claim.LeaseID, false)
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if won {
		t.Fatal("fire-and-forget lease should already be acknowledged")
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Acknowledged != 2 || stats.Unclaimed != 0 {
		t.Fatalf("stats = %+v, want 2 acknowledged items", stats)
	}
}

func TestClaimRejectsBadLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	for _, limit := range []int{0, -3} {
		if _, err := q.Claim(context.Background(), limit, true); err != queue.ErrBadLimit {
			t.Fatalf("Claim(limit=%d) error = %v, want ErrBadLimit", limit, err)
		}
	}
}

func TestPutRequiresPayloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	if err := q.Put(context.Background()); err != queue.ErrNoPayloads {
		t.Fatalf("Put() error = %v, want ErrNoPayloads", err)
	}
}

func TestAcknowledgeWinsExactlyOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "work")

	claim, err := q.Claim(ctx, 1, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	won, err := q.Acknowledge(ctx, claim.LeaseID, false)
	if err != nil {
		t.Fatalf("first acknowledge failed: %v", err)
	}
	if !won {
		t.Fatal("first acknowledge should win")
	}

	won, err = q.Acknowledge(ctx, claim.LeaseID, false)
	if err != nil {
		t.Fatalf("second acknowledge failed: %v", err)
	}
	if won {
		t.Fatal("second acknowledge should lose")
	}

	// Unknown lease ids lose too.
	won, err = q.Acknowledge(ctx, claim.LeaseID+1000, false)
	if err != nil {
		t.Fatalf("unknown acknowledge failed: %v", err)
	}
	if won {
		t.Fatal("acknowledge of unknown lease should return false")
	}
}

func TestAcknowledgeDeleteItemsRemovesLeaseAndItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "a", "b", "c")

	claim, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	won, err := q.Acknowledge(ctx, claim.LeaseID, true)
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if !won {
		t.Fatal("acknowledge should win")
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalItems() != 1 || stats.Unclaimed != 1 {
		t.Fatalf("stats = %+v, want only the unclaimed item left", stats)
	}
	if stats.PendingLeases != 0 || stats.DoneLeases != 0 {
		t.Fatalf("stats = %+v, want no lease records left", stats)
	}
}

func TestAbandonReturnsItemsToPool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "a", "b")

	claim, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	won, err := q.Abandon(ctx, claim.LeaseID)
	if err != nil {
		t.Fatalf("abandon failed: %v", err)
	}
	if !won {
		t.Fatal("abandon of a pending lease should win")
	}

	redelivered, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("reclaim claim failed: %v", err)
	}
	if got := payloadsToStrings(redelivered.Payloads); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("redelivered payloads = %v, want [a b]", got)
	}
}

func TestAbandonLosesAgainstAcknowledge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "work")

	claim, err := q.Claim(ctx, 1, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if won, err := q.Acknowledge(ctx, claim.LeaseID, false); err != nil || !won {
		t.Fatalf("acknowledge = (%v, %v), want won", won, err)
	}

	won, err := q.Abandon(ctx, claim.LeaseID)
	if err != nil {
		t.Fatalf("abandon failed: %v", err)
	}
	if won {
		t.Fatal("abandon after acknowledge should lose")
	}

	// The acknowledged item must not return to the pool.
	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Unclaimed != 0 || stats.Acknowledged != 1 {
		t.Fatalf("stats = %+v, want the item to stay acknowledged", stats)
	}
}

func TestReclaimExpiredRedeliversAbandonedWork(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "a", "b")

	claim, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	// maxAge zero treats every pending lease as expired.
	reclaimed, err := q.ReclaimExpired(ctx, 0, 10)
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed)
	}

	// The dead consumer's ack must now lose.
	won, err := q.Acknowledge(ctx, claim.LeaseID, false)
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if won {
		t.Fatal("acknowledge of a reclaimed lease should return false")
	}

	redelivered, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("claim after reclaim failed: %v", err)
	}
	if got := payloadsToStrings(redelivered.Payloads); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("redelivered payloads = %v, want [a b]", got)
	}
}

func TestReclaimExpiredLeavesYoungLeasesAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "work")

	if _, err := q.Claim(ctx, 1, true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	reclaimed, err := q.ReclaimExpired(ctx, time.Hour, 10)
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("reclaimed = %d, want 0 for a young lease", reclaimed)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Leased != 1 || stats.PendingLeases != 1 {
		t.Fatalf("stats = %+v, want the lease untouched", stats)
	}
}

func TestReclaimExpiredSkipsAcknowledgedLeases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "work")

	claim, err := q.Claim(ctx, 1, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if won, err := q.Acknowledge(ctx, claim.LeaseID, false); err != nil || !won {
		t.Fatalf("acknowledge = (%v, %v), want won", won, err)
	}

	reclaimed, err := q.ReclaimExpired(ctx, 0, 10)
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("reclaimed = %d, want 0; acknowledged leases are permanent", reclaimed)
	}
}

func TestCollectAcknowledgedIsBounded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "a", "b", "c", "d")

	claim, err := q.Claim(ctx, 4, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if won, err := q.Acknowledge(ctx, claim.LeaseID, false); err != nil || !won {
		t.Fatalf("acknowledge = (%v, %v), want won", won, err)
	}

	deleted, err := q.CollectAcknowledged(ctx, 2)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("collected = %d, want 2", deleted)
	}

	deleted, err = q.CollectAcknowledged(ctx, 10)
	if err != nil {
		t.Fatalf("second collect failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("second collect = %d, want the remaining 2", deleted)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalItems() != 0 {
		t.Fatalf("stats = %+v, want no items left", stats)
	}
	if stats.DoneLeases != 1 {
		t.Fatalf("stats = %+v, want the completion record kept", stats)
	}
}

func TestCollectAcknowledgedIgnoresPendingAndUnclaimed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "unclaimed", "leased")

	if _, err := q.Claim(ctx, 1, true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	deleted, err := q.CollectAcknowledged(ctx, 10)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("collected = %d, want 0 while nothing is acknowledged", deleted)
	}
}

func TestConcurrentClaimsNeverOverlap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	const total = 40
	payloads := make([]string, total)
	for i := range payloads {
		payloads[i] = fmt.Sprintf("item-%03d", i)
	}
	testsupport.MustPut(t, q, payloads...)

	const workers = 8
	results := make([][]string, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for {
				claim, err := q.Claim(ctx, 3, true)
				if err != nil {
					t.Errorf("claim failed: %v", err)
					return
				}
				if len(claim.Payloads) == 0 {
					return
				}
				results[idx] = append(results[idx], payloadsToStrings(claim.Payloads)...)
				if _, err := q.Acknowledge(ctx, claim.LeaseID, false); err != nil {
					t.Errorf("acknowledge failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[string]int, total)
	for _, batch := range results {
		for _, payload := range batch {
			seen[payload]++
		}
	}
	if len(seen) != total {
		t.Fatalf("claimed %d distinct payloads, want %d", len(seen), total)
	}
	for payload, count := range seen {
		if count != 1 {
			t.Fatalf("payload %s delivered %d times", payload, count)
		}
	}
}

func TestStatsCountsEveryBucket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustResolve(t, store, "jobs")

	ctx := context.Background()
	testsupport.MustPut(t, q, "a", "b", "c", "d", "e")

	acked, err := q.Claim(ctx, 2, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if won, err := q.Acknowledge(ctx, acked.LeaseID, false); err != nil || !won {
		t.Fatalf("acknowledge = (%v, %v), want won", won, err)
	}
	if _, err := q.Claim(ctx, 1, true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	want := queue.Stats{
		Unclaimed:     2,
		Leased:        1,
		Acknowledged:  2,
		PendingLeases: 1,
		DoneLeases:    1,
	}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestQueuesAreIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.MustResolve(t, store, "first")
	second := testsupport.MustResolve(t, store, "second")

	ctx := context.Background()
	testsupport.MustPut(t, first, "from-first")

	claim, err := second.Claim(ctx, 5, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(claim.Payloads) != 0 {
		t.Fatalf("second queue returned payloads %v from first queue", payloadsToStrings(claim.Payloads))
	}

	claim, err = first.Claim(ctx, 5, true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(claim.Payloads) != 1 || string(claim.Payloads[0]) != "from-first" {
		t.Fatalf("first queue payloads = %v, want [from-first]", payloadsToStrings(claim.Payloads))
	}
}
