package api

import (
	"context"
	"fmt"
	"time"

	"workq/internal/queue"
)

// QueueService is the application-layer facade over the queue protocol used
// by both the HTTP API and the IPC surface. It translates between transport
// DTOs and internal types; all semantics live in the queue package.
type QueueService struct {
	catalog *queue.Catalog
}

// NewQueueService wraps a catalog.
func NewQueueService(catalog *queue.Catalog) *QueueService {
	return &QueueService{catalog: catalog}
}

// Put appends payloads to the named queue, provisioning it on first use.
func (s *QueueService) Put(ctx context.Context, name string, req PutRequest) (PutResponse, error) {
	if len(req.Payloads) == 0 {
		return PutResponse{}, queue.ErrNoPayloads
	}
	q, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return PutResponse{}, err
	}
	raw := make([][]byte, len(req.Payloads))
	for i, payload := range req.Payloads {
		raw[i] = []byte(payload)
	}
	if err := q.Put(ctx, raw...); err != nil {
		return PutResponse{}, err
	}
	return PutResponse{Count: len(raw)}, nil
}

// Claim creates a lease over up to Limit items of the named queue.
func (s *QueueService) Claim(ctx context.Context, name string, req ClaimRequest) (ClaimResponse, error) {
	q, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return ClaimResponse{}, err
	}
	claim, err := q.Claim(ctx, req.Limit, req.WithAck)
	if err != nil {
		return ClaimResponse{}, err
	}
	return FromClaim(claim), nil
}

// Acknowledge confirms a lease on the named queue.
func (s *QueueService) Acknowledge(ctx context.Context, name string, req AckRequest) (AckResponse, error) {
	q, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return AckResponse{}, err
	}
	ok, err := q.Acknowledge(ctx, req.LeaseID, req.DeleteItems)
	if err != nil {
		return AckResponse{}, err
	}
	return AckResponse{Acknowledged: ok}, nil
}

// Abandon releases a still-pending lease on the named queue.
func (s *QueueService) Abandon(ctx context.Context, name string, req AbandonRequest) (AbandonResponse, error) {
	q, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return AbandonResponse{}, err
	}
	ok, err := q.Abandon(ctx, req.LeaseID)
	if err != nil {
		return AbandonResponse{}, err
	}
	return AbandonResponse{Abandoned: ok}, nil
}

// Reclaim releases leases older than maxAge on the named queue, at most
// limit of them, returning their items to the claimable pool.
func (s *QueueService) Reclaim(ctx context.Context, name string, maxAge time.Duration, limit int) (int64, error) {
	q, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	return q.ReclaimExpired(ctx, maxAge, limit)
}

// Collect deletes up to limit acknowledged items from the named queue.
func (s *QueueService) Collect(ctx context.Context, name string, limit int) (int64, error) {
	q, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	return q.CollectAcknowledged(ctx, limit)
}

// Sweep runs one reclaim pass followed by one collect pass over the named
// queue with the provided bounds.
func (s *QueueService) Sweep(ctx context.Context, name string, maxAge time.Duration, reclaimLimit, collectLimit int) (SweepResponse, error) {
	reclaimed, err := s.Reclaim(ctx, name, maxAge, reclaimLimit)
	if err != nil {
		return SweepResponse{}, fmt.Errorf("reclaim expired: %w", err)
	}
	collected, err := s.Collect(ctx, name, collectLimit)
	if err != nil {
		return SweepResponse{}, fmt.Errorf("collect acknowledged: %w", err)
	}
	return SweepResponse{Reclaimed: reclaimed, Collected: collected}, nil
}

// Queues lists all provisioned queue names.
func (s *QueueService) Queues(ctx context.Context) ([]string, error) {
	return s.catalog.List(ctx)
}

// Stats returns depth counters for every provisioned queue.
func (s *QueueService) Stats(ctx context.Context) ([]QueueStats, error) {
	names, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]QueueStats, 0, len(names))
	for _, name := range names {
		q, err := s.catalog.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		qs, err := q.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("stats for %q: %w", name, err)
		}
		stats = append(stats, FromStats(name, qs))
	}
	return stats, nil
}
