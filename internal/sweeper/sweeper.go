package sweeper

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"workq/internal/logging"
	"workq/internal/queue"
)

// Options configures the sweep cadence and per-tick bounds.
type Options struct {
	Interval     time.Duration
	MaxAge       time.Duration
	ReclaimLimit int
	CollectLimit int
}

// Result aggregates one pass over every provisioned queue.
type Result struct {
	Reclaimed int64
	Collected int64
}

// Sweeper periodically reclaims expired leases and collects acknowledged
// items across all provisioned queues. The queue core exposes the two
// operations but never self-schedules them; the sweeper is the party that
// invokes them on a cadence.
type Sweeper struct {
	catalog *queue.Catalog
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// New constructs a sweeper over the catalog. A nil logger is replaced with
// the no-op logger.
func New(catalog *queue.Catalog, opts Options, logger *slog.Logger) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.ReclaimLimit <= 0 {
		opts.ReclaimLimit = 1000
	}
	if opts.CollectLimit <= 0 {
		opts.CollectLimit = 1000
	}
	return &Sweeper{
		catalog: catalog,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "sweeper"),
	}
}

// Start launches the background loop. Calling Start on a running sweeper is
// a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	go s.run(ctx, s.stop, s.stopped)
}

// Stop halts the background loop and waits for the in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (s *Sweeper) run(ctx context.Context, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		// Jitter keeps several daemons sharing one database from sweeping in
		// lockstep.
		wait := s.opts.Interval + time.Duration(rng.Int63n(int64(s.opts.Interval/10+1)))
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(wait):
		}

		result, err := s.SweepOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("sweep pass failed", logging.Error(err))
			continue
		}
		if result.Reclaimed > 0 || result.Collected > 0 {
			s.logger.Info("sweep pass",
				logging.Int64("reclaimed", result.Reclaimed),
				logging.Int64("collected", result.Collected))
		}
	}
}

// SweepOnce runs one reclaim plus collect pass over every provisioned queue.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	var result Result

	names, err := s.catalog.List(ctx)
	if err != nil {
		return result, err
	}
	for _, name := range names {
		q, err := s.catalog.Resolve(ctx, name)
		if err != nil {
			return result, err
		}
		reclaimed, err := q.ReclaimExpired(ctx, s.opts.MaxAge, s.opts.ReclaimLimit)
		if err != nil {
			return result, err
		}
		collected, err := q.CollectAcknowledged(ctx, s.opts.CollectLimit)
		if err != nil {
			return result, err
		}
		result.Reclaimed += reclaimed
		result.Collected += collected
		if reclaimed > 0 {
			s.logger.Debug("reclaimed expired leases",
				logging.String(logging.FieldQueue, name),
				logging.Int64("count", reclaimed))
		}
	}
	return result, nil
}
