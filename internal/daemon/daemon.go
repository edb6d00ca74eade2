package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"workq/internal/api"
	"workq/internal/config"
	"workq/internal/logging"
	"workq/internal/queue"
	"workq/internal/sweeper"
)

// Daemon coordinates the background sweeper and the HTTP API, and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg     *config.Config
	store   *queue.Store
	catalog *queue.Catalog
	service *api.QueueService
	sweep   *sweeper.Sweeper
	logger  *slog.Logger

	sessionID string
	lockPath  string
	lock      *flock.Flock
	apiServer *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	catalog := queue.NewCatalog(store)
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		store:     store,
		catalog:   catalog,
		service:   api.NewQueueService(catalog),
		logger:    logger,
		sessionID: uuid.NewString(),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.sweep = sweeper.New(catalog, sweeper.Options{
		Interval:     cfg.SweepInterval(),
		MaxAge:       cfg.LeaseMaxAge(),
		ReclaimLimit: cfg.Sweep.ReclaimLimit,
		CollectLimit: cfg.Sweep.CollectLimit,
	}, logger)
	return d, nil
}

// Service exposes the shared queue facade for the IPC layer.
func (d *Daemon) Service() *api.QueueService {
	return d.service
}

// Start acquires the daemon lock and launches the sweeper and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another workqd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.sweep.Start(runCtx)

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.sweep.Stop()
		_ = d.lock.Unlock()
		cancel()
		return err
	}
	d.apiServer = srv
	if srv != nil {
		if err := srv.start(runCtx); err != nil {
			d.sweep.Stop()
			_ = d.lock.Unlock()
			cancel()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("workqd started",
		logging.String("session", d.sessionID),
		logging.String("lock", d.lockPath),
		logging.String("backend", d.store.Backend()))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.apiServer != nil {
		d.apiServer.stop()
		d.apiServer = nil
	}
	d.sweep.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("workqd stopped")
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound HTTP API address, or "" when the API is disabled
// or the daemon is not running.
func (d *Daemon) APIAddr() string {
	if d.apiServer == nil || d.apiServer.listener == nil {
		return ""
	}
	return d.apiServer.listener.Addr().String()
}

// SweepNow triggers one immediate sweep pass outside the regular cadence.
func (d *Daemon) SweepNow(ctx context.Context) (sweeper.Result, error) {
	return d.sweep.SweepOnce(ctx)
}

// Status aggregates daemon and store state for the control surfaces.
func (d *Daemon) Status(ctx context.Context) api.StatusResponse {
	status := api.StatusResponse{
		Running:  d.running.Load(),
		Backend:  d.store.Backend(),
		DBPath:   d.store.Path(),
		LockPath: d.lockPath,
		PID:      os.Getpid(),
	}
	stats, err := d.service.Stats(ctx)
	if err != nil {
		d.logger.Warn("collect queue stats", logging.Error(err))
		return status
	}
	status.Queues = stats
	return status
}
