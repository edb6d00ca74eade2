package testsupport

import (
	"path/filepath"
	"testing"

	"workq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test,
// using the sqlite backend.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Daemon.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSweep overrides the sweep timing values on the test config.
func WithSweep(intervalSeconds, maxAgeSeconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sweep.IntervalSeconds = intervalSeconds
		cfg.Sweep.LeaseMaxAgeSeconds = maxAgeSeconds
	}
}
