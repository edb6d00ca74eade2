package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateSweep(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		return nil
	case BackendPostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("storage.postgres_dsn must be set when storage.backend is \"postgres\"")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendSQLite, BackendPostgres, c.Storage.Backend)
	}
}

func (c *Config) validateSweep() error {
	return ensurePositiveMap(map[string]int{
		"sweep.interval_seconds":      c.Sweep.IntervalSeconds,
		"sweep.lease_max_age_seconds": c.Sweep.LeaseMaxAgeSeconds,
		"sweep.reclaim_limit":         c.Sweep.ReclaimLimit,
		"sweep.collect_limit":         c.Sweep.CollectLimit,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, value)
		}
	}
	return nil
}
