package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *TrackerConfig) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.MaxBackoff < c.API.RetryBackoff {
		return fmt.Errorf("api.max_backoff (%s) cannot be less than retry_backoff (%s)", c.API.MaxBackoff, c.API.RetryBackoff)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	case DriverPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if c.Poller.RetentionDays < 1 {
		return errors.New("poller.retention_days must be >= 1")
	}
	if c.Poller.SpikeFactor <= 0 {
		return errors.New("poller.spike_factor must be > 0")
	}

	if c.Scheduler.VolumeInterval < time.Second {
		return errors.New("scheduler.volume_interval must be >= 1s")
	}
	if c.Scheduler.TokenListInterval < time.Second {
		return errors.New("scheduler.token_list_interval must be >= 1s")
	}
	if _, err := time.Parse("15:04", c.Scheduler.PurgeAt); err != nil {
		return fmt.Errorf("scheduler.purge_at must be HH:MM, got %q", c.Scheduler.PurgeAt)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") || c.Metrics.Path == "/health" {
		return fmt.Errorf("metrics.path must start with / and differ from /health, got %q", c.Metrics.Path)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
