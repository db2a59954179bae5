package config

import "time"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// TrackerConfig is the root configuration for the volume tracker.
type TrackerConfig struct {
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Poller    PollerConfig    `yaml:"poller"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig holds CoinGecko API settings.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	APIKeyHeader      string        `yaml:"api_key_header"` // x-cg-demo-api-key or x-cg-pro-api-key
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	DefaultRetryAfter time.Duration `yaml:"default_retry_after"`
	VsCurrency        string        `yaml:"vs_currency"`
}

// DatabaseConfig selects and configures the local store.
type DatabaseConfig struct {
	Driver   string       `yaml:"driver"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
	Postgres DBConfig     `yaml:"postgres"`
}

// SQLiteConfig holds the SQLite database file location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PollerConfig holds synchronizer settings.
type PollerConfig struct {
	RetentionDays int     `yaml:"retention_days"`
	SpikeFactor   float64 `yaml:"spike_factor"`
}

// SchedulerConfig holds periodic job settings.
type SchedulerConfig struct {
	Enabled           *bool         `yaml:"enabled"`
	VolumeInterval    time.Duration `yaml:"volume_interval"`
	TokenListInterval time.Duration `yaml:"token_list_interval"`
	PurgeAt           string        `yaml:"purge_at"` // HH:MM, daily
	Timezone          string        `yaml:"timezone"`
}

// IsEnabled reports whether the periodic scheduler should run. Defaults to true.
func (s SchedulerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// MetricsConfig holds the health and Prometheus endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
