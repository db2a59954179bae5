package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://api.coingecko.com/api/v3"
	DefaultAPIKeyHeader      = "x-cg-demo-api-key"
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 5
	DefaultRetryBackoff      = 2 * time.Second
	DefaultMaxBackoff        = 2 * time.Minute
	DefaultRetryAfter        = 30 * time.Second
	DefaultVsCurrency        = "usd"
	DefaultDriver            = DriverSQLite
	DefaultSQLitePath        = "token_data.db"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultRetentionDays     = 21
	DefaultSpikeFactor       = 2.0
	DefaultVolumeInterval    = time.Hour
	DefaultTokenListInterval = time.Hour
	DefaultPurgeAt           = "00:01"
	DefaultTimezone          = "UTC"
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// ApplyDefaults fills zero-valued optional fields.
func (c *TrackerConfig) ApplyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.APIKeyHeader == "" {
		c.API.APIKeyHeader = DefaultAPIKeyHeader
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}
	if c.API.MaxBackoff == 0 {
		c.API.MaxBackoff = DefaultMaxBackoff
	}
	if c.API.DefaultRetryAfter == 0 {
		c.API.DefaultRetryAfter = DefaultRetryAfter
	}
	if c.API.VsCurrency == "" {
		c.API.VsCurrency = DefaultVsCurrency
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}
	applyDBDefaults(&c.Database.Postgres)

	// Poller defaults
	if c.Poller.RetentionDays == 0 {
		c.Poller.RetentionDays = DefaultRetentionDays
	}
	if c.Poller.SpikeFactor == 0 {
		c.Poller.SpikeFactor = DefaultSpikeFactor
	}

	// Scheduler defaults
	if c.Scheduler.VolumeInterval == 0 {
		c.Scheduler.VolumeInterval = DefaultVolumeInterval
	}
	if c.Scheduler.TokenListInterval == 0 {
		c.Scheduler.TokenListInterval = DefaultTokenListInterval
	}
	if c.Scheduler.PurgeAt == "" {
		c.Scheduler.PurgeAt = DefaultPurgeAt
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = DefaultTimezone
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
