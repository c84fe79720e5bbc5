// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN shared by all instances; required for any stateful command.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionAccessTTL is the access-token lifetime (e.g. "10m").
	SessionAccessTTL string `mapstructure:"SESSION_ACCESS_TTL"`
	// SessionRefreshTTL is the refresh-token lifetime (e.g. "720h" for 30 days).
	SessionRefreshTTL string `mapstructure:"SESSION_REFRESH_TTL"`
	// LockoutThreshold is the number of failed attempts before an identifier is locked (e.g. 5).
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// LockoutDuration is how long a locked identifier stays locked (e.g. "10m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// RateLimitWindow is the fixed rate-limit window (e.g. "60s").
	RateLimitWindow string `mapstructure:"RATE_LIMIT_WINDOW"`
	// RateLimitDefaultMax is the attempt ceiling for endpoints without an explicit limit.
	RateLimitDefaultMax int `mapstructure:"RATE_LIMIT_DEFAULT_MAX"`
	// RateLimitRetention is how long closed rate-limit windows are kept before cleanup (e.g. "24h").
	RateLimitRetention string `mapstructure:"RATE_LIMIT_RETENTION"`
	// CleanupInterval is how often the janitor runs expiry sweeps (e.g. "5m").
	CleanupInterval string `mapstructure:"CLEANUP_INTERVAL"`
	// CleanupBatchSize bounds each cleanup statement so sweeps never hold long-lived locks.
	CleanupBatchSize int `mapstructure:"CLEANUP_BATCH_SIZE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Telemetry (optional). When the OTLP endpoint is set, security events and
	// janitor metrics are exported via OpenTelemetry.
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// SecurityKafkaBrokers is a comma-separated list of Kafka broker addresses carrying security incidents.
	SecurityKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SecurityKafkaTopic is the Kafka topic for security incidents (default stayhub-security-events).
	SecurityKafkaTopic string `mapstructure:"SECURITY_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_ACCESS_TTL", "10m")
	v.SetDefault("SESSION_REFRESH_TTL", "720h") // 30d
	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_DURATION", "10m")
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_DEFAULT_MAX", 10)
	v.SetDefault("RATE_LIMIT_RETENTION", "24h")
	v.SetDefault("CLEANUP_INTERVAL", "5m")
	v.SetDefault("CLEANUP_BATCH_SIZE", 500)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SECURITY_KAFKA_TOPIC", "stayhub-security-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.LockoutThreshold < 1 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must be at least 1")
	}
	if cfg.RateLimitDefaultMax < 1 {
		return nil, errors.New("config: RATE_LIMIT_DEFAULT_MAX must be at least 1")
	}
	if cfg.CleanupBatchSize < 1 {
		return nil, errors.New("config: CLEANUP_BATCH_SIZE must be at least 1")
	}

	return &cfg, nil
}

// AccessTTL parses SessionAccessTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionAccessTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// RefreshTTL parses SessionRefreshTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionRefreshTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// Lockout parses LockoutDuration as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) Lockout() time.Duration {
	d, err := time.ParseDuration(c.LockoutDuration)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// Window parses RateLimitWindow as a time.Duration. Returns 60s if unset or invalid.
func (c *Config) Window() time.Duration {
	d, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Retention parses RateLimitRetention as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) Retention() time.Duration {
	d, err := time.ParseDuration(c.RateLimitRetention)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// SweepInterval parses CleanupInterval as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.CleanupInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// SecurityKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka security producer is enabled (non-empty list) and to create it.
func (c *Config) SecurityKafkaBrokersList() []string {
	if c == nil || c.SecurityKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.SecurityKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
