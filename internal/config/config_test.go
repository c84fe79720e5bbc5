package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.SessionAccessTTL != "10m" {
		t.Errorf("SessionAccessTTL = %q, want %q", cfg.SessionAccessTTL, "10m")
	}
	if cfg.SessionRefreshTTL != "720h" {
		t.Errorf("SessionRefreshTTL = %q, want %q", cfg.SessionRefreshTTL, "720h")
	}
	if cfg.LockoutThreshold != 5 {
		t.Errorf("LockoutThreshold = %d, want 5", cfg.LockoutThreshold)
	}
	if cfg.LockoutDuration != "10m" {
		t.Errorf("LockoutDuration = %q, want %q", cfg.LockoutDuration, "10m")
	}
	if cfg.RateLimitDefaultMax != 10 {
		t.Errorf("RateLimitDefaultMax = %d, want 10", cfg.RateLimitDefaultMax)
	}
	if cfg.CleanupBatchSize != 500 {
		t.Errorf("CleanupBatchSize = %d, want 500", cfg.CleanupBatchSize)
	}
	if cfg.SecurityKafkaTopic != "stayhub-security-events" {
		t.Errorf("SecurityKafkaTopic = %q, want default", cfg.SecurityKafkaTopic)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/stayhub")
	os.Setenv("SESSION_ACCESS_TTL", "5m")
	os.Setenv("LOCKOUT_THRESHOLD", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost:5432/stayhub" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if cfg.SessionAccessTTL != "5m" {
		t.Errorf("SessionAccessTTL = %q, want %q", cfg.SessionAccessTTL, "5m")
	}
	if cfg.LockoutThreshold != 3 {
		t.Errorf("LockoutThreshold = %d, want 3", cfg.LockoutThreshold)
	}
}

func TestLoad_InvalidThresholds(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero lockout threshold", "LOCKOUT_THRESHOLD", "0"},
		{"negative lockout threshold", "LOCKOUT_THRESHOLD", "-1"},
		{"zero default max", "RATE_LIMIT_DEFAULT_MAX", "0"},
		{"zero batch size", "CLEANUP_BATCH_SIZE", "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tc.key, tc.value)

			cfg, err := Load()
			if err == nil {
				t.Fatal("Load should return error")
			}
			if cfg != nil {
				t.Error("Load should return nil config on error")
			}
		})
	}
}

func TestAccessTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "invalid", 10 * time.Minute},
		{"zero", "0", 10 * time.Minute},
		{"negative", "-5m", 10 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("SESSION_ACCESS_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefreshTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "336h", 14 * 24 * time.Hour},
		{"invalid", "invalid", 720 * time.Hour},
		{"negative", "-1h", 720 * time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("SESSION_REFRESH_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.RefreshTTL(); got != tc.want {
				t.Errorf("RefreshTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDurationAccessorDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("LOCKOUT_DURATION", "bogus")
	os.Setenv("RATE_LIMIT_WINDOW", "bogus")
	os.Setenv("RATE_LIMIT_RETENTION", "bogus")
	os.Setenv("CLEANUP_INTERVAL", "bogus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Lockout(); got != 10*time.Minute {
		t.Errorf("Lockout = %v, want 10m", got)
	}
	if got := cfg.Window(); got != 60*time.Second {
		t.Errorf("Window = %v, want 60s", got)
	}
	if got := cfg.Retention(); got != 24*time.Hour {
		t.Errorf("Retention = %v, want 24h", got)
	}
	if got := cfg.SweepInterval(); got != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", got)
	}
}

func TestSecurityKafkaBrokersList(t *testing.T) {
	os.Clearenv()
	os.Setenv("KAFKA_BROKERS", "localhost:9092, broker2:9092 ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	brokers := cfg.SecurityKafkaBrokersList()
	if len(brokers) != 2 {
		t.Fatalf("brokers = %v, want 2 entries", brokers)
	}
	if brokers[0] != "localhost:9092" || brokers[1] != "broker2:9092" {
		t.Errorf("brokers = %v", brokers)
	}
}
