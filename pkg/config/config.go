package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Webhook ingestion
	WebhookSecret string

	// Funding rate cache
	RateRefreshInterval time.Duration
	RateGraceDelay      time.Duration
	RateFetchTimeout    time.Duration
	RateStaleThreshold  time.Duration

	// Alert evaluation
	AlertCheckInterval  time.Duration
	AlertConfigCacheTTL time.Duration

	// Pushover defaults (database config takes precedence)
	PushoverAppToken string
	PushoverUserKey  string

	// Storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Webhook defaults. An empty secret disables token checking.
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		// Funding rate cache defaults
		RateRefreshInterval: getDurationOrDefault("RATE_REFRESH_INTERVAL", 2*time.Minute),
		RateGraceDelay:      getDurationOrDefault("RATE_GRACE_DELAY", 10*time.Second),
		RateFetchTimeout:    getDurationOrDefault("RATE_FETCH_TIMEOUT", 30*time.Second),
		RateStaleThreshold:  getDurationOrDefault("RATE_STALE_THRESHOLD", 3*time.Minute),

		// Alert evaluation defaults
		AlertCheckInterval:  getDurationOrDefault("ALERT_CHECK_INTERVAL", 30*time.Second),
		AlertConfigCacheTTL: getDurationOrDefault("ALERT_CONFIG_CACHE_TTL", time.Minute),

		// Pushover defaults
		PushoverAppToken: os.Getenv("PUSHOVER_APP_TOKEN"),
		PushoverUserKey:  os.Getenv("PUSHOVER_USER_KEY"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "webmon"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "webmon123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "webmon"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RateRefreshInterval <= 0 {
		return fmt.Errorf("RATE_REFRESH_INTERVAL must be positive, got %s", c.RateRefreshInterval)
	}

	if c.RateFetchTimeout <= 0 {
		return fmt.Errorf("RATE_FETCH_TIMEOUT must be positive, got %s", c.RateFetchTimeout)
	}

	if c.RateStaleThreshold <= 0 {
		return fmt.Errorf("RATE_STALE_THRESHOLD must be positive, got %s", c.RateStaleThreshold)
	}

	if c.RateGraceDelay < 0 {
		return fmt.Errorf("RATE_GRACE_DELAY cannot be negative, got %s", c.RateGraceDelay)
	}

	if c.AlertCheckInterval <= 0 {
		return fmt.Errorf("ALERT_CHECK_INTERVAL must be positive, got %s", c.AlertCheckInterval)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
