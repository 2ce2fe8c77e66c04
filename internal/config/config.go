package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Resolver ResolverConfig
	Logging  LogConfig
}

// ResolverConfig holds status-authority client configuration.
type ResolverConfig struct {
	Endpoint       string        `envconfig:"BASELINE_ENDPOINT" default:"https://api.webstatus.dev/v1/features"`
	BatchSize      int           `envconfig:"BASELINE_BATCH_SIZE" default:"20"`
	Concurrency    int           `envconfig:"BASELINE_CONCURRENCY" default:"3"`
	RequestTimeout time.Duration `envconfig:"BASELINE_REQUEST_TIMEOUT" default:"5s"`
	MaxRetries     int           `envconfig:"BASELINE_MAX_RETRIES" default:"3"`
	RatePerSecond  float64       `envconfig:"BASELINE_RATE_LIMIT_RPS" default:"0"`

	BreakerThreshold int           `envconfig:"BASELINE_BREAKER_THRESHOLD" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"BASELINE_BREAKER_COOLDOWN" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Resolver: ResolverConfig{
			Endpoint:         "https://api.webstatus.dev/v1/features",
			BatchSize:        20,
			Concurrency:      3,
			RequestTimeout:   5 * time.Second,
			MaxRetries:       3,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
