package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all server configuration, sourced from the environment
type Config struct {
	// Addr is the HTTP listen address for /ws and /healthz
	Addr string `env:"SERVER_ADDR" envDefault:":8080"`

	// LogLevel controls slog output
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// MaxPartySize caps party membership
	MaxPartySize int `env:"MAX_PARTY_SIZE" envDefault:"4"`

	// PingInterval is the per-connection keepalive interval
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"30s"`

	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.MaxPartySize < 1 {
		return nil, fmt.Errorf("MAX_PARTY_SIZE must be at least 1, got %d", cfg.MaxPartySize)
	}
	if cfg.PingInterval <= 0 {
		return nil, fmt.Errorf("PING_INTERVAL must be positive, got %s", cfg.PingInterval)
	}

	return cfg, nil
}
