package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Host                     string `env:"HOST" envDefault:"localhost"`
	Port                     int    `env:"PORT" envDefault:"5000"`
	DatabaseDriver           string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL              string `env:"DATABASE_URL" envDefault:"folklore_data.db"`
	RedisURL                 string `env:"REDIS_URL"`
	RateLimitPerMin          int    `env:"RATE_LIMIT_PER_MIN" envDefault:"0"`
	ReconcileIntervalSeconds int    `env:"RECONCILE_INTERVAL_SECONDS" envDefault:"0"`
	LogLevel                 string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitPerMin > 0
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DatabaseDriver)
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	if c.ReconcileIntervalSeconds < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL_SECONDS must not be negative")
	}

	if c.Host != "localhost" && c.Host != "127.0.0.1" && c.Host != "::1" {
		log.Warn().Str("host", c.Host).Msg("server is not bound to loopback: the API has no authentication")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
