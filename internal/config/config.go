// Package config loads the proxy configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/Sternrassler/brasileirao-proxy/pkg/cache"
	"github.com/Sternrassler/brasileirao-proxy/pkg/futebol"
	"github.com/Sternrassler/brasileirao-proxy/pkg/logging"
	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration.
type Config struct {
	Port int `env:"PORT" envDefault:"3001"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	APIFutebolKey     string        `env:"API_FUTEBOL_KEY"`
	APIFutebolBaseURL string        `env:"API_FUTEBOL_BASE_URL" envDefault:"https://api.api-futebol.com.br/v1/"`
	APIFutebolTimeout time.Duration `env:"API_FUTEBOL_TIMEOUT"  envDefault:"10s"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisUser     string `env:"REDIS_USER"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"300s"`

	RedisMaxReconnectAttempts int           `env:"REDIS_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	RedisReconnectStep        time.Duration `env:"REDIS_RECONNECT_STEP"         envDefault:"1s"`
	RedisReconnectCap         time.Duration `env:"REDIS_RECONNECT_CAP"          envDefault:"5s"`
	RedisDialTimeout          time.Duration `env:"REDIS_DIAL_TIMEOUT"           envDefault:"2s"`
	RedisOperationTimeout     time.Duration `env:"REDIS_OPERATION_TIMEOUT"      envDefault:"500ms"`
	RedisHealthCheckInterval  time.Duration `env:"REDIS_HEALTH_CHECK_INTERVAL"  envDefault:"5s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values the cache client does not check itself.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in 1..65535 (got %d)", c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive (got %v)", c.CacheTTL)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive (got %v)", c.ShutdownTimeout)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Cache returns the cache client configuration.
func (c Config) Cache() cache.Config {
	return cache.Config{
		Host:                 c.RedisHost,
		Port:                 c.RedisPort,
		Username:             c.RedisUser,
		Password:             c.RedisPassword,
		DialTimeout:          c.RedisDialTimeout,
		OperationTimeout:     c.RedisOperationTimeout,
		MaxReconnectAttempts: c.RedisMaxReconnectAttempts,
		ReconnectStep:        c.RedisReconnectStep,
		ReconnectCap:         c.RedisReconnectCap,
		HealthCheckInterval:  c.RedisHealthCheckInterval,
	}
}

// Futebol returns the upstream client configuration.
func (c Config) Futebol() futebol.Config {
	cfg := futebol.DefaultConfig(c.APIFutebolKey)
	cfg.BaseURL = c.APIFutebolBaseURL
	cfg.Timeout = c.APIFutebolTimeout
	return cfg
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}
