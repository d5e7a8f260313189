/*
config.go - Runtime configuration from the environment

PURPOSE:
  One struct holding every runtime knob, populated from environment
  variables with sane defaults. cmd/server loads a .env file first (dev
  convenience), then calls Load.

USAGE:
  cfg, err := config.Load()
  srv := &http.Server{Addr: cfg.Addr(), ...}
*/
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server's runtime settings.
type Config struct {
	Port   int    `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"stock.db"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LockWait bounds how long a mutating request may wait for a product
	// lock plus its commit before aborting cleanly.
	LockWait time.Duration `envconfig:"LOCK_WAIT" default:"5s"`

	CORSOrigins   []string      `envconfig:"CORS_ORIGINS" default:"*"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"30s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
