// Package container provides dependency injection and lifecycle management
// for the stocktake service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/stocktake/internal/email"
)

// Config holds all configuration for the Container.
type Config struct {
	// Store selects and configures the run repository
	Store StoreConfig

	// Email configures SMTP delivery; empty Host disables it
	Email email.Config

	// EmailSubject is the subject line of results emails
	EmailSubject string

	// ExportDir keeps a copy of every export when set
	ExportDir string
}

// StoreConfig holds run store settings.
type StoreConfig struct {
	// Driver is "memory" or "sqlite"
	Driver string

	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns an in-memory configuration with email disabled.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:       "memory",
			Path:         "data/stocktake.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Email: email.Config{
			Port:    587,
			Timeout: 30 * time.Second,
		},
		EmailSubject: "Stocktake results",
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
