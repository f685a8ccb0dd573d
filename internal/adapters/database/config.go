// Package database is the SQLite connection layer: pooled handles with
// nested transaction scopes, error classification, and a registry of
// named connections.
package database

import (
	"fmt"
	"time"
)

// Driver names accepted in Config.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite.
	DriverPure = "sqlite"
)

// DefaultAlias is the alias used when none is given.
const DefaultAlias = "default"

// Config describes how to open one database.
type Config struct {
	Driver             string        `mapstructure:"driver" yaml:"driver"`
	DSN                string        `mapstructure:"dsn" yaml:"dsn"`
	MaxIdleTime        time.Duration `mapstructure:"max_idle_time" yaml:"max_idle_time"`
	StatementCacheSize int           `mapstructure:"statement_cache_size" yaml:"statement_cache_size"`
}

func (c Config) normalized() (Config, error) {
	if c.Driver == "" {
		c.Driver = DriverCGO
	}
	if c.Driver != DriverCGO && c.Driver != DriverPure {
		return c, fmt.Errorf("unsupported driver %q (want %q or %q)", c.Driver, DriverCGO, DriverPure)
	}
	if c.DSN == "" {
		return c, fmt.Errorf("empty dsn")
	}
	if c.StatementCacheSize < 0 {
		c.StatementCacheSize = 0
	}
	return c, nil
}
