// Package daemon holds the walletd configuration: TOML file loading with
// sensible defaults, and store construction from the configured backend.
package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/reachly/wallet/store"
	"github.com/reachly/wallet/store/memory"
	mongostore "github.com/reachly/wallet/store/mongo"
	"github.com/reachly/wallet/store/postgres"
	"github.com/reachly/wallet/store/sqlite"
)

// Config is the walletd daemon configuration.
type Config struct {
	API   APIConfig   `toml:"api"`
	Store StoreConfig `toml:"store"`
	Retry RetryConfig `toml:"retry"`
	Log   LogConfig   `toml:"log"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
	RequestTimeout string `toml:"request_timeout"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	// Backend is one of "memory", "sqlite", "postgres", "mongo".
	Backend string `toml:"backend"`

	// Path is the database file for the sqlite backend.
	Path string `toml:"path"`

	// DSN is the connection string for postgres and mongo backends.
	DSN string `toml:"dsn"`

	// Database is the database name for the mongo backend.
	Database string `toml:"database"`
}

// RetryConfig bounds the conflict retry budget for balance mutations.
type RetryConfig struct {
	MaxAttempts     uint   `toml:"max_attempts"`
	InitialInterval string `toml:"initial_interval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8090,
			MetricsEnabled: true,
			RequestTimeout: "30s",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "wallet.db",
		},
		Retry: RetryConfig{
			MaxAttempts:     5,
			InitialInterval: "25ms",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file, layered over DefaultConfig. A missing
// file is not an error: the defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("daemon: parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite", "postgres", "mongo":
	default:
		return fmt.Errorf("daemon: unknown store backend %q", c.Store.Backend)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("daemon: invalid api port %d", c.API.Port)
	}
	if c.Retry.MaxAttempts == 0 {
		return fmt.Errorf("daemon: retry max_attempts must be at least 1")
	}
	return nil
}

// Addr returns the host:port the API should listen on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// RequestTimeout parses the configured request timeout, falling back to
// 30 seconds on an empty or malformed value.
func (c Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RetryInterval parses the configured initial retry interval, falling
// back to 25 milliseconds.
func (c Config) RetryInterval() time.Duration {
	d, err := time.ParseDuration(c.Retry.InitialInterval)
	if err != nil || d <= 0 {
		return 25 * time.Millisecond
	}
	return d
}

// OpenStore constructs the configured storage backend.
func (c Config) OpenStore() (store.Store, error) {
	switch c.Store.Backend {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.Open(c.Store.Path)
	case "postgres":
		return postgres.Open(c.Store.DSN)
	case "mongo":
		db := c.Store.Database
		if db == "" {
			db = "wallet"
		}
		return mongostore.Open(c.Store.DSN, db)
	default:
		return nil, fmt.Errorf("daemon: unknown store backend %q", c.Store.Backend)
	}
}

// Logger builds a slog.Logger per the log configuration.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
