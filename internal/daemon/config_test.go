package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8090)
	}
	if !cfg.API.MetricsEnabled {
		t.Error("API.MetricsEnabled should be true by default")
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "sqlite")
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load(missing) error: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %q, want default sqlite", cfg.Store.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletd.toml")
	content := `
[api]
host = "0.0.0.0"
port = 9999

[store]
backend = "postgres"
dsn = "postgres://localhost/wallet"

[retry]
max_attempts = 8
initial_interval = "50ms"

[log]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9999 {
		t.Errorf("API = %s:%d, want 0.0.0.0:9999", cfg.API.Host, cfg.API.Port)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("Store.Backend = %q, want postgres", cfg.Store.Backend)
	}
	if cfg.Retry.MaxAttempts != 8 {
		t.Errorf("Retry.MaxAttempts = %d, want 8", cfg.Retry.MaxAttempts)
	}
	if cfg.RetryInterval() != 50*time.Millisecond {
		t.Errorf("RetryInterval = %v, want 50ms", cfg.RetryInterval())
	}
	// Unset keys keep their defaults.
	if !cfg.API.MetricsEnabled {
		t.Error("API.MetricsEnabled lost its default")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "dynamo" }},
		{"zero port", func(c *Config) { c.API.Port = 0 }},
		{"port too large", func(c *Config) { c.API.Port = 70000 }},
		{"zero retries", func(c *Config) { c.Retry.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() passed, want error")
			}
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.RequestTimeout = "garbage"
	cfg.Retry.InitialInterval = ""

	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Errorf("RequestTimeout fallback = %v, want 30s", got)
	}
	if got := cfg.RetryInterval(); got != 25*time.Millisecond {
		t.Errorf("RetryInterval fallback = %v, want 25ms", got)
	}
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Addr() != "127.0.0.1:8090" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8090", cfg.Addr())
	}
}
