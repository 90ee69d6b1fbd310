package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "3000" {
		t.Errorf("expected port 3000, got %s", cfg.Server.Port)
	}
	if cfg.Store.Collection != "customers" {
		t.Errorf("expected collection customers, got %s", cfg.Store.Collection)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected events disabled by default, got NATS URL %q", cfg.NATS.URL)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
store:
  path: "/var/lib/customerapi/db.json"
cache:
  ttl: 1m
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Store.Path != "/var/lib/customerapi/db.json" {
		t.Errorf("unexpected store path %s", cfg.Store.Path)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("expected cache ttl 1m, got %v", cfg.Cache.TTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Store.Collection != "customers" {
		t.Errorf("expected default collection, got %s", cfg.Store.Collection)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(yamlPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("CUSTOMERAPI_PORT", "7070")
	t.Setenv("CUSTOMERAPI_STORE_PATH", "/tmp/customers.json")
	t.Setenv("CUSTOMERAPI_CACHE_ENABLED", "false")
	t.Setenv("CUSTOMERAPI_LOG_LEVEL", "warn")
	t.Setenv("CUSTOMERAPI_BREAKER_TIMEOUT", "1m")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("CUSTOMERAPI_OTEL_ENABLED", "true")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Store.Path != "/tmp/customers.json" {
		t.Errorf("expected store path override, got %s", cfg.Store.Path)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("expected NATS URL override, got %s", cfg.NATS.URL)
	}
	if !cfg.OTel.Enabled {
		t.Error("expected otel enabled")
	}
}

func TestEnvInvalidValuesIgnored(t *testing.T) {
	cfg := Defaults()
	t.Setenv("CUSTOMERAPI_RATE_BURST", "lots")
	t.Setenv("CUSTOMERAPI_CACHE_TTL", "soon")

	loadEnv(&cfg)

	if cfg.Rate.Burst != 100 {
		t.Errorf("expected default burst, got %d", cfg.Rate.Burst)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("expected default ttl, got %v", cfg.Cache.TTL)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "zero body limit",
			modify: func(c *Config) { c.Server.BodyLimit = 0 },
			errMsg: "server.body_limit must be >= 1",
		},
		{
			name:   "empty store path",
			modify: func(c *Config) { c.Store.Path = "" },
			errMsg: "store.path is required",
		},
		{
			name:   "empty collection",
			modify: func(c *Config) { c.Store.Collection = "" },
			errMsg: "store.collection is required",
		},
		{
			name:   "zero cache size",
			modify: func(c *Config) { c.Cache.MaxSizeMB = 0 },
			errMsg: "cache.max_size_mb must be >= 1 when cache is enabled",
		},
		{
			name:   "shared cache without ttl",
			modify: func(c *Config) { c.Cache.SharedBucket = "customers-cache"; c.Cache.TTL = 0 },
			errMsg: "cache.ttl must be > 0 when cache.shared_bucket is set",
		},
		{
			name:   "nats without stream",
			modify: func(c *Config) { c.NATS.URL = "nats://x"; c.NATS.Stream = "" },
			errMsg: "nats.stream is required when nats.url is set",
		},
		{
			name:   "nats without publish timeout",
			modify: func(c *Config) { c.NATS.URL = "nats://x"; c.NATS.PublishTimeout = 0 },
			errMsg: "nats.publish_timeout must be > 0 when nats.url is set",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero request rate",
			modify: func(c *Config) { c.Rate.RequestsPerSecond = 0 },
			errMsg: "rate.requests_per_second must be > 0",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "otel without endpoint",
			modify: func(c *Config) { c.OTel.Enabled = true; c.OTel.Endpoint = "" },
			errMsg: "otel.endpoint is required when otel is enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestCacheDisabledSkipsSizeCheck(t *testing.T) {
	cfg := Defaults()
	cfg.Cache.Enabled = false
	cfg.Cache.MaxSizeMB = 0
	if err := validate(&cfg); err != nil {
		t.Errorf("disabled cache should not require a size, got %v", err)
	}
}
