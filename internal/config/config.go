// Package config provides hierarchical configuration loading for customerapi.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the customer service.
type Config struct {
	Server  Server  `yaml:"server"`
	Store   Store   `yaml:"store"`
	Cache   Cache   `yaml:"cache"`
	NATS    NATS    `yaml:"nats"`
	Breaker Breaker `yaml:"breaker"`
	Rate    Rate    `yaml:"rate"`
	Logging Logging `yaml:"logging"`
	OTel    OTel    `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port            string        `yaml:"port"`
	CORSOrigin      string        `yaml:"cors_origin"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	BodyLimit       int64         `yaml:"body_limit"` // bytes
}

// Store holds the JSON file store configuration.
type Store struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Cache holds the customer read cache configuration.
type Cache struct {
	Enabled   bool          `yaml:"enabled"`
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`

	// SharedBucket names a NATS KV bucket used as L2 behind the in-process
	// cache. Entries are scoped to this instance's store and only one running
	// instance may use a given store's scope. Ignored unless NATS is
	// configured; empty disables it.
	SharedBucket string `yaml:"shared_bucket"`
}

// NATS holds NATS JetStream configuration. An empty URL disables events.
type NATS struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`

	// PublishTimeout bounds each best-effort event publish.
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Breaker holds circuit breaker configuration for event publishing.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// OTel holds OpenTelemetry export configuration.
type OTel struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "3000",
			CORSOrigin:      "http://localhost:3000",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       1 << 20,
		},
		Store: Store{
			Path:       "customerDatabase.json",
			Collection: "customers",
		},
		Cache: Cache{
			Enabled:   true,
			MaxSizeMB: 16,
			TTL:       10 * time.Minute,
		},
		NATS: NATS{
			Stream:         "CUSTOMERS",
			PublishTimeout: 2 * time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "customerapi",
		},
		OTel: OTel{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "customerapi",
			Insecure:    true,
		},
	}
}
