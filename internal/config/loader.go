package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "customerapi.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CUSTOMERAPI_PORT")
	setString(&cfg.Server.CORSOrigin, "CUSTOMERAPI_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "CUSTOMERAPI_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "CUSTOMERAPI_SHUTDOWN_TIMEOUT")
	setInt64(&cfg.Server.BodyLimit, "CUSTOMERAPI_BODY_LIMIT")

	// Store
	setString(&cfg.Store.Path, "CUSTOMERAPI_STORE_PATH")
	setString(&cfg.Store.Collection, "CUSTOMERAPI_STORE_COLLECTION")

	// Cache
	setBool(&cfg.Cache.Enabled, "CUSTOMERAPI_CACHE_ENABLED")
	setInt64(&cfg.Cache.MaxSizeMB, "CUSTOMERAPI_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "CUSTOMERAPI_CACHE_TTL")
	setString(&cfg.Cache.SharedBucket, "CUSTOMERAPI_CACHE_SHARED_BUCKET")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "CUSTOMERAPI_NATS_STREAM")
	setDuration(&cfg.NATS.PublishTimeout, "CUSTOMERAPI_NATS_PUBLISH_TIMEOUT")
	setInt(&cfg.Breaker.MaxFailures, "CUSTOMERAPI_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CUSTOMERAPI_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "CUSTOMERAPI_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CUSTOMERAPI_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CUSTOMERAPI_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CUSTOMERAPI_RATE_MAX_IDLE_TIME")
	setString(&cfg.Logging.Level, "CUSTOMERAPI_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CUSTOMERAPI_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CUSTOMERAPI_LOG_ASYNC")

	// OpenTelemetry
	setBool(&cfg.OTel.Enabled, "CUSTOMERAPI_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTel.Insecure, "CUSTOMERAPI_OTEL_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.BodyLimit < 1 {
		return errors.New("server.body_limit must be >= 1")
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if cfg.Store.Collection == "" {
		return errors.New("store.collection is required")
	}
	if cfg.Cache.Enabled && cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1 when cache is enabled")
	}
	if cfg.Cache.Enabled && cfg.Cache.SharedBucket != "" && cfg.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be > 0 when cache.shared_bucket is set")
	}
	if cfg.NATS.URL != "" && cfg.NATS.Stream == "" {
		return errors.New("nats.stream is required when nats.url is set")
	}
	if cfg.NATS.URL != "" && cfg.NATS.PublishTimeout <= 0 {
		return errors.New("nats.publish_timeout must be > 0 when nats.url is set")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.OTel.Enabled && cfg.OTel.Endpoint == "" {
		return errors.New("otel.endpoint is required when otel is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
