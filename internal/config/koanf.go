// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lute/config.yaml",
	"/etc/lute/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,

			CORSAllowedOrigins: []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Broker: BrokerConfig{
			Backend:           BackendRedis,
			TopicPrefix:       "lute:stream:",
			Block:             2 * time.Second,
			ClaimMinIdle:      60 * time.Second,
			ClaimInterval:     15 * time.Second,
			MaxDeliveries:     0,
			RetryAttempts:     5,
			RetryInitialDelay: 100 * time.Millisecond,
			RetryMaxDelay:     5 * time.Second,
			AckTimeout:        5 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendRedis,
		},
		Redis: RedisConfig{
			URL:         "redis://localhost:6379/0",
			PoolSize:    0, // go-redis default: 10 per CPU
			DialTimeout: 5 * time.Second,
		},
		Badger: BadgerConfig{
			Path:       "/data/lute/badger",
			InMemory:   false,
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
			GCRatio:    0.5,
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/lute/jetstream",
			MaxMemory:      1 << 30,  // 1GB
			MaxStore:       10 << 30, // 10GB
			SubjectPrefix:  "lute",
			MaxAckPending:  1000,
			MaxAge:         0,
			MemoryStorage:  false,
			ConnectTimeout: 10 * time.Second,
		},
		Subscribers: SubscribersConfig{
			DefaultConcurrency: 16,
			Concurrency:        map[string]int{},
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  30 * time.Second,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      3,
			Interval:         30 * time.Second,
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Load reads configuration with Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// REDIS_URL -> redis.url, BROKER_BACKEND -> broker.backend
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process map fields from "key=value,key=value" strings
	if err := processMapFields(k); err != nil {
		return nil, fmt.Errorf("failed to process map fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mapConfigPaths are map[string]int fields that may arrive from the
// environment as "key=value,key=value".
var mapConfigPaths = []string{
	"subscribers.concurrency",
}

// processMapFields parses comma-separated key=value strings into maps for
// known map fields. Values from YAML are already maps and are left alone.
func processMapFields(k *koanf.Koanf) error {
	for _, path := range mapConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		result := make(map[string]interface{})
		for _, item := range strings.Split(strVal, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			// Split on first = only
			parts := strings.SplitN(item, "=", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
				return fmt.Errorf("%s: malformed entry %q, want key=value", path, item)
			}
			n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return fmt.Errorf("%s: entry %q: %w", path, item, err)
			}
			result[strings.TrimSpace(parts[0])] = n
		}

		// Delete first so the string value does not shadow the nested map.
		k.Delete(path)
		if len(result) == 0 {
			continue
		}
		if err := k.Set(path, result); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_allowed_origins":  "server.cors_allowed_origins",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Broker mappings
	"broker_backend":             "broker.backend",
	"broker_topic_prefix":        "broker.topic_prefix",
	"broker_consumer_name":       "broker.consumer_name",
	"broker_block":               "broker.block",
	"broker_claim_min_idle":      "broker.claim_min_idle",
	"broker_claim_interval":      "broker.claim_interval",
	"broker_max_deliveries":      "broker.max_deliveries",
	"broker_retry_attempts":      "broker.retry_attempts",
	"broker_retry_initial_delay": "broker.retry_initial_delay",
	"broker_retry_max_delay":     "broker.retry_max_delay",
	"broker_ack_timeout":         "broker.ack_timeout",

	// Store mappings
	"store_backend": "store.backend",

	// Redis mappings
	"redis_url":          "redis.url",
	"redis_pool_size":    "redis.pool_size",
	"redis_dial_timeout": "redis.dial_timeout",

	// Badger mappings
	"badger_path":        "badger.path",
	"badger_in_memory":   "badger.in_memory",
	"badger_sync_writes": "badger.sync_writes",
	"badger_gc_interval": "badger.gc_interval",
	"badger_gc_ratio":    "badger.gc_ratio",

	// NATS mappings
	"nats_url":             "nats.url",
	"nats_embedded":        "nats.embedded_server",
	"nats_host":            "nats.host",
	"nats_port":            "nats.port",
	"nats_store_dir":       "nats.store_dir",
	"nats_max_memory":      "nats.max_memory",
	"nats_max_store":       "nats.max_store",
	"nats_subject_prefix":  "nats.subject_prefix",
	"nats_max_ack_pending": "nats.max_ack_pending",
	"nats_max_age":         "nats.max_age",
	"nats_memory_storage":  "nats.memory_storage",

	// Subscriber mappings
	"subscriber_default_concurrency": "subscribers.default_concurrency",
	"subscriber_concurrency":         "subscribers.concurrency",

	// Supervisor mappings
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Circuit breaker mappings
	"circuit_breaker_enabled":   "circuit_breaker.enabled",
	"circuit_breaker_threshold": "circuit_breaker.failure_threshold",
	"circuit_breaker_timeout":   "circuit_breaker.timeout",
	"circuit_breaker_interval":  "circuit_breaker.interval",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - REDIS_URL -> redis.url
//   - BROKER_BACKEND -> broker.backend
//   - NATS_EMBEDDED -> nats.embedded_server
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
