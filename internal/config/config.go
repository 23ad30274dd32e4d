// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Backend names accepted by broker.backend and store.backend.
const (
	BackendRedis     = "redis"
	BackendBadger    = "badger"
	BackendJetStream = "jetstream"
)

// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Server         ServerConfig         `koanf:"server"`
	Logging        LoggingConfig        `koanf:"logging"`
	Broker         BrokerConfig         `koanf:"broker"`
	Store          StoreConfig          `koanf:"store"`
	Redis          RedisConfig          `koanf:"redis"`
	Badger         BadgerConfig         `koanf:"badger"`
	NATS           NATSConfig           `koanf:"nats"`
	Subscribers    SubscribersConfig    `koanf:"subscribers"`
	Supervisor     SupervisorConfig     `koanf:"supervisor"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// Per-IP rate limit for the API.
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// CORSAllowedOrigins is empty by default, which disables cross-origin access.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// BrokerConfig selects the stream backend and tunes the subscriber loop.
type BrokerConfig struct {
	Backend     string `koanf:"backend" validate:"oneof=redis badger jetstream"`
	TopicPrefix string `koanf:"topic_prefix" validate:"required"`

	// ConsumerName identifies this process within consumer groups. Empty
	// generates a random name per subscriber at startup.
	ConsumerName string `koanf:"consumer_name"`

	Block         time.Duration `koanf:"block" validate:"gt=0"`
	ClaimMinIdle  time.Duration `koanf:"claim_min_idle" validate:"gt=0"`
	ClaimInterval time.Duration `koanf:"claim_interval" validate:"gt=0"`

	// MaxDeliveries drops an entry after this many failed deliveries.
	// Zero retries forever.
	MaxDeliveries int `koanf:"max_deliveries" validate:"min=0"`

	RetryAttempts     int           `koanf:"retry_attempts" validate:"min=1"`
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay" validate:"gt=0"`
	RetryMaxDelay     time.Duration `koanf:"retry_max_delay" validate:"gtefield=RetryInitialDelay"`
	AckTimeout        time.Duration `koanf:"ack_timeout" validate:"gt=0"`
}

// StoreConfig selects the keyed store backend.
type StoreConfig struct {
	Backend string `koanf:"backend" validate:"oneof=redis badger"`
}

type RedisConfig struct {
	URL         string        `koanf:"url" validate:"required,url"`
	PoolSize    int           `koanf:"pool_size" validate:"min=0"`
	DialTimeout time.Duration `koanf:"dial_timeout" validate:"gt=0"`
}

// BadgerConfig configures the embedded database shared by the badger
// broker and store.
type BadgerConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
	GCRatio    float64       `koanf:"gc_ratio" validate:"gt=0,lt=1"`
}

// NATSConfig configures the JetStream broker and the optional embedded server.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port" validate:"min=-1,max=65535"`
	StoreDir       string        `koanf:"store_dir"`
	MaxMemory      int64         `koanf:"max_memory" validate:"min=0"`
	MaxStore       int64         `koanf:"max_store" validate:"min=0"`
	SubjectPrefix  string        `koanf:"subject_prefix" validate:"required"`
	MaxAckPending  int           `koanf:"max_ack_pending" validate:"min=1"`
	MaxAge         time.Duration `koanf:"max_age" validate:"min=0"`
	MemoryStorage  bool          `koanf:"memory_storage"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
}

// SubscribersConfig overrides per-subscriber concurrency by subscriber id.
type SubscribersConfig struct {
	DefaultConcurrency int            `koanf:"default_concurrency" validate:"min=1"`
	Concurrency        map[string]int `koanf:"concurrency" validate:"dive,min=1"`
}

// ConcurrencyFor returns the configured concurrency for id, or fallback.
func (s SubscribersConfig) ConcurrencyFor(id string, fallback int) int {
	if n, ok := s.Concurrency[id]; ok && n > 0 {
		return n
	}
	if fallback > 0 {
		return fallback
	}
	return s.DefaultConcurrency
}

type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// CircuitBreakerConfig configures the breaker around publishes.
type CircuitBreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MaxRequests      uint32        `koanf:"max_requests" validate:"min=1"`
	Interval         time.Duration `koanf:"interval" validate:"gt=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
}

// UsesBadger reports whether any component needs the embedded database.
func (c *Config) UsesBadger() bool {
	return c.Broker.Backend == BackendBadger || c.Store.Backend == BackendBadger
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Broker.Backend == BackendRedis || c.Store.Backend == BackendRedis
}

func (c *Config) String() string {
	return fmt.Sprintf("broker=%s store=%s addr=%s", c.Broker.Backend, c.Store.Backend, c.Server.Addr())
}
