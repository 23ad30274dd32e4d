// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/config"
	"github.com/tomtom215/lute/internal/kv"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/wal"
)

// Backends is the set of connections selected by configuration. Close
// releases them in reverse order of opening.
type Backends struct {
	Store  kv.Store
	Broker broker.Broker

	DB       *wal.DB
	Redis    *redis.Client
	NATS     *nats.Conn
	Embedded *broker.EmbeddedServer
}

// OpenBackends opens every client the configured store and broker need.
// On error anything already opened is closed.
func OpenBackends(cfg *config.Config) (_ *Backends, err error) {
	b := &Backends{}
	defer func() {
		if err != nil {
			b.Close(context.Background())
		}
	}()

	if cfg.UsesRedis() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.Redis.PoolSize > 0 {
			opts.PoolSize = cfg.Redis.PoolSize
		}
		opts.DialTimeout = cfg.Redis.DialTimeout
		b.Redis = redis.NewClient(opts)
		logging.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Redis client created")
	}

	if cfg.UsesBadger() {
		walCfg := wal.DefaultConfig(cfg.Badger.Path)
		walCfg.InMemory = cfg.Badger.InMemory
		walCfg.SyncWrites = cfg.Badger.SyncWrites
		walCfg.GCInterval = cfg.Badger.GCInterval
		walCfg.GCRatio = cfg.Badger.GCRatio
		if b.DB, err = wal.Open(walCfg); err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
	}

	switch cfg.Store.Backend {
	case config.BackendRedis:
		b.Store = kv.NewRedisStore(b.Redis)
	case config.BackendBadger:
		b.Store = kv.NewBadgerStore(b.DB.Badger())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	switch cfg.Broker.Backend {
	case config.BackendRedis:
		b.Broker = broker.NewRedisBroker(b.Redis)
	case config.BackendBadger:
		b.Broker = broker.NewBadgerBroker(b.DB.Badger())
	case config.BackendJetStream:
		if b.Broker, err = b.openJetStream(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown broker backend %q", cfg.Broker.Backend)
	}

	return b, nil
}

func (b *Backends) openJetStream(cfg *config.Config) (*broker.JetStreamBroker, error) {
	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		srv, err := broker.NewEmbeddedServer(broker.EmbeddedServerConfig{
			Host:      cfg.NATS.Host,
			Port:      cfg.NATS.Port,
			StoreDir:  cfg.NATS.StoreDir,
			MaxMemory: cfg.NATS.MaxMemory,
			MaxStore:  cfg.NATS.MaxStore,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded nats: %w", err)
		}
		b.Embedded = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	natsLog := logging.WithComponent("nats")
	nc, err := nats.Connect(url,
		nats.Name("lute"),
		nats.Timeout(cfg.NATS.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				natsLog.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			natsLog.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	b.NATS = nc

	js, err := broker.NewJetStreamBroker(nc, broker.JetStreamConfig{
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		AckWait:       cfg.Broker.ClaimMinIdle,
		MaxAckPending: cfg.NATS.MaxAckPending,
		MaxAge:        cfg.NATS.MaxAge,
		MemoryStorage: cfg.NATS.MemoryStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create jetstream broker: %w", err)
	}
	return js, nil
}

// WaitReady pings the store and broker until both answer or the retry
// budget runs out.
func (b *Backends) WaitReady(ctx context.Context, attempts int, initial, maxDelay time.Duration) error {
	retrier := retry.NewRetrier(attempts, initial, maxDelay)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := b.Store.Ping(pingCtx); err != nil {
			logging.Warn().Err(err).Msg("Store not ready")
			return fmt.Errorf("store: %w", err)
		}
		if err := b.Broker.Ping(pingCtx); err != nil {
			logging.Warn().Err(err).Msg("Broker not ready")
			return fmt.Errorf("broker: %w", err)
		}
		return nil
	})
}

// Close releases every opened client. It is safe to call more than once.
func (b *Backends) Close(ctx context.Context) error {
	var errs []error
	if b.NATS != nil {
		b.NATS.Close()
		b.NATS = nil
	}
	if b.Embedded != nil {
		if err := b.Embedded.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("embedded nats: %w", err))
		}
		b.Embedded = nil
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
		b.Redis = nil
	}
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("badger: %w", err))
		}
		b.DB = nil
	}
	return errors.Join(errs...)
}
