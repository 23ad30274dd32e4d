// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package events

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/metrics"
)

// ErrHandlerPanic is the error recorded when a handler panics.
var ErrHandlerPanic = errors.New("event handler panicked")

// HandlerFunc processes one delivered entry. Returning nil acknowledges it.
type HandlerFunc func(ctx context.Context, sc SubscriberContext) error

// SubscriberContext describes the entry being handled.
type SubscriberContext struct {
	Payload       EventPayload
	EntryID       broker.EntryID
	DeliveryCount int
	SubscriberID  string
	Stream        Stream
}

// Subscriber declares a consumer group on one stream. ID doubles as the
// group name.
type Subscriber struct {
	ID          string
	Stream      Stream
	Concurrency int
	Handle      HandlerFunc
}

// Validate checks the declaration.
func (s Subscriber) Validate() error {
	switch {
	case s.ID == "":
		return errors.New("subscriber id is required")
	case s.Stream == "":
		return fmt.Errorf("subscriber %s: stream is required", s.ID)
	case s.Concurrency < 1:
		return fmt.Errorf("subscriber %s: concurrency must be at least 1", s.ID)
	case s.Handle == nil:
		return fmt.Errorf("subscriber %s: handler is required", s.ID)
	}
	return nil
}

// RuntimeConfig tunes the consume loop.
type RuntimeConfig struct {
	TopicPrefix string

	// ConsumerName identifies this process within each group. A random
	// name is generated when empty.
	ConsumerName string

	// Block bounds a single ReadGroup wait.
	Block time.Duration

	// ClaimMinIdle is how long an entry must stay unacknowledged before it
	// is reclaimed. ClaimInterval is how often the reclaim scan runs.
	ClaimMinIdle  time.Duration
	ClaimInterval time.Duration

	// MaxBatch caps entries fetched per read or claim. Zero means the
	// subscriber's concurrency.
	MaxBatch int

	// RetryAttempts bounds consecutive failed group creations and reads
	// before Serve gives up and lets the supervisor restart it.
	RetryAttempts     int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	// MaxDeliveries drops an entry that keeps failing once it has been
	// delivered this many times. Zero keeps retrying forever.
	MaxDeliveries int

	// AckTimeout bounds the acknowledgement after a successful handler.
	AckTimeout time.Duration
}

// DefaultRuntimeConfig returns production defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		TopicPrefix:       DefaultTopicPrefix,
		Block:             2 * time.Second,
		ClaimMinIdle:      60 * time.Second,
		ClaimInterval:     15 * time.Second,
		RetryAttempts:     5,
		RetryInitialDelay: 100 * time.Millisecond,
		RetryMaxDelay:     5 * time.Second,
		AckTimeout:        5 * time.Second,
	}
}

// Runtime runs one Subscriber against a broker. It implements suture.Service.
type Runtime struct {
	broker   broker.Broker
	sub      Subscriber
	config   RuntimeConfig
	topic    string
	consumer string
	sem      *semaphore.Weighted
}

// NewRuntime creates a runtime for sub.
func NewRuntime(b broker.Broker, sub Subscriber, cfg RuntimeConfig) (*Runtime, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	defaults := DefaultRuntimeConfig()
	if cfg.Block <= 0 {
		cfg.Block = defaults.Block
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = defaults.ClaimMinIdle
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = defaults.ClaimInterval
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	if cfg.RetryInitialDelay <= 0 {
		cfg.RetryInitialDelay = defaults.RetryInitialDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = defaults.RetryMaxDelay
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaults.AckTimeout
	}
	if cfg.MaxBatch <= 0 || cfg.MaxBatch > sub.Concurrency {
		cfg.MaxBatch = sub.Concurrency
	}

	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = sub.ID + "-" + uuid.NewString()
	}

	return &Runtime{
		broker:   b,
		sub:      sub,
		config:   cfg,
		topic:    sub.Stream.Topic(cfg.TopicPrefix),
		consumer: consumer,
		sem:      semaphore.NewWeighted(int64(sub.Concurrency)),
	}, nil
}

// String implements fmt.Stringer for suture logging.
func (r *Runtime) String() string {
	return "subscriber:" + r.sub.ID
}

// Consumer returns the consumer name used within the group.
func (r *Runtime) Consumer() string {
	return r.consumer
}

// Serve consumes the stream until ctx is cancelled. In-flight handlers are
// awaited before it returns.
func (r *Runtime) Serve(ctx context.Context) error {
	logger := logging.Ctx(logging.ContextWithSubscriber(ctx, r.sub.ID))

	retrier := retry.NewRetrier(r.config.RetryAttempts, r.config.RetryInitialDelay, r.config.RetryMaxDelay)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		if err := r.broker.EnsureGroup(ctx, r.topic, r.sub.ID); err != nil {
			metrics.RecordBrokerError(r.sub.ID, "ensure_group")
			logger.Warn().Err(err).Str("topic", r.topic).Msg("Failed to create consumer group")
			return err
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("subscriber %s: ensure group: %w", r.sub.ID, err)
	}

	logger.Info().
		Str("topic", r.topic).
		Str("consumer", r.consumer).
		Int("concurrency", r.sub.Concurrency).
		Msg("Subscriber started")

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		logger.Info().Msg("Subscriber stopped")
	}()

	var lastClaim time.Time
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(lastClaim) >= r.config.ClaimInterval {
			r.claim(ctx, &wg)
			lastClaim = time.Now()
		}

		if err := r.sem.Acquire(ctx, 1); err != nil {
			return ctx.Err()
		}
		slots := 1
		for slots < r.config.MaxBatch && r.sem.TryAcquire(1) {
			slots++
		}

		entries, err := r.read(ctx, slots)
		if unused := slots - len(entries); unused > 0 {
			r.sem.Release(int64(unused))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("subscriber %s: read: %w", r.sub.ID, err)
		}

		for _, entry := range entries {
			r.dispatch(ctx, &wg, entry)
		}
	}
}

// read fetches up to slots new entries, recreating the group if it vanished.
func (r *Runtime) read(ctx context.Context, slots int) ([]broker.Entry, error) {
	block := min(r.config.Block, r.config.ClaimInterval)

	var entries []broker.Entry
	retrier := retry.NewRetrier(r.config.RetryAttempts, r.config.RetryInitialDelay, r.config.RetryMaxDelay)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		var err error
		entries, err = r.broker.ReadGroup(ctx, r.topic, r.sub.ID, r.consumer, slots, block)
		if err == nil || ctx.Err() != nil {
			return err
		}
		metrics.RecordBrokerError(r.sub.ID, "read")
		if errors.Is(err, broker.ErrGroupNotFound) {
			if gerr := r.broker.EnsureGroup(ctx, r.topic, r.sub.ID); gerr != nil {
				return gerr
			}
		}
		logging.Warn().Err(err).Str("subscriber", r.sub.ID).Msg("Stream read failed")
		return err
	})
	return entries, err
}

// claim reclaims stale entries into whatever handler slots are free right now.
func (r *Runtime) claim(ctx context.Context, wg *sync.WaitGroup) {
	free := 0
	for free < r.config.MaxBatch && r.sem.TryAcquire(1) {
		free++
	}
	if free == 0 {
		return
	}

	entries, err := r.broker.ClaimStale(ctx, r.topic, r.sub.ID, r.consumer, r.config.ClaimMinIdle, free)
	if unused := free - len(entries); unused > 0 {
		r.sem.Release(int64(unused))
	}
	if err != nil {
		if ctx.Err() == nil {
			metrics.RecordBrokerError(r.sub.ID, "claim")
			logging.Warn().Err(err).Str("subscriber", r.sub.ID).Msg("Stale entry claim failed")
		}
		return
	}

	metrics.RecordReclaimed(r.sub.ID, len(entries))
	for _, entry := range entries {
		r.dispatch(ctx, wg, entry)
	}
}

// dispatch runs the handler for entry in its own goroutine. The caller has
// already acquired one semaphore slot for it.
func (r *Runtime) dispatch(ctx context.Context, wg *sync.WaitGroup, entry broker.Entry) {
	wg.Add(1)
	metrics.TrackHandlerInFlight(r.sub.ID, true)
	go func() {
		defer wg.Done()
		defer r.sem.Release(1)
		defer metrics.TrackHandlerInFlight(r.sub.ID, false)

		r.process(context.WithoutCancel(ctx), entry)
	}()
}

func (r *Runtime) process(ctx context.Context, entry broker.Entry) {
	ctx = logging.ContextWithSubscriber(ctx, r.sub.ID)

	payload, err := DecodePayload(entry.Payload)
	if err != nil {
		metrics.RecordHandlerInvocation(r.sub.ID, "decode_error", 0)
		logging.Ctx(ctx).Error().Err(err).
			Str("entry_id", string(entry.ID)).
			Int("delivery_count", entry.DeliveryCount).
			Msg("Failed to decode event payload")
		r.dropIfExhausted(ctx, entry, err)
		return
	}

	ctx = logging.ContextWithCorrelationID(ctx, payload.CorrelationID)
	sc := SubscriberContext{
		Payload:       payload,
		EntryID:       entry.ID,
		DeliveryCount: entry.DeliveryCount,
		SubscriberID:  r.sub.ID,
		Stream:        r.sub.Stream,
	}

	start := time.Now()
	err = r.invoke(ctx, sc)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordHandlerInvocation(r.sub.ID, "success", elapsed)
		r.ack(ctx, entry.ID)
	case errors.Is(err, ErrHandlerPanic):
		metrics.RecordHandlerInvocation(r.sub.ID, "panic", elapsed)
		r.dropIfExhausted(ctx, entry, err)
	default:
		metrics.RecordHandlerInvocation(r.sub.ID, "failure", elapsed)
		logging.Ctx(ctx).Warn().Err(err).
			Str("event_type", string(payload.Event.Type())).
			Str("entry_id", string(entry.ID)).
			Int("delivery_count", entry.DeliveryCount).
			Msg("Event handler failed, entry left pending")
		r.dropIfExhausted(ctx, entry, err)
	}
}

func (r *Runtime) invoke(ctx context.Context, sc SubscriberContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", rec).
				Str("entry_id", string(sc.EntryID)).
				Str("stack", string(debug.Stack())).
				Msg("Event handler panicked")
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, rec)
		}
	}()
	return r.sub.Handle(ctx, sc)
}

func (r *Runtime) ack(ctx context.Context, id broker.EntryID) {
	ackCtx, cancel := context.WithTimeout(ctx, r.config.AckTimeout)
	defer cancel()

	if err := r.broker.Ack(ackCtx, r.topic, r.sub.ID, id); err != nil {
		metrics.RecordBrokerError(r.sub.ID, "ack")
		logging.Ctx(ctx).Warn().Err(err).Str("entry_id", string(id)).Msg("Failed to acknowledge entry")
		return
	}
	metrics.RecordAck(r.sub.ID)
}

func (r *Runtime) dropIfExhausted(ctx context.Context, entry broker.Entry, cause error) {
	if r.config.MaxDeliveries <= 0 || entry.DeliveryCount < r.config.MaxDeliveries {
		return
	}
	logging.Ctx(ctx).Error().Err(cause).
		Str("entry_id", string(entry.ID)).
		Int("delivery_count", entry.DeliveryCount).
		Msg("Dropping entry after max deliveries")
	r.ack(ctx, entry.ID)
}

// NewRuntimes builds one runtime per subscriber. Subscriber ids must be unique.
func NewRuntimes(b broker.Broker, subs []Subscriber, cfg RuntimeConfig) ([]*Runtime, error) {
	seen := make(map[string]struct{}, len(subs))
	runtimes := make([]*Runtime, 0, len(subs))
	for _, sub := range subs {
		if _, dup := seen[sub.ID]; dup {
			return nil, fmt.Errorf("duplicate subscriber id %q", sub.ID)
		}
		seen[sub.ID] = struct{}{}

		rt, err := NewRuntime(b, sub, cfg)
		if err != nil {
			return nil, err
		}
		runtimes = append(runtimes, rt)
	}
	return runtimes, nil
}
