// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package broker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/lute/internal/logging"
)

// JetStreamConfig tunes the streams and consumers created by JetStreamBroker.
type JetStreamConfig struct {
	// SubjectPrefix is prepended to every topic subject.
	SubjectPrefix string

	// AckWait is how long the server waits for an ack before redelivering.
	// It plays the role of the stale-claim idle threshold.
	AckWait time.Duration

	// MaxAckPending bounds unacknowledged messages per consumer.
	MaxAckPending int

	// MaxAge bounds stream retention. Zero keeps messages forever.
	MaxAge time.Duration

	// MemoryStorage selects memory instead of file storage.
	MemoryStorage bool
}

// DefaultJetStreamConfig returns production defaults.
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		SubjectPrefix: "lute",
		AckWait:       60 * time.Second,
		MaxAckPending: 1000,
	}
}

// JetStreamBroker implements Broker on NATS JetStream. Each topic maps to one
// stream and each group to one durable pull consumer.
type JetStreamBroker struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig

	mu        sync.Mutex
	streams   map[string]struct{}
	consumers map[string]jetstream.Consumer
	// inflight holds delivered messages until Ack, keyed by topic/group/seq.
	inflight map[string]inflightMsg
}

type inflightMsg struct {
	msg         jetstream.Msg
	deliveredAt time.Time
}

// NewJetStreamBroker creates a broker on an existing connection. The
// connection is owned by the caller.
func NewJetStreamBroker(nc *nats.Conn, cfg JetStreamConfig) (*JetStreamBroker, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, transportErr("jetstream init", err)
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = DefaultJetStreamConfig().AckWait
	}
	return &JetStreamBroker{
		nc:        nc,
		js:        js,
		config:    cfg,
		streams:   make(map[string]struct{}),
		consumers: make(map[string]jetstream.Consumer),
		inflight:  make(map[string]inflightMsg),
	}, nil
}

// streamName maps a topic to a valid JetStream stream name.
func streamName(topic string) string {
	return sanitizeName(topic)
}

// consumerName maps a group to a valid durable consumer name.
func consumerName(group string) string {
	return sanitizeName(group)
}

func sanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (b *JetStreamBroker) subject(topic string) string {
	if b.config.SubjectPrefix == "" {
		return streamName(topic)
	}
	return b.config.SubjectPrefix + "." + streamName(topic)
}

func inflightKey(topic, group string, id EntryID) string {
	return topic + keySep + group + keySep + string(id)
}

func (b *JetStreamBroker) ensureStream(ctx context.Context, topic string) error {
	b.mu.Lock()
	_, ok := b.streams[topic]
	b.mu.Unlock()
	if ok {
		return nil
	}

	storage := jetstream.FileStorage
	if b.config.MemoryStorage {
		storage = jetstream.MemoryStorage
	}
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName(topic),
		Subjects:  []string{b.subject(topic)},
		Retention: jetstream.LimitsPolicy,
		Storage:   storage,
		Discard:   jetstream.DiscardOld,
		MaxAge:    b.config.MaxAge,
	})
	if err != nil {
		return transportErr("create stream "+topic, err)
	}

	b.mu.Lock()
	b.streams[topic] = struct{}{}
	b.mu.Unlock()
	return nil
}

// EnsureGroup implements Broker by creating a durable pull consumer that
// delivers the whole stream.
func (b *JetStreamBroker) EnsureGroup(ctx context.Context, topic, group string) error {
	if err := validateNames(topic, group); err != nil {
		return err
	}
	if err := b.ensureStream(ctx, topic); err != nil {
		return err
	}

	cons, err := b.js.CreateOrUpdateConsumer(ctx, streamName(topic), jetstream.ConsumerConfig{
		Durable:       consumerName(group),
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       b.config.AckWait,
		MaxDeliver:    -1,
		MaxAckPending: b.config.MaxAckPending,
	})
	if err != nil {
		return transportErr("create consumer "+topic+"/"+group, err)
	}

	b.mu.Lock()
	b.consumers[topic+keySep+group] = cons
	b.mu.Unlock()
	return nil
}

// Append implements Broker. The entry id is the stream sequence.
func (b *JetStreamBroker) Append(ctx context.Context, topic string, payload []byte) (EntryID, error) {
	if err := validateNames(topic); err != nil {
		return "", err
	}
	if err := b.ensureStream(ctx, topic); err != nil {
		return "", err
	}
	ack, err := b.js.Publish(ctx, b.subject(topic), payload)
	if err != nil {
		return "", transportErr("publish "+topic, err)
	}
	return EntryID(strconv.FormatUint(ack.Sequence, 10)), nil
}

func (b *JetStreamBroker) consumer(ctx context.Context, topic, group string) (jetstream.Consumer, error) {
	key := topic + keySep + group
	b.mu.Lock()
	cons, ok := b.consumers[key]
	b.mu.Unlock()
	if ok {
		return cons, nil
	}

	cons, err := b.js.Consumer(ctx, streamName(topic), consumerName(group))
	if errors.Is(err, jetstream.ErrConsumerNotFound) || errors.Is(err, jetstream.ErrStreamNotFound) {
		return nil, fmt.Errorf("consumer %s/%s: %w", topic, group, ErrGroupNotFound)
	}
	if err != nil {
		return nil, transportErr("lookup consumer "+topic+"/"+group, err)
	}

	b.mu.Lock()
	b.consumers[key] = cons
	b.mu.Unlock()
	return cons, nil
}

// ReadGroup implements Broker with a pull fetch. The consumer argument is
// informational: all members of a group share one durable consumer.
func (b *JetStreamBroker) ReadGroup(ctx context.Context, topic, group, consumer string, maxCount int, block time.Duration) ([]Entry, error) {
	if err := validateNames(topic, group, consumer); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, nil
	}
	cons, err := b.consumer(ctx, topic, group)
	if err != nil {
		return nil, err
	}

	var batch jetstream.MessageBatch
	if block > 0 {
		batch, err = cons.Fetch(maxCount, jetstream.FetchMaxWait(block))
	} else {
		batch, err = cons.FetchNoWait(maxCount)
	}
	if err != nil {
		if errors.Is(err, jetstream.ErrConsumerNotFound) {
			b.forgetConsumer(topic, group)
			return nil, fmt.Errorf("fetch %s/%s: %w", topic, group, ErrGroupNotFound)
		}
		return nil, transportErr("fetch "+topic+"/"+group, err)
	}

	var entries []Entry
	for msg := range batch.Messages() {
		meta, err := msg.Metadata()
		if err != nil {
			logging.Warn().Err(err).Str("topic", topic).Msg("JetStream message without metadata")
			continue
		}
		id := EntryID(strconv.FormatUint(meta.Sequence.Stream, 10))

		b.mu.Lock()
		b.inflight[inflightKey(topic, group, id)] = inflightMsg{msg: msg, deliveredAt: time.Now()}
		b.mu.Unlock()

		entries = append(entries, Entry{
			ID:            id,
			Payload:       msg.Data(),
			DeliveryCount: int(meta.NumDelivered),
		})
	}
	if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
		if len(entries) == 0 {
			return nil, transportErr("fetch "+topic+"/"+group, err)
		}
		logging.Debug().Err(err).Str("topic", topic).Msg("JetStream fetch ended early")
	}
	return entries, nil
}

func (b *JetStreamBroker) forgetConsumer(topic, group string) {
	b.mu.Lock()
	delete(b.consumers, topic+keySep+group)
	b.mu.Unlock()
}

// Ack implements Broker with a double ack so the server confirms receipt.
// Ids not delivered through this broker instance are ignored.
func (b *JetStreamBroker) Ack(ctx context.Context, topic, group string, id EntryID) error {
	if err := validateNames(topic, group, string(id)); err != nil {
		return err
	}
	key := inflightKey(topic, group, id)

	b.mu.Lock()
	held, ok := b.inflight[key]
	delete(b.inflight, key)
	b.mu.Unlock()
	if !ok {
		return nil
	}

	if err := held.msg.DoubleAck(ctx); err != nil {
		return transportErr("ack "+topic+"/"+group, err)
	}
	return nil
}

// ClaimStale implements Broker. JetStream redelivers messages whose AckWait
// expired on a later fetch, so there is nothing to claim explicitly. Stale
// in-flight handles older than AckWait are dropped.
func (b *JetStreamBroker) ClaimStale(ctx context.Context, topic, group, consumer string, minIdle time.Duration, maxCount int) ([]Entry, error) {
	if err := validateNames(topic, group, consumer); err != nil {
		return nil, err
	}
	prefix := topic + keySep + group + keySep
	cutoff := time.Now().Add(-b.config.AckWait)

	b.mu.Lock()
	for key, held := range b.inflight {
		if strings.HasPrefix(key, prefix) && held.deliveredAt.Before(cutoff) {
			delete(b.inflight, key)
		}
	}
	b.mu.Unlock()
	return nil, nil
}

// Ping implements Broker.
func (b *JetStreamBroker) Ping(ctx context.Context) error {
	if !b.nc.IsConnected() {
		return transportErr("ping", nats.ErrConnectionClosed)
	}
	if _, err := b.js.AccountInfo(ctx); err != nil {
		return transportErr("account info", err)
	}
	return nil
}
