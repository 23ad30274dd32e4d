// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/lute/internal/logging"
)

// payloadField is the single field each stream entry carries.
const payloadField = "payload"

// RedisBroker implements Broker on Redis Streams.
type RedisBroker struct {
	client redis.UniversalClient
}

// NewRedisBroker wraps an existing client. The client is shared and owned by
// the caller.
func NewRedisBroker(client redis.UniversalClient) *RedisBroker {
	return &RedisBroker{client: client}
}

// EnsureGroup implements Broker with XGROUP CREATE ... MKSTREAM starting at 0.
func (b *RedisBroker) EnsureGroup(ctx context.Context, topic, group string) error {
	if err := validateNames(topic, group); err != nil {
		return err
	}
	err := b.client.XGroupCreateMkStream(ctx, topic, group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return transportErr("xgroup create "+topic+"/"+group, err)
	}
	return nil
}

// Append implements Broker.
func (b *RedisBroker) Append(ctx context.Context, topic string, payload []byte) (EntryID, error) {
	if err := validateNames(topic); err != nil {
		return "", err
	}
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{payloadField: payload},
	}).Result()
	if err != nil {
		return "", transportErr("xadd "+topic, err)
	}
	return EntryID(id), nil
}

// ReadGroup implements Broker with XREADGROUP ... STREAMS topic >.
func (b *RedisBroker) ReadGroup(ctx context.Context, topic, group, consumer string, maxCount int, block time.Duration) ([]Entry, error) {
	if err := validateNames(topic, group, consumer); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, nil
	}

	// go-redis treats Block == 0 as "block forever"; negative disables BLOCK.
	redisBlock := block
	if redisBlock <= 0 {
		redisBlock = -1
	}

	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{topic, ">"},
		Count:    int64(maxCount),
		Block:    redisBlock,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if isNoGroup(err) {
			return nil, fmt.Errorf("xreadgroup %s/%s: %w", topic, group, ErrGroupNotFound)
		}
		return nil, transportErr("xreadgroup "+topic+"/"+group, err)
	}

	var entries []Entry
	for _, s := range streams {
		for _, msg := range s.Messages {
			payload, ok := messagePayload(msg)
			if !ok {
				logging.Warn().Str("topic", topic).Str("entry_id", msg.ID).Msg("Stream entry without payload field")
			}
			entries = append(entries, Entry{ID: EntryID(msg.ID), Payload: payload, DeliveryCount: 1})
		}
	}
	return entries, nil
}

// Ack implements Broker.
func (b *RedisBroker) Ack(ctx context.Context, topic, group string, id EntryID) error {
	if err := validateNames(topic, group, string(id)); err != nil {
		return err
	}
	if err := b.client.XAck(ctx, topic, group, string(id)).Err(); err != nil {
		return transportErr("xack "+topic+"/"+group, err)
	}
	return nil
}

// ClaimStale implements Broker. XPENDING selects idle entries together with
// their delivery counts, then XCLAIM transfers them with the same idle
// guard, so an entry another consumer claimed in between is skipped.
func (b *RedisBroker) ClaimStale(ctx context.Context, topic, group, consumer string, minIdle time.Duration, maxCount int) ([]Entry, error) {
	if err := validateNames(topic, group, consumer); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, nil
	}

	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: topic,
		Group:  group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  int64(maxCount),
	}).Result()
	if err != nil {
		if isNoGroup(err) {
			return nil, fmt.Errorf("xpending %s/%s: %w", topic, group, ErrGroupNotFound)
		}
		return nil, transportErr("xpending "+topic+"/"+group, err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, len(pending))
	counts := make(map[string]int64, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
		counts[p.ID] = p.RetryCount
	}

	msgs, err := b.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   topic,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, transportErr("xclaim "+topic+"/"+group, err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		payload, ok := messagePayload(msg)
		if !ok {
			// Trimmed from the stream while pending; it can never be delivered.
			if err := b.client.XAck(ctx, topic, group, msg.ID).Err(); err != nil {
				logging.Warn().Err(err).Str("entry_id", msg.ID).Msg("Failed to ack trimmed stream entry")
			}
			continue
		}
		entries = append(entries, Entry{
			ID:            EntryID(msg.ID),
			Payload:       payload,
			DeliveryCount: int(counts[msg.ID]) + 1,
		})
	}
	return entries, nil
}

// Ping implements Broker.
func (b *RedisBroker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return transportErr("ping", err)
	}
	return nil
}

func messagePayload(msg redis.XMessage) ([]byte, bool) {
	v, ok := msg.Values[payloadField]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case string:
		return []byte(t), true
	case []byte:
		return t, true
	default:
		return nil, false
	}
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNoGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "NOGROUP")
}
