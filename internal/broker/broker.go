// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package broker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTransport wraps every failure talking to the backing log store.
	ErrTransport = errors.New("broker transport error")

	// ErrGroupNotFound is returned when reading from a group that does not exist.
	ErrGroupNotFound = errors.New("consumer group not found")

	// ErrInvalidArgument is returned for empty topic, group, or consumer names.
	ErrInvalidArgument = errors.New("invalid broker argument")
)

// EntryID identifies an entry within a topic. Ids are opaque to callers but
// increase in append order.
type EntryID string

// Entry is one delivered stream entry.
type Entry struct {
	ID      EntryID
	Payload []byte

	// DeliveryCount is 1 on first delivery and grows on every reclaim.
	DeliveryCount int
}

// Broker is the stream broker contract shared by all backends.
type Broker interface {
	// EnsureGroup creates group on topic if absent. A new group starts at the
	// beginning of the topic. Calling it for an existing group is a no-op.
	EnsureGroup(ctx context.Context, topic, group string) error

	// Append durably appends payload to topic.
	Append(ctx context.Context, topic string, payload []byte) (EntryID, error)

	// ReadGroup returns up to maxCount entries never delivered to group,
	// waiting up to block for at least one. The entries become pending for
	// consumer. A zero block returns immediately.
	ReadGroup(ctx context.Context, topic, group, consumer string, maxCount int, block time.Duration) ([]Entry, error)

	// Ack removes id from the group's pending list. Acknowledging an unknown
	// or already acknowledged id is a no-op.
	Ack(ctx context.Context, topic, group string, id EntryID) error

	// ClaimStale transfers up to maxCount pending entries idle for at least
	// minIdle to consumer and returns them.
	ClaimStale(ctx context.Context, topic, group, consumer string, minIdle time.Duration, maxCount int) ([]Entry, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

func validateNames(names ...string) error {
	for _, n := range names {
		if n == "" {
			return ErrInvalidArgument
		}
	}
	return nil
}
