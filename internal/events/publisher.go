// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package events

import (
	"context"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/metrics"
)

// EventPublisher is what interactors depend on to emit events.
type EventPublisher interface {
	Publish(ctx context.Context, stream Stream, payload EventPayload) error
}

// Publisher appends envelopes to the broker through a circuit breaker.
type Publisher struct {
	broker         broker.Broker
	topicPrefix    string
	circuitBreaker *gobreaker.CircuitBreaker[broker.EntryID]
}

// NewPublisher creates a publisher. A nil breaker disables circuit breaking.
func NewPublisher(b broker.Broker, topicPrefix string, cb *gobreaker.CircuitBreaker[broker.EntryID]) *Publisher {
	return &Publisher{
		broker:         b,
		topicPrefix:    topicPrefix,
		circuitBreaker: cb,
	}
}

// Publish encodes payload and appends it to stream. Errors are returned to
// the caller unchanged apart from wrapping; there is no retry.
func (p *Publisher) Publish(ctx context.Context, stream Stream, payload EventPayload) error {
	data, err := EncodePayload(payload)
	if err != nil {
		metrics.RecordPublish(string(stream), "", err)
		return err
	}

	topic := stream.Topic(p.topicPrefix)
	appendFn := func() (broker.EntryID, error) {
		return p.broker.Append(ctx, topic, data)
	}

	var id broker.EntryID
	if p.circuitBreaker != nil {
		id, err = p.circuitBreaker.Execute(appendFn)
	} else {
		id, err = appendFn()
	}
	metrics.RecordPublish(string(stream), string(payload.Event.Type()), err)
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", payload.Event.Type(), topic, err)
	}

	logging.Ctx(logging.ContextWithCorrelationID(ctx, payload.CorrelationID)).Debug().
		Str("stream", string(stream)).
		Str("event_type", string(payload.Event.Type())).
		Str("entry_id", string(id)).
		Msg("Event published")
	return nil
}
