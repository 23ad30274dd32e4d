// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package broker is the stream broker adapter underneath the event bus.
//
// A Broker offers four primitives over named topics:
//
//	Append      ordered, durable append of one opaque payload
//	ReadGroup   delivery of new entries to a consumer group member
//	Ack         removal of an entry from the group's pending list
//	ClaimStale  re-lease of pending entries whose consumer went quiet
//
// Delivery is at-least-once per consumer group. An entry stays pending until
// it is acknowledged; pending entries idle longer than a threshold become
// eligible for ClaimStale, which transfers them to the calling consumer and
// increments their delivery count. Entry ids increase strictly in append
// order within a topic.
//
// # Backends
//
//   - RedisBroker: Redis Streams (XADD, XREADGROUP, XACK, XPENDING, XCLAIM)
//   - BadgerBroker: embedded BadgerDB log with consumer-group cursors and
//     pending leases, for single-instance deployments without Redis
//   - JetStreamBroker: NATS JetStream streams with durable pull consumers;
//     the server redelivers unacknowledged messages after AckWait, so
//     ClaimStale returns nothing
//
// EmbeddedServer runs an in-process NATS server for the JetStream backend.
//
// # Errors
//
// Every backend I/O failure wraps ErrTransport. Reading from a group that
// has not been created returns an error wrapping ErrGroupNotFound, which
// callers recover from by calling EnsureGroup again.
package broker
