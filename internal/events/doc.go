// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package events is Lute's event bus: the closed catalog of domain events,
// the envelope they travel in, the publisher, and the consumer-group
// subscriber runtime.
//
// # Envelope
//
// Every stream entry holds one JSON-encoded EventPayload:
//
//	{
//	  "event": {"type": "LookupAlbumSearchUpdated", "lookup": {...}},
//	  "correlation_id": "lookup:album_search:9f2c...",
//	  "metadata": {"artist_name": "Radiohead"}
//	}
//
// correlation_id and metadata are omitted when empty. Decoding an unknown
// event type or malformed JSON fails with ErrSerialization.
//
// # Delivery
//
// Publisher appends exactly one entry per call and does not retry. Each
// Subscriber is its own consumer group on one stream. Its Runtime:
//
//  1. creates the group if absent (bounded retry)
//  2. periodically reclaims entries pending longer than the idle threshold
//  3. reads no more new entries than it has free handler slots
//  4. runs each handler under a semaphore sized to the subscriber's concurrency
//  5. acknowledges an entry only after its handler returns nil
//
// Failed, panicking, or undecodable entries stay pending and are redelivered
// by step 2. Handlers must therefore be idempotent.
//
// On shutdown the runtime stops reading and waits for in-flight handlers.
// Handler contexts are detached from the runtime's cancellation.
package events
