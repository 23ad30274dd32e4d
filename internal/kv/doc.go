// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package kv is the keyed store used by the lookup and profile repositories.
//
// The store exposes byte values addressed by string keys plus string sets
// (used for secondary indexes). Multi-key writes go through Apply, which runs
// all operations atomically: a failed Apply leaves no partial state behind.
//
// Two backends are provided:
//
//   - RedisStore: go-redis client, Apply uses MULTI/EXEC
//   - BadgerStore: embedded BadgerDB, Apply uses a single read-write transaction
//
// Callers own the underlying client and close it themselves.
package kv
