// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package testinfra provides container-backed infrastructure for integration tests.
//
// Files in this package build only with the integration tag:
//
//	go test -tags integration ./...
//
// # Redis Container
//
// RedisContainer starts a real Redis server so the Redis Streams broker and
// the Redis keyed store are tested against the commands they use in
// production (XREADGROUP, XAUTOCLAIM, MULTI/EXEC):
//
//	func TestRedisBroker(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc)
//
//	    client := rc.Client(t)
//	    b := broker.NewRedisBroker(client)
//	    // ...
//	}
//
// Tests are skipped when Docker is unavailable.
package testinfra
