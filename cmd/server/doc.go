// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

/*
Package main is the entry point for the Lute server.

Lute resolves artist and album names to catalog artifacts. A search records
an album search lookup and publishes it on the lookup stream; the crawler and
parser pick it up, and their results arrive on the parser stream where a
subscriber moves the lookup to its terminal state. Profiles import albums by
name and wait on those lookups through subscriptions.

# Application Architecture

The server runs under a Suture v4 supervision tree:

	RootSupervisor ("lute")
	├── StorageSupervisor ("storage-layer")
	│   └── badger-gc (only with a badger backend)
	├── SubscriberSupervisor ("subscriber-layer")
	│   ├── subscriber:lookup_parser_results
	│   └── subscriber:profile_spotify_import
	└── APISupervisor ("api-layer")
	    └── http-server

Startup order:

 1. Configuration: koanf v2 with defaults, an optional YAML file, and environment variables
 2. Logging: zerolog, JSON or console
 3. Backends: Redis client, BadgerDB, NATS connection (embedded server optional)
 4. Readiness: store and broker are pinged with bounded retry
 5. Domain: repositories, publisher with circuit breaker, interactors, subscribers
 6. Supervisor tree, then the HTTP server inside it

# Backends

	BROKER_BACKEND=redis|badger|jetstream
	STORE_BACKEND=redis|badger

	REDIS_URL=redis://localhost:6379/0
	BADGER_PATH=/data/badger            # BADGER_IN_MEMORY=true for throwaway runs
	NATS_URL=nats://localhost:4222      # or NATS_EMBEDDED=true with NATS_STORE_DIR

A single-binary deployment needs no external services:

	export BROKER_BACKEND=badger STORE_BACKEND=badger BADGER_PATH=/data/badger
	./lute

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server (draining requests up to HTTP_SHUTDOWN_TIMEOUT) and the subscribers
(waiting for in-flight handlers), after which the NATS connection, the
embedded server, the Redis client, and the badger database are closed.
*/
package main
