// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

/*
Package config loads Lute's configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml,
    /etc/lute/config.yaml, /etc/lute/config.yml (first found)
 3. Environment variables from an explicit mapping table

Only mapped environment variables are read; anything else in the
environment is ignored.

# Environment Variables

	HTTP_HOST, HTTP_PORT                  server.host, server.port
	CORS_ALLOWED_ORIGINS                  server.cors_allowed_origins (comma separated)
	LOG_LEVEL, LOG_FORMAT, LOG_CALLER     logging.*
	BROKER_BACKEND                        broker.backend (redis|badger|jetstream)
	BROKER_TOPIC_PREFIX                   broker.topic_prefix
	BROKER_CLAIM_MIN_IDLE                 broker.claim_min_idle
	BROKER_MAX_DELIVERIES                 broker.max_deliveries
	STORE_BACKEND                         store.backend (redis|badger)
	REDIS_URL                             redis.url
	BADGER_PATH, BADGER_IN_MEMORY         badger.*
	NATS_URL, NATS_EMBEDDED               nats.*
	SUBSCRIBER_CONCURRENCY                subscribers.concurrency, as id=n,id=n

See envMappings for the full table.

# Example

	broker:
	  backend: redis
	  claim_min_idle: 60s
	store:
	  backend: redis
	redis:
	  url: redis://localhost:6379/0
	subscribers:
	  concurrency:
	    profile_spotify_import: 250
*/
package config
