// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package metrics provides Prometheus instrumentation for the event bus,
// the lookup pipeline, the publisher circuit breaker and the HTTP API.
//
// Metrics are registered on the default registry through promauto and are
// served by the API router on /metrics.
package metrics
