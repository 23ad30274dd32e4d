// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

/*
Package middleware provides chi-compatible HTTP middleware for the API.

  - RequestID: reuses or generates X-Request-ID and stores it, plus a
    correlation id, in the logging context.
  - PrometheusMetrics: records request count and latency per chi route
    pattern, so path parameters do not explode label cardinality.

Both have the func(http.Handler) http.Handler shape expected by chi's r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
