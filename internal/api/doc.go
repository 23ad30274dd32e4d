// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

/*
Package api exposes the lookup and profile interactors over HTTP using chi.

# Routes

	GET  /api/v1/health/live                       process is up
	GET  /api/v1/health/ready                      store and broker answer Ping
	POST /api/v1/lookups/album-search              search one album (creates a lookup on first sight)
	POST /api/v1/lookups/album-search/batch        read many lookups without creating any
	GET  /api/v1/lookups/album-search/by-file      lookups resolved to ?file_name=
	GET  /api/v1/lookups/statuses                  lookup counts per status
	POST /api/v1/profiles                          create a profile
	GET  /api/v1/profiles/{id}                     read a profile and its albums
	POST /api/v1/profiles/{id}/import              import albums by artist and album name
	GET  /api/v1/files                             stored file names
	GET  /api/v1/files/content                     content stored under ?file_name=
	PUT  /api/v1/files/content                     store the raw body under ?file_name=
	GET  /metrics                                  Prometheus exposition

# Responses

Every API response uses the same envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "...", "request_id": "..."}
	}

Errors set status to "error" and carry {"code", "message", "details"} in
the error field. Request bodies are decoded with goccy/go-json, reject
unknown fields, and are validated through internal/validation.
*/
package api
