// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package search orchestrates album search lookups on top of the lookup
// repository and the event bus.
//
// SearchAlbum is read-through-or-create: a known query returns the stored
// lookup without side effects, an unknown one is stored as Started and a
// single LookupAlbumSearchUpdated event is published. The event is only
// published after the write succeeded.
//
// Two callers racing on the same new query may both create and publish.
// The duplicate is harmless: the record write is last-writer-wins on one
// key and every subscriber is idempotent.
//
// The lookup_parser_results subscriber advances lookups from parser output
// and republishes each transition on the lookup stream.
package search
