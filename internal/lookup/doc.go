// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package lookup holds the album search lookup state machine and its
// repository.
//
// # Query identity
//
// An AlbumSearchLookupQuery is an (artist, album) pair. Two queries are the
// same lookup when their Key values match. Key normalizes both names by:
//
//  1. NFKD decomposition and removal of combining marks ("Björk" → "Bjork")
//  2. Unicode case folding ("BJORK" → "bjork")
//  3. trimming and collapsing runs of whitespace to a single space
//
// The display names keep their original casing and diacritics with only
// whitespace tidied.
//
// # States
//
//	Started ──┬──> AlbumParsed
//	          ├──> AlbumNotFound
//	          └──> Errored
//
// Terminal states may be replaced by another terminal state when the parser
// reports a newer result, but never by Started.
//
// # Storage
//
// Records live under lookup:album_search:record:<key>. Lookups in the
// AlbumParsed state are also indexed by the resolved file name in the set
// lookup:album_search:file_index:<file name>. The record write and the index
// update are applied atomically.
package lookup
