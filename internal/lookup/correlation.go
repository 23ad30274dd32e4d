// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package lookup

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

const correlationPrefix = "lookup:album_search:"

// CorrelationID derives the id shared by every event emitted while resolving
// q. It is a 128-bit xxh3 of the query key, so normalization-equivalent
// queries share an id.
func CorrelationID(q AlbumSearchLookupQuery) string {
	sum := xxh3.HashString128(q.Key()).Bytes()
	return correlationPrefix + hex.EncodeToString(sum[:])
}
