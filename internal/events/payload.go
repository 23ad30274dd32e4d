// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package events

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Metadata keys carried from a search through the crawl and parse steps so
// parser results can be matched back to their lookup.
const (
	MetadataArtistName = "artist_name"
	MetadataAlbumName  = "album_name"
)

// EventPayload is the envelope appended to a stream.
type EventPayload struct {
	Event Event

	// CorrelationID links every event produced while resolving one search.
	// Empty means none.
	CorrelationID string

	Metadata map[string]string
}

type wirePayload struct {
	Event         wireEvent         `json:"event"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// EncodePayload serializes p for the broker.
func EncodePayload(p EventPayload) ([]byte, error) {
	if p.Event == nil {
		return nil, fmt.Errorf("%w: payload without event", ErrSerialization)
	}
	ev, err := encodeEvent(p.Event)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	data, err := json.Marshal(wirePayload{
		Event:         ev,
		CorrelationID: p.CorrelationID,
		Metadata:      p.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

// DecodePayload parses an entry written by EncodePayload.
func DecodePayload(data []byte) (EventPayload, error) {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return EventPayload{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	ev, err := decodeEvent(w.Event)
	if err != nil {
		return EventPayload{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return EventPayload{
		Event:         ev,
		CorrelationID: w.CorrelationID,
		Metadata:      w.Metadata,
	}, nil
}

// MetadataValue returns the metadata entry for key, or "".
func (p EventPayload) MetadataValue(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
