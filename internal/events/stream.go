// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package events

import "fmt"

// Stream names a logical event stream.
type Stream string

const (
	StreamLookup  Stream = "lookup"
	StreamParser  Stream = "parser"
	StreamProfile Stream = "profile"
)

// DefaultTopicPrefix is prepended to stream names to form broker topics.
const DefaultTopicPrefix = "lute:stream:"

// Streams lists every stream.
var Streams = []Stream{StreamLookup, StreamParser, StreamProfile}

// ParseStream converts a configured name to a Stream.
func ParseStream(name string) (Stream, error) {
	for _, s := range Streams {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stream %q", name)
}

// Topic returns the broker topic for s under prefix.
func (s Stream) Topic(prefix string) string {
	return prefix + string(s)
}
