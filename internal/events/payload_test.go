// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package events

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
)

func TestPayloadCodec(t *testing.T) {
	q := lookup.NewAlbumSearchLookupQuery("Radiohead", "OK Computer")
	release := files.MustParseFileName("release/ok-computer")
	search := files.MustParseFileName("search?q=radiohead+ok+computer")

	tests := []struct {
		name    string
		payload EventPayload
		check   func(t *testing.T, got Event)
	}{
		{
			name: "lookup updated",
			payload: EventPayload{
				Event: LookupAlbumSearchUpdated{Lookup: lookup.WithParsed(lookup.NewAlbumSearchLookup(q), lookup.AlbumSearchResult{
					AlbumName: "OK Computer", ArtistName: "Radiohead", FileName: release,
				})},
				CorrelationID: lookup.CorrelationID(q),
			},
			check: func(t *testing.T, got Event) {
				e, ok := got.(LookupAlbumSearchUpdated)
				if !ok {
					t.Fatalf("got %T", got)
				}
				parsed, ok := e.Lookup.(lookup.AlbumParsed)
				if !ok {
					t.Fatalf("lookup = %T, want AlbumParsed", e.Lookup)
				}
				if parsed.Result.FileName != release || !parsed.Q.Equal(q) {
					t.Errorf("lookup = %+v", parsed)
				}
			},
		},
		{
			name: "file parsed with match",
			payload: EventPayload{
				Event: FileParsed{FileName: search, Data: ParsedFileData{AlbumSearchResult: &lookup.AlbumSearchResult{
					AlbumName: "OK Computer", ArtistName: "Radiohead", FileName: release,
				}}},
				Metadata: map[string]string{"artist_name": "Radiohead", "album_name": "OK Computer"},
			},
			check: func(t *testing.T, got Event) {
				e, ok := got.(FileParsed)
				if !ok {
					t.Fatalf("got %T", got)
				}
				if e.FileName != search {
					t.Errorf("file name = %s", e.FileName)
				}
				if e.Data.AlbumSearchResult == nil || e.Data.AlbumSearchResult.FileName != release {
					t.Errorf("data = %+v", e.Data)
				}
			},
		},
		{
			name: "file parsed without data",
			payload: EventPayload{
				Event: FileParsed{FileName: release},
			},
			check: func(t *testing.T, got Event) {
				e := got.(FileParsed)
				if e.Data.AlbumSearchResult != nil {
					t.Errorf("data = %+v, want empty", e.Data)
				}
			},
		},
		{
			name:    "file parse failed",
			payload: EventPayload{Event: FileParseFailed{FileName: search, Error: "unexpected layout"}},
			check: func(t *testing.T, got Event) {
				e := got.(FileParseFailed)
				if e.FileName != search || e.Error != "unexpected layout" {
					t.Errorf("event = %+v", e)
				}
			},
		},
		{
			name:    "profile album added",
			payload: EventPayload{Event: ProfileAlbumAdded{ProfileID: "p1", FileName: release, Factor: 7}},
			check: func(t *testing.T, got Event) {
				e := got.(ProfileAlbumAdded)
				if e.ProfileID != "p1" || e.FileName != release || e.Factor != 7 {
					t.Errorf("event = %+v", e)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.payload)
			if err != nil {
				t.Fatalf("EncodePayload() error = %v", err)
			}
			got, err := DecodePayload(data)
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if got.Event.Type() != tt.payload.Event.Type() {
				t.Errorf("type = %s, want %s", got.Event.Type(), tt.payload.Event.Type())
			}
			if got.CorrelationID != tt.payload.CorrelationID {
				t.Errorf("correlation id = %q, want %q", got.CorrelationID, tt.payload.CorrelationID)
			}
			for k, v := range tt.payload.Metadata {
				if got.MetadataValue(k) != v {
					t.Errorf("metadata[%s] = %q, want %q", k, got.MetadataValue(k), v)
				}
			}
			tt.check(t, got.Event)
		})
	}
}

func TestEncodePayloadOmitsEmptyEnvelopeFields(t *testing.T) {
	data, err := EncodePayload(EventPayload{
		Event: FileParseFailed{FileName: files.MustParseFileName("artist/radiohead"), Error: "boom"},
	})
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}
	s := string(data)
	for _, field := range []string{"correlation_id", "metadata"} {
		if strings.Contains(s, field) {
			t.Errorf("encoded payload %s contains %q", s, field)
		}
	}
	if !strings.Contains(s, `"type":"FileParseFailed"`) {
		t.Errorf("encoded payload %s lacks type tag", s)
	}
}

func TestEncodePayloadWithoutEvent(t *testing.T) {
	if _, err := EncodePayload(EventPayload{}); !errors.Is(err, ErrSerialization) {
		t.Errorf("error = %v, want ErrSerialization", err)
	}
}

func TestDecodePayloadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"event":`},
		{"unknown type", `{"event":{"type":"SomethingElse"}}`},
		{"missing type", `{"event":{}}`},
		{"lookup without body", `{"event":{"type":"LookupAlbumSearchUpdated"}}`},
		{"file parsed without file", `{"event":{"type":"FileParsed"}}`},
		{"invalid file name", `{"event":{"type":"FileParseFailed","file_name":"bogus/x","error":"e"}}`},
		{"profile event without id", `{"event":{"type":"ProfileAlbumAdded","file_name":"release/x","factor":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePayload([]byte(tt.data)); !errors.Is(err, ErrSerialization) {
				t.Errorf("DecodePayload(%s) error = %v, want ErrSerialization", tt.data, err)
			}
		})
	}
}

func TestParseStream(t *testing.T) {
	for _, s := range Streams {
		got, err := ParseStream(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStream(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseStream("nope"); err == nil {
		t.Error("ParseStream(nope) succeeded")
	}
	if got := StreamParser.Topic("lute:stream:"); got != "lute:stream:parser" {
		t.Errorf("Topic() = %s", got)
	}
}
