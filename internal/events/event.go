// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package events

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
)

// ErrSerialization is returned for envelopes that cannot be encoded or decoded.
var ErrSerialization = errors.New("event serialization error")

// EventType is the "type" tag of an encoded event.
type EventType string

const (
	TypeLookupAlbumSearchUpdated EventType = "LookupAlbumSearchUpdated"
	TypeFileParsed               EventType = "FileParsed"
	TypeFileParseFailed          EventType = "FileParseFailed"
	TypeProfileAlbumAdded        EventType = "ProfileAlbumAdded"
)

// Event is one of the domain events below. The set is closed; consumers
// switch on the concrete type and ignore kinds they do not handle.
type Event interface {
	Type() EventType
	isEvent()
}

// LookupAlbumSearchUpdated is emitted whenever a lookup is created or changes state.
type LookupAlbumSearchUpdated struct {
	Lookup lookup.AlbumSearchLookup
}

// ParsedFileData is the structured output of a parsed page. Only search
// result pages carry data the lookup pipeline reads.
type ParsedFileData struct {
	// AlbumSearchResult is set for search result pages. A zero FileName
	// means the search matched nothing.
	AlbumSearchResult *lookup.AlbumSearchResult `json:"album_search_result,omitempty"`
}

// FileParsed is emitted by the parser after a page was parsed.
type FileParsed struct {
	FileName files.FileName
	Data     ParsedFileData
}

// FileParseFailed is emitted by the parser when a page could not be parsed.
type FileParseFailed struct {
	FileName files.FileName
	Error    string
}

// ProfileAlbumAdded is emitted when an album is attached to a profile.
type ProfileAlbumAdded struct {
	ProfileID string
	FileName  files.FileName
	Factor    uint32
}

func (LookupAlbumSearchUpdated) Type() EventType { return TypeLookupAlbumSearchUpdated }
func (FileParsed) Type() EventType               { return TypeFileParsed }
func (FileParseFailed) Type() EventType          { return TypeFileParseFailed }
func (ProfileAlbumAdded) Type() EventType        { return TypeProfileAlbumAdded }

func (LookupAlbumSearchUpdated) isEvent() {}
func (FileParsed) isEvent()               {}
func (FileParseFailed) isEvent()          {}
func (ProfileAlbumAdded) isEvent()        {}

// wireEvent is the flattened JSON shape shared by all event kinds.
type wireEvent struct {
	Type      EventType       `json:"type"`
	Lookup    json.RawMessage `json:"lookup,omitempty"`
	FileName  *files.FileName `json:"file_name,omitempty"`
	Data      *ParsedFileData `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ProfileID string          `json:"profile_id,omitempty"`
	Factor    uint32          `json:"factor,omitempty"`
}

func encodeEvent(e Event) (wireEvent, error) {
	w := wireEvent{Type: e.Type()}
	switch v := e.(type) {
	case LookupAlbumSearchUpdated:
		raw, err := lookup.Marshal(v.Lookup)
		if err != nil {
			return w, err
		}
		w.Lookup = raw
	case FileParsed:
		name := v.FileName
		data := v.Data
		w.FileName = &name
		w.Data = &data
	case FileParseFailed:
		name := v.FileName
		w.FileName = &name
		w.Error = v.Error
	case ProfileAlbumAdded:
		name := v.FileName
		w.FileName = &name
		w.ProfileID = v.ProfileID
		w.Factor = v.Factor
	default:
		return w, fmt.Errorf("unsupported event %T", e)
	}
	return w, nil
}

func decodeEvent(w wireEvent) (Event, error) {
	fileName := func() (files.FileName, error) {
		if w.FileName == nil || w.FileName.IsZero() {
			return files.FileName{}, fmt.Errorf("%s without file_name", w.Type)
		}
		return *w.FileName, nil
	}

	switch w.Type {
	case TypeLookupAlbumSearchUpdated:
		if len(w.Lookup) == 0 {
			return nil, errors.New("LookupAlbumSearchUpdated without lookup")
		}
		l, err := lookup.Unmarshal(w.Lookup)
		if err != nil {
			return nil, err
		}
		return LookupAlbumSearchUpdated{Lookup: l}, nil
	case TypeFileParsed:
		name, err := fileName()
		if err != nil {
			return nil, err
		}
		e := FileParsed{FileName: name}
		if w.Data != nil {
			e.Data = *w.Data
		}
		return e, nil
	case TypeFileParseFailed:
		name, err := fileName()
		if err != nil {
			return nil, err
		}
		return FileParseFailed{FileName: name, Error: w.Error}, nil
	case TypeProfileAlbumAdded:
		name, err := fileName()
		if err != nil {
			return nil, err
		}
		if w.ProfileID == "" {
			return nil, errors.New("ProfileAlbumAdded without profile_id")
		}
		return ProfileAlbumAdded{ProfileID: w.ProfileID, FileName: name, Factor: w.Factor}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", w.Type)
	}
}
