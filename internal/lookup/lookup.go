// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package lookup

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lute/internal/files"
)

var (
	// ErrInvalidRecord is returned when a stored or transmitted lookup cannot be decoded.
	ErrInvalidRecord = errors.New("invalid album search lookup record")

	// ErrInvalidTransition is returned when a lookup would move back to Started.
	ErrInvalidTransition = errors.New("invalid album search lookup transition")
)

// Status names a lookup state.
type Status string

const (
	StatusStarted       Status = "started"
	StatusAlbumParsed   Status = "album_parsed"
	StatusAlbumNotFound Status = "album_not_found"
	StatusErrored       Status = "errored"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusStarted, StatusAlbumParsed, StatusAlbumNotFound, StatusErrored}

// IsTerminal reports whether no further automatic transition follows s.
func (s Status) IsTerminal() bool {
	return s == StatusAlbumParsed || s == StatusAlbumNotFound || s == StatusErrored
}

// AlbumSearchResult is what the parser extracted from a search result page.
type AlbumSearchResult struct {
	AlbumName  string         `json:"album_name"`
	ArtistName string         `json:"artist_name"`
	FileName   files.FileName `json:"file_name"`
}

// AlbumSearchLookup is one of Started, AlbumParsed, AlbumNotFound or Errored.
type AlbumSearchLookup interface {
	Query() AlbumSearchLookupQuery
	Status() Status
	isAlbumSearchLookup()
}

// Started is a lookup with no result yet.
type Started struct {
	Q AlbumSearchLookupQuery
}

// AlbumParsed is a lookup resolved to a catalog release.
type AlbumParsed struct {
	Q      AlbumSearchLookupQuery
	Result AlbumSearchResult
}

// AlbumNotFound is a lookup whose search produced no match.
type AlbumNotFound struct {
	Q AlbumSearchLookupQuery
}

// Errored is a lookup whose processing failed.
type Errored struct {
	Q     AlbumSearchLookupQuery
	Error string
}

func (l Started) Query() AlbumSearchLookupQuery       { return l.Q }
func (l AlbumParsed) Query() AlbumSearchLookupQuery   { return l.Q }
func (l AlbumNotFound) Query() AlbumSearchLookupQuery { return l.Q }
func (l Errored) Query() AlbumSearchLookupQuery       { return l.Q }

func (Started) Status() Status       { return StatusStarted }
func (AlbumParsed) Status() Status   { return StatusAlbumParsed }
func (AlbumNotFound) Status() Status { return StatusAlbumNotFound }
func (Errored) Status() Status       { return StatusErrored }

func (Started) isAlbumSearchLookup()       {}
func (AlbumParsed) isAlbumSearchLookup()   {}
func (AlbumNotFound) isAlbumSearchLookup() {}
func (Errored) isAlbumSearchLookup()       {}

// IsTerminal reports whether l is in a terminal state.
func IsTerminal(l AlbumSearchLookup) bool {
	return l.Status().IsTerminal()
}

// LookupCorrelationID is CorrelationID of the lookup's query.
func LookupCorrelationID(l AlbumSearchLookup) string {
	return CorrelationID(l.Query())
}

// NewAlbumSearchLookup starts a lookup for q.
func NewAlbumSearchLookup(q AlbumSearchLookupQuery) Started {
	return Started{Q: q}
}

// WithParsed resolves l to result.
func WithParsed(l AlbumSearchLookup, result AlbumSearchResult) AlbumParsed {
	return AlbumParsed{Q: l.Query(), Result: result}
}

// WithNotFound marks l as having no match.
func WithNotFound(l AlbumSearchLookup) AlbumNotFound {
	return AlbumNotFound{Q: l.Query()}
}

// WithError marks l as failed with detail.
func WithError(l AlbumSearchLookup, detail string) Errored {
	return Errored{Q: l.Query(), Error: detail}
}

// CheckTransition returns ErrInvalidTransition when next would revert a
// terminal lookup to Started or change its query identity.
func CheckTransition(current, next AlbumSearchLookup) error {
	if !current.Query().Equal(next.Query()) {
		return fmt.Errorf("%w: query %q does not match %q", ErrInvalidTransition, next.Query(), current.Query())
	}
	if current.Status().IsTerminal() && next.Status() == StatusStarted {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status(), next.Status())
	}
	return nil
}

// SameState reports whether a and b carry identical state, which makes
// re-applying b over a a no-op.
func SameState(a, b AlbumSearchLookup) bool {
	if a.Status() != b.Status() || !a.Query().Equal(b.Query()) {
		return false
	}
	switch av := a.(type) {
	case AlbumParsed:
		bv := b.(AlbumParsed)
		return av.Result.FileName == bv.Result.FileName &&
			av.Result.AlbumName == bv.Result.AlbumName &&
			av.Result.ArtistName == bv.Result.ArtistName
	case Errored:
		return av.Error == b.(Errored).Error
	default:
		return true
	}
}

// record is the wire and storage shape of every variant.
type record struct {
	Status                  Status                 `json:"status"`
	Query                   AlbumSearchLookupQuery `json:"query"`
	CorrelationID           string                 `json:"correlation_id"`
	ParsedAlbumSearchResult *AlbumSearchResult     `json:"parsed_album_search_result,omitempty"`
	Error                   string                 `json:"error,omitempty"`
}

// Marshal encodes l as a JSON object tagged by "status".
func Marshal(l AlbumSearchLookup) ([]byte, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: nil lookup", ErrInvalidRecord)
	}
	rec := record{
		Status:        l.Status(),
		Query:         l.Query(),
		CorrelationID: LookupCorrelationID(l),
	}
	switch v := l.(type) {
	case AlbumParsed:
		result := v.Result
		rec.ParsedAlbumSearchResult = &result
	case Errored:
		rec.Error = v.Error
	}
	return json.Marshal(rec)
}

// Unmarshal decodes a lookup written by Marshal.
func Unmarshal(data []byte) (AlbumSearchLookup, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	switch rec.Status {
	case StatusStarted:
		return Started{Q: rec.Query}, nil
	case StatusAlbumParsed:
		if rec.ParsedAlbumSearchResult == nil {
			return nil, fmt.Errorf("%w: album_parsed without result", ErrInvalidRecord)
		}
		return AlbumParsed{Q: rec.Query, Result: *rec.ParsedAlbumSearchResult}, nil
	case StatusAlbumNotFound:
		return AlbumNotFound{Q: rec.Query}, nil
	case StatusErrored:
		return Errored{Q: rec.Query, Error: rec.Error}, nil
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, rec.Status)
	}
}
