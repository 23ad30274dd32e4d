// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package files names crawled catalog artifacts and stores their content.
package files

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
)

// ErrInvalidFileName is returned for names outside the artifact naming scheme.
var ErrInvalidFileName = errors.New("invalid file name")

// PageType classifies an artifact by its name prefix.
type PageType string

const (
	PageTypeAlbum             PageType = "album"
	PageTypeArtist            PageType = "artist"
	PageTypeChart             PageType = "chart"
	PageTypeAlbumSearchResult PageType = "album_search_result"
)

var prefixes = []struct {
	prefix   string
	pageType PageType
}{
	{"release/", PageTypeAlbum},
	{"artist/", PageTypeArtist},
	{"charts/", PageTypeChart},
	{"search?", PageTypeAlbumSearchResult},
	{"search/", PageTypeAlbumSearchResult},
}

// ListedPrefixes are the prefixes ListFiles enumerates. Search result pages
// are transient and never listed.
var ListedPrefixes = []string{"release/", "charts/", "artist/"}

// FileName identifies a crawled artifact, e.g. "release/album/radiohead/ok-computer".
// The zero value is not a valid name.
type FileName struct {
	name     string
	pageType PageType
}

// ParseFileName validates raw against the naming scheme.
func ParseFileName(raw string) (FileName, error) {
	if raw == "" {
		return FileName{}, fmt.Errorf("%w: empty", ErrInvalidFileName)
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return FileName{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidFileName, raw)
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(raw, p.prefix) {
			continue
		}
		rest := raw[len(p.prefix):]
		if rest == "" || strings.HasPrefix(rest, "/") || strings.Contains(rest, "//") {
			return FileName{}, fmt.Errorf("%w: %q has an empty path segment", ErrInvalidFileName, raw)
		}
		return FileName{name: raw, pageType: p.pageType}, nil
	}
	return FileName{}, fmt.Errorf("%w: %q has an unknown prefix", ErrInvalidFileName, raw)
}

// MustParseFileName is ParseFileName for constants and tests. It panics on
// an invalid name.
func MustParseFileName(raw string) FileName {
	f, err := ParseFileName(raw)
	if err != nil {
		panic(err)
	}
	return f
}

func (f FileName) String() string { return f.name }

// PageType reports what kind of page the artifact is.
func (f FileName) PageType() PageType { return f.pageType }

// IsZero reports whether f is the zero value.
func (f FileName) IsZero() bool { return f.name == "" }

// MarshalJSON encodes the name as a JSON string.
func (f FileName) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.name)
}

// UnmarshalJSON decodes and validates a JSON string. An empty string decodes
// to the zero value.
func (f *FileName) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*f = FileName{}
		return nil
	}
	parsed, err := ParseFileName(raw)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
