// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package lookup

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keySeparator joins the normalized names. Unit separator cannot survive
// normalization because it is a control character and is stripped.
const keySeparator = "\x1f"

// AlbumSearchLookupQuery identifies a search by artist and album name.
type AlbumSearchLookupQuery struct {
	AlbumName  string `json:"album_name"`
	ArtistName string `json:"artist_name"`
}

// NewAlbumSearchLookupQuery tidies whitespace in both names.
func NewAlbumSearchLookupQuery(artistName, albumName string) AlbumSearchLookupQuery {
	return AlbumSearchLookupQuery{
		AlbumName:  collapseSpace(albumName),
		ArtistName: collapseSpace(artistName),
	}
}

// Key is the canonical identity used for storage and deduplication.
func (q AlbumSearchLookupQuery) Key() string {
	return normalizeName(q.ArtistName) + keySeparator + normalizeName(q.AlbumName)
}

// Equal reports whether q and other are the same lookup.
func (q AlbumSearchLookupQuery) Equal(other AlbumSearchLookupQuery) bool {
	return q.Key() == other.Key()
}

// IsEmpty reports whether either name is blank after normalization.
func (q AlbumSearchLookupQuery) IsEmpty() bool {
	return normalizeName(q.ArtistName) == "" || normalizeName(q.AlbumName) == ""
}

func (q AlbumSearchLookupQuery) String() string {
	return q.ArtistName + " - " + q.AlbumName
}

// normalizeName builds its transformers per call; casers and chains carry
// state and must not be shared between goroutines.
func normalizeName(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.In(unicode.Cc)),
		norm.NFC,
	)
	spaced := collapseSpace(s)
	stripped, _, err := transform.String(t, spaced)
	if err != nil {
		stripped = spaced
	}
	return collapseSpace(cases.Fold().String(stripped))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
