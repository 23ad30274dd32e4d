// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package profile manages listener profiles and the Spotify import flow
// that fills them from album search lookups.
//
// An imported album whose lookup is not yet resolved is parked as a
// SpotifyImportSubscription. The profile_spotify_import subscriber fulfills
// parked subscriptions when the lookup reaches AlbumParsed.
package profile

import (
	"errors"
	"regexp"
	"sort"

	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrProfileExists    = errors.New("profile already exists")
	ErrInvalidProfileID = errors.New("invalid profile id")
)

var profileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateProfileID checks that id is usable as a storage key segment.
func ValidateProfileID(id string) error {
	if !profileIDPattern.MatchString(id) {
		return ErrInvalidProfileID
	}
	return nil
}

// Profile is a named collection of albums, each weighted by a factor.
type Profile struct {
	ID     string
	Title  string
	Albums map[files.FileName]uint32
}

// AlbumEntry is one album of a profile in a stable order.
type AlbumEntry struct {
	FileName files.FileName `json:"file_name"`
	Factor   uint32         `json:"factor"`
}

// SortedAlbums returns the albums ordered by file name.
func (p Profile) SortedAlbums() []AlbumEntry {
	out := make([]AlbumEntry, 0, len(p.Albums))
	for name, factor := range p.Albums {
		out = append(out, AlbumEntry{FileName: name, Factor: factor})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName.String() < out[j].FileName.String() })
	return out
}

// SpotifyImportSubscription parks an import until its lookup resolves.
type SpotifyImportSubscription struct {
	ProfileID string                        `json:"profile_id"`
	Query     lookup.AlbumSearchLookupQuery `json:"query"`
	Factor    uint32                        `json:"factor"`
}

// ImportItem is one album requested by an import.
type ImportItem struct {
	ArtistName string `json:"artist_name" validate:"required,max=512"`
	AlbumName  string `json:"album_name" validate:"required,max=512"`
	Factor     uint32 `json:"factor" validate:"omitempty,gte=1"`
}

// ImportOutcome reports what happened to one ImportItem.
type ImportOutcome string

const (
	OutcomeAdded      ImportOutcome = "added"
	OutcomeSubscribed ImportOutcome = "subscribed"
	OutcomeSkipped    ImportOutcome = "skipped"
)

// ImportResult pairs an item with its outcome and the lookup status seen.
type ImportResult struct {
	Item    ImportItem    `json:"item"`
	Outcome ImportOutcome `json:"outcome"`
	Status  lookup.Status `json:"status"`
}
