// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/metrics"
)

// ErrInvalidQuery is returned when the artist or album name is blank.
var ErrInvalidQuery = errors.New("artist and album names are required")

// LookupRepository is the storage the interactor needs.
// *lookup.Repository implements it.
type LookupRepository interface {
	Put(ctx context.Context, l lookup.AlbumSearchLookup) error
	Find(ctx context.Context, q lookup.AlbumSearchLookupQuery) (lookup.AlbumSearchLookup, error)
	Get(ctx context.Context, q lookup.AlbumSearchLookupQuery) (lookup.AlbumSearchLookup, error)
	FindMany(ctx context.Context, queries []lookup.AlbumSearchLookupQuery) ([]lookup.AlbumSearchLookup, error)
	FindManyByAlbumFileName(ctx context.Context, name files.FileName) ([]lookup.AlbumSearchLookup, error)
	AggregateStatuses(ctx context.Context) ([]lookup.AggregatedStatus, error)
}

// Interactor is the entry point for album searches.
type Interactor struct {
	repo      LookupRepository
	publisher events.EventPublisher
}

// NewInteractor creates an interactor.
func NewInteractor(repo LookupRepository, publisher events.EventPublisher) *Interactor {
	return &Interactor{repo: repo, publisher: publisher}
}

// SearchAlbum returns the lookup for (artistName, albumName), creating and
// announcing it on first sight.
func (i *Interactor) SearchAlbum(ctx context.Context, artistName, albumName string) (lookup.AlbumSearchLookup, error) {
	q := lookup.NewAlbumSearchLookupQuery(artistName, albumName)
	if q.IsEmpty() {
		return nil, ErrInvalidQuery
	}

	existing, err := i.repo.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find lookup: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	started := lookup.NewAlbumSearchLookup(q)
	if err := i.repo.Put(ctx, started); err != nil {
		return nil, fmt.Errorf("store new lookup: %w", err)
	}
	if err := i.publishUpdate(ctx, started, nil); err != nil {
		return nil, err
	}

	metrics.RecordLookupCreated()
	logging.Ctx(logging.ContextWithCorrelationID(ctx, lookup.CorrelationID(q))).Info().
		Str("artist_name", q.ArtistName).
		Str("album_name", q.AlbumName).
		Msg("Album search lookup created")
	return started, nil
}

// publishUpdate announces l on the lookup stream. Metadata is copied over
// the query names so downstream steps can echo it back.
func (i *Interactor) publishUpdate(ctx context.Context, l lookup.AlbumSearchLookup, metadata map[string]string) error {
	q := l.Query()
	md := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		md[k] = v
	}
	md[events.MetadataArtistName] = q.ArtistName
	md[events.MetadataAlbumName] = q.AlbumName

	err := i.publisher.Publish(ctx, events.StreamLookup, events.EventPayload{
		Event:         events.LookupAlbumSearchUpdated{Lookup: l},
		CorrelationID: lookup.CorrelationID(q),
		Metadata:      md,
	})
	if err != nil {
		return fmt.Errorf("publish lookup update: %w", err)
	}
	return nil
}

// PutAlbumSearchLookup stores l without publishing.
func (i *Interactor) PutAlbumSearchLookup(ctx context.Context, l lookup.AlbumSearchLookup) error {
	return i.repo.Put(ctx, l)
}

// FindAlbumSearchLookup returns nil, nil when the query is unknown.
func (i *Interactor) FindAlbumSearchLookup(ctx context.Context, q lookup.AlbumSearchLookupQuery) (lookup.AlbumSearchLookup, error) {
	return i.repo.Find(ctx, q)
}

// GetAlbumSearchLookup fails with lookup.ErrNotFound when the query is unknown.
func (i *Interactor) GetAlbumSearchLookup(ctx context.Context, q lookup.AlbumSearchLookupQuery) (lookup.AlbumSearchLookup, error) {
	return i.repo.Get(ctx, q)
}

func (i *Interactor) FindManyAlbumSearchLookups(ctx context.Context, queries []lookup.AlbumSearchLookupQuery) ([]lookup.AlbumSearchLookup, error) {
	return i.repo.FindMany(ctx, queries)
}

func (i *Interactor) FindManyAlbumSearchLookupsByAlbumFileName(ctx context.Context, name files.FileName) ([]lookup.AlbumSearchLookup, error) {
	return i.repo.FindManyByAlbumFileName(ctx, name)
}

func (i *Interactor) AggregateStatuses(ctx context.Context) ([]lookup.AggregatedStatus, error) {
	return i.repo.AggregateStatuses(ctx)
}
