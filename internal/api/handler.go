// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"context"
	"time"

	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/profile"
)

// LookupService is satisfied by *search.Interactor.
type LookupService interface {
	SearchAlbum(ctx context.Context, artistName, albumName string) (lookup.AlbumSearchLookup, error)
	FindManyAlbumSearchLookups(ctx context.Context, queries []lookup.AlbumSearchLookupQuery) ([]lookup.AlbumSearchLookup, error)
	FindManyAlbumSearchLookupsByAlbumFileName(ctx context.Context, name files.FileName) ([]lookup.AlbumSearchLookup, error)
	AggregateStatuses(ctx context.Context) ([]lookup.AggregatedStatus, error)
}

// ProfileService is satisfied by *profile.Interactor.
type ProfileService interface {
	CreateProfile(ctx context.Context, id, title string) (profile.Profile, error)
	GetProfile(ctx context.Context, id string) (profile.Profile, error)
	ImportAlbums(ctx context.Context, profileID string, items []profile.ImportItem) ([]profile.ImportResult, error)
}

// Pinger is satisfied by kv.Store and broker.Broker.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is one readiness check.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// Handler serves the API routes.
type Handler struct {
	lookups      LookupService
	profiles     ProfileService
	contents     files.ContentStore
	dependencies []Dependency
	pingTimeout  time.Duration
	startTime    time.Time
}

// NewHandler creates a handler. dependencies are pinged by the readiness probe.
func NewHandler(lookups LookupService, profiles ProfileService, dependencies ...Dependency) *Handler {
	return &Handler{
		lookups:      lookups,
		profiles:     profiles,
		dependencies: dependencies,
		pingTimeout:  2 * time.Second,
		startTime:    time.Now(),
	}
}

// SetContentStore enables the /files routes.
func (h *Handler) SetContentStore(cs files.ContentStore) {
	h.contents = cs
}
