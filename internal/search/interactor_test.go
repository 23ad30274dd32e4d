// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
)

func TestSearchAlbumCreatesOnce(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	i := NewInteractor(newTestRepository(t), pub)

	first, err := i.SearchAlbum(ctx, "Radiohead", "OK Computer")
	if err != nil {
		t.Fatalf("SearchAlbum() error = %v", err)
	}
	if first.Status() != lookup.StatusStarted {
		t.Errorf("status = %s, want started", first.Status())
	}

	// Same identity with different spelling hits the stored record.
	second, err := i.SearchAlbum(ctx, "  radiohead ", "ok   computer")
	if err != nil {
		t.Fatalf("second SearchAlbum() error = %v", err)
	}
	if !second.Query().Equal(first.Query()) {
		t.Errorf("second query = %v, want %v", second.Query(), first.Query())
	}

	sent := pub.all()
	if len(sent) != 1 {
		t.Fatalf("published %d events, want 1", len(sent))
	}
	if sent[0].stream != events.StreamLookup {
		t.Errorf("stream = %s, want lookup", sent[0].stream)
	}
	updated, ok := sent[0].payload.Event.(events.LookupAlbumSearchUpdated)
	if !ok {
		t.Fatalf("event = %T", sent[0].payload.Event)
	}
	if updated.Lookup.Status() != lookup.StatusStarted {
		t.Errorf("published status = %s", updated.Lookup.Status())
	}
	if want := lookup.CorrelationID(first.Query()); sent[0].payload.CorrelationID != want {
		t.Errorf("correlation id = %q, want %q", sent[0].payload.CorrelationID, want)
	}
	if sent[0].payload.MetadataValue(events.MetadataArtistName) != "Radiohead" {
		t.Errorf("metadata = %v", sent[0].payload.Metadata)
	}
}

func TestSearchAlbumReturnsExistingTerminalLookup(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	pub := &recordingPublisher{}
	i := NewInteractor(repo, pub)

	q := lookup.NewAlbumSearchLookupQuery("Björk", "Homogenic")
	parsed := lookup.WithParsed(lookup.NewAlbumSearchLookup(q), lookup.AlbumSearchResult{
		AlbumName: "Homogenic", ArtistName: "Björk", FileName: files.MustParseFileName("release/homogenic"),
	})
	if err := i.PutAlbumSearchLookup(ctx, parsed); err != nil {
		t.Fatal(err)
	}

	got, err := i.SearchAlbum(ctx, "bjork", "homogenic")
	if err != nil {
		t.Fatalf("SearchAlbum() error = %v", err)
	}
	if got.Status() != lookup.StatusAlbumParsed {
		t.Errorf("status = %s, want album_parsed", got.Status())
	}
	if len(pub.all()) != 0 {
		t.Errorf("published %d events for a known query", len(pub.all()))
	}
}

func TestSearchAlbumFailedPutPublishesNothing(t *testing.T) {
	putErr := errors.New("store down")
	pub := &recordingPublisher{}
	i := NewInteractor(failingPutRepository{Repository: newTestRepository(t), err: putErr}, pub)

	_, err := i.SearchAlbum(context.Background(), "Radiohead", "Kid A")
	if !errors.Is(err, putErr) {
		t.Fatalf("error = %v, want %v", err, putErr)
	}
	if len(pub.all()) != 0 {
		t.Errorf("published %d events after failed put", len(pub.all()))
	}
}

func TestSearchAlbumPropagatesPublishError(t *testing.T) {
	pub := &recordingPublisher{err: broker.ErrTransport}
	repo := newTestRepository(t)
	i := NewInteractor(repo, pub)

	_, err := i.SearchAlbum(context.Background(), "Radiohead", "Amnesiac")
	if !errors.Is(err, broker.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}

	// The record was written before the publish failed.
	l, err := i.FindAlbumSearchLookup(context.Background(), lookup.NewAlbumSearchLookupQuery("Radiohead", "Amnesiac"))
	if err != nil || l == nil {
		t.Errorf("FindAlbumSearchLookup() = %v, %v", l, err)
	}
}

func TestSearchAlbumRejectsBlankNames(t *testing.T) {
	i := NewInteractor(newTestRepository(t), &recordingPublisher{})
	tests := []struct{ artist, album string }{
		{"", "OK Computer"},
		{"Radiohead", "   "},
		{"", ""},
	}
	for _, tt := range tests {
		if _, err := i.SearchAlbum(context.Background(), tt.artist, tt.album); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("SearchAlbum(%q, %q) error = %v, want ErrInvalidQuery", tt.artist, tt.album, err)
		}
	}
}

func TestInteractorPassThroughs(t *testing.T) {
	ctx := context.Background()
	i := NewInteractor(newTestRepository(t), &recordingPublisher{})

	if _, err := i.SearchAlbum(ctx, "Portishead", "Dummy"); err != nil {
		t.Fatal(err)
	}
	known := lookup.NewAlbumSearchLookupQuery("Portishead", "Dummy")
	unknown := lookup.NewAlbumSearchLookupQuery("Portishead", "Third")

	many, err := i.FindManyAlbumSearchLookups(ctx, []lookup.AlbumSearchLookupQuery{unknown, known})
	if err != nil {
		t.Fatalf("FindManyAlbumSearchLookups() error = %v", err)
	}
	if len(many) != 2 || many[0] != nil || many[1] == nil {
		t.Errorf("FindManyAlbumSearchLookups() = %v", many)
	}

	if _, err := i.GetAlbumSearchLookup(ctx, unknown); !errors.Is(err, lookup.ErrNotFound) {
		t.Errorf("GetAlbumSearchLookup(unknown) error = %v, want ErrNotFound", err)
	}

	statuses, err := i.AggregateStatuses(ctx)
	if err != nil {
		t.Fatalf("AggregateStatuses() error = %v", err)
	}
	for _, s := range statuses {
		want := 0
		if s.Status == lookup.StatusStarted {
			want = 1
		}
		if s.Count != want {
			t.Errorf("count[%s] = %d, want %d", s.Status, s.Count, want)
		}
	}

	byFile, err := i.FindManyAlbumSearchLookupsByAlbumFileName(ctx, files.MustParseFileName("release/dummy"))
	if err != nil || len(byFile) != 0 {
		t.Errorf("FindManyAlbumSearchLookupsByAlbumFileName() = %v, %v", byFile, err)
	}
}
