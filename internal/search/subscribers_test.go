// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package search

import (
	"context"
	"testing"

	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
)

var searchPage = files.MustParseFileName("search?q=ok+computer")

func parserContext(event events.Event, artist, album string) events.SubscriberContext {
	md := map[string]string{}
	if artist != "" {
		md[events.MetadataArtistName] = artist
	}
	if album != "" {
		md[events.MetadataAlbumName] = album
	}
	return events.SubscriberContext{
		Payload:       events.EventPayload{Event: event, Metadata: md},
		EntryID:       "1",
		DeliveryCount: 1,
		SubscriberID:  ParserResultsSubscriberID,
		Stream:        events.StreamParser,
	}
}

func TestProcessParserResultTransitions(t *testing.T) {
	release := files.MustParseFileName("release/ok-computer")

	tests := []struct {
		name       string
		event      events.Event
		wantStatus lookup.Status
	}{
		{
			name: "match",
			event: events.FileParsed{FileName: searchPage, Data: events.ParsedFileData{
				AlbumSearchResult: &lookup.AlbumSearchResult{AlbumName: "OK Computer", ArtistName: "Radiohead", FileName: release},
			}},
			wantStatus: lookup.StatusAlbumParsed,
		},
		{
			name: "no match",
			event: events.FileParsed{FileName: searchPage, Data: events.ParsedFileData{
				AlbumSearchResult: &lookup.AlbumSearchResult{},
			}},
			wantStatus: lookup.StatusAlbumNotFound,
		},
		{
			name:       "parse failure",
			event:      events.FileParseFailed{FileName: searchPage, Error: "layout changed"},
			wantStatus: lookup.StatusErrored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			pub := &recordingPublisher{}
			i := NewInteractor(newTestRepository(t), pub)
			if _, err := i.SearchAlbum(ctx, "Radiohead", "OK Computer"); err != nil {
				t.Fatal(err)
			}

			if err := i.ProcessParserResult(ctx, parserContext(tt.event, "Radiohead", "OK Computer")); err != nil {
				t.Fatalf("ProcessParserResult() error = %v", err)
			}

			got, err := i.GetAlbumSearchLookup(ctx, lookup.NewAlbumSearchLookupQuery("Radiohead", "OK Computer"))
			if err != nil {
				t.Fatal(err)
			}
			if got.Status() != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status(), tt.wantStatus)
			}

			sent := pub.all()
			if len(sent) != 2 {
				t.Fatalf("published %d events, want 2", len(sent))
			}
			last := sent[1].payload.Event.(events.LookupAlbumSearchUpdated)
			if last.Lookup.Status() != tt.wantStatus {
				t.Errorf("published status = %s, want %s", last.Lookup.Status(), tt.wantStatus)
			}
		})
	}
}

func TestProcessParserResultRedeliveryKeepsState(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	pub := &recordingPublisher{}
	i := NewInteractor(repo, pub)
	if _, err := i.SearchAlbum(ctx, "Radiohead", "OK Computer"); err != nil {
		t.Fatal(err)
	}

	release := files.MustParseFileName("release/ok-computer")
	sc := parserContext(events.FileParsed{FileName: searchPage, Data: events.ParsedFileData{
		AlbumSearchResult: &lookup.AlbumSearchResult{AlbumName: "OK Computer", ArtistName: "Radiohead", FileName: release},
	}}, "Radiohead", "OK Computer")

	for n := 1; n <= 2; n++ {
		sc.DeliveryCount = n
		if err := i.ProcessParserResult(ctx, sc); err != nil {
			t.Fatalf("delivery %d error = %v", n, err)
		}
	}

	byFile, err := i.FindManyAlbumSearchLookupsByAlbumFileName(ctx, release)
	if err != nil {
		t.Fatal(err)
	}
	if len(byFile) != 1 {
		t.Errorf("lookups for %s = %d, want 1", release, len(byFile))
	}
	statuses, err := i.AggregateStatuses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range statuses {
		if s.Status == lookup.StatusAlbumParsed && s.Count != 1 {
			t.Errorf("album_parsed count = %d, want 1", s.Count)
		}
	}
}

func TestProcessParserResultIgnoresUnrelatedEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	i := NewInteractor(newTestRepository(t), pub)

	tests := []struct {
		name string
		sc   events.SubscriberContext
	}{
		{"other page type", parserContext(events.FileParsed{FileName: files.MustParseFileName("release/x")}, "A", "B")},
		{"missing metadata", parserContext(events.FileParseFailed{FileName: searchPage, Error: "e"}, "", "")},
		{"unknown lookup", parserContext(events.FileParseFailed{FileName: searchPage, Error: "e"}, "Nobody", "Nothing")},
		{"other event kind", parserContext(events.ProfileAlbumAdded{ProfileID: "p", FileName: searchPage, Factor: 1}, "A", "B")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := i.ProcessParserResult(ctx, tt.sc); err != nil {
				t.Errorf("ProcessParserResult() error = %v", err)
			}
		})
	}
	if len(pub.all()) != 0 {
		t.Errorf("published %d events", len(pub.all()))
	}
}

func TestProcessParserResultPropagatesPublishFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	ok := &recordingPublisher{}
	if _, err := NewInteractor(repo, ok).SearchAlbum(ctx, "Radiohead", "OK Computer"); err != nil {
		t.Fatal(err)
	}

	failing := &recordingPublisher{err: context.DeadlineExceeded}
	i := NewInteractor(repo, failing)
	sc := parserContext(events.FileParseFailed{FileName: searchPage, Error: "e"}, "Radiohead", "OK Computer")
	if err := i.ProcessParserResult(ctx, sc); err == nil {
		t.Fatal("ProcessParserResult() succeeded with failing publisher")
	}

	// The retry republishes even though the state is already stored.
	i = NewInteractor(repo, ok)
	if err := i.ProcessParserResult(ctx, sc); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	sent := ok.all()
	if len(sent) != 2 {
		t.Fatalf("published %d events, want 2", len(sent))
	}
	if sent[1].payload.Event.(events.LookupAlbumSearchUpdated).Lookup.Status() != lookup.StatusErrored {
		t.Errorf("republished lookup = %+v", sent[1].payload.Event)
	}
}

func TestBuildLookupEventSubscribers(t *testing.T) {
	subs := BuildLookupEventSubscribers(NewInteractor(nil, nil), 0)
	if len(subs) != 1 {
		t.Fatalf("subscribers = %d", len(subs))
	}
	s := subs[0]
	if s.ID != ParserResultsSubscriberID || s.Stream != events.StreamParser || s.Concurrency != 1 {
		t.Errorf("subscriber = %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
