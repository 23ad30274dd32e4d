// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package profile

import (
	"context"
	"sync"
	"testing"

	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/kv"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/search"
	"github.com/tomtom215/lute/internal/wal"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []events.EventPayload
}

func (p *recordingPublisher) Publish(_ context.Context, _ events.Stream, payload events.EventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, payload)
	return nil
}

func (p *recordingPublisher) ofType(t events.EventType) []events.EventPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.EventPayload
	for _, e := range p.sent {
		if e.Event.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store    kv.Store
	lookups  *lookup.Repository
	search   *search.Interactor
	profiles *Interactor
	pub      *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := wal.Open(wal.TestConfig())
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := kv.NewBadgerStore(db.Badger())
	pub := &recordingPublisher{}
	lookups := lookup.NewRepository(store)
	searcher := search.NewInteractor(lookups, pub)
	return &fixture{
		store:    store,
		lookups:  lookups,
		search:   searcher,
		profiles: NewInteractor(NewRepository(store), searcher, pub),
		pub:      pub,
	}
}

func (f *fixture) mustCreate(t *testing.T, id string) {
	t.Helper()
	if _, err := f.profiles.CreateProfile(context.Background(), id, "Test "+id); err != nil {
		t.Fatalf("CreateProfile(%s) error = %v", id, err)
	}
}

// resolve stores q as AlbumParsed pointing at name.
func (f *fixture) resolve(t *testing.T, q lookup.AlbumSearchLookupQuery, name string) lookup.AlbumParsed {
	t.Helper()
	parsed := lookup.WithParsed(lookup.NewAlbumSearchLookup(q), lookup.AlbumSearchResult{
		AlbumName: q.AlbumName, ArtistName: q.ArtistName, FileName: mustFile(name),
	})
	if err := f.lookups.Put(context.Background(), parsed); err != nil {
		t.Fatal(err)
	}
	return parsed
}
