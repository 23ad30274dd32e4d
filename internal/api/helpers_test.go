// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/kv"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/profile"
	"github.com/tomtom215/lute/internal/search"
	"github.com/tomtom215/lute/internal/wal"
)

type fixture struct {
	router  http.Handler
	broker  *broker.BadgerBroker
	lookups *lookup.Repository
	handler *Handler
}

func newFixture(t *testing.T, deps ...Dependency) *fixture {
	t.Helper()
	db, err := wal.Open(wal.TestConfig())
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := kv.NewBadgerStore(db.Badger())
	b := broker.NewBadgerBroker(db.Badger())
	pub := events.NewPublisher(b, "api-test:", nil)

	lookups := lookup.NewRepository(store)
	searcher := search.NewInteractor(lookups, pub)
	profiles := profile.NewInteractor(profile.NewRepository(store), searcher, pub)

	if len(deps) == 0 {
		deps = []Dependency{{Name: "store", Pinger: store}, {Name: "broker", Pinger: b}}
	}
	h := NewHandler(searcher, profiles, deps...)
	h.SetContentStore(files.NewFileContentStore(store))

	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.RateLimitDisabled = true
	return &fixture{
		router:  NewRouter(h, NewChiMiddleware(mwCfg)),
		broker:  b,
		lookups: lookups,
		handler: h,
	}
}

// do sends body (marshalled unless it is a string) and decodes the envelope.
func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

// envelope mirrors APIResponse with Data left raw for per-test decoding.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *APIError       `json:"error"`
}

func (e envelope) decode(t *testing.T, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(e.Data, dst); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, e.Data)
	}
}

// resolve stores q as AlbumParsed pointing at name.
func (f *fixture) resolve(t *testing.T, artist, album, name string) {
	t.Helper()
	q := lookup.NewAlbumSearchLookupQuery(artist, album)
	parsed := lookup.WithParsed(lookup.NewAlbumSearchLookup(q), lookup.AlbumSearchResult{
		AlbumName: album, ArtistName: artist, FileName: files.MustParseFileName(name),
	})
	if err := f.lookups.Put(context.Background(), parsed); err != nil {
		t.Fatal(err)
	}
}

// published counts entries appended to the lookup stream.
func (f *fixture) published(t *testing.T) int {
	t.Helper()
	ctx := context.Background()
	topic := events.StreamLookup.Topic("api-test:")
	if err := f.broker.EnsureGroup(ctx, topic, "probe"); err != nil {
		t.Fatal(err)
	}
	entries, err := f.broker.ReadGroup(ctx, topic, "probe", "probe-1", 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }
