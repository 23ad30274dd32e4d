// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package search

import (
	"context"
	"sync"
	"testing"

	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/kv"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/wal"
)

type published struct {
	stream  events.Stream
	payload events.EventPayload
}

// recordingPublisher captures published payloads and optionally fails.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, stream events.Stream, payload events.EventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{stream: stream, payload: payload})
	return nil
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.sent...)
}

// failingPutRepository fails every Put.
type failingPutRepository struct {
	*lookup.Repository
	err error
}

func (r failingPutRepository) Put(context.Context, lookup.AlbumSearchLookup) error {
	return r.err
}

func newTestRepository(t *testing.T) *lookup.Repository {
	t.Helper()
	db, err := wal.Open(wal.TestConfig())
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return lookup.NewRepository(kv.NewBadgerStore(db.Badger()))
}
