// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/kv"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/metrics"
)

// ErrNotFound is returned by Get when no lookup exists for a query.
var ErrNotFound = fmt.Errorf("album search lookup: %w", kv.ErrNotFound)

const (
	recordKeyPrefix    = "lookup:album_search:record:"
	fileIndexKeyPrefix = "lookup:album_search:file_index:"
)

func recordKey(q AlbumSearchLookupQuery) string {
	return recordKeyPrefix + q.Key()
}

func fileIndexKey(name files.FileName) string {
	return fileIndexKeyPrefix + name.String()
}

// AggregatedStatus is the number of stored lookups in one status.
type AggregatedStatus struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// Repository persists album search lookups in a keyed store.
type Repository struct {
	store kv.Store
}

// NewRepository creates a repository backed by store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Put upserts l. When l is AlbumParsed its query key is added to the file
// index; if the previous record pointed at a different file, its old index
// entry is removed in the same atomic write.
func (r *Repository) Put(ctx context.Context, l AlbumSearchLookup) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}

	key := l.Query().Key()
	ops := []kv.Op{kv.Set(recordKey(l.Query()), data)}

	var newFile files.FileName
	if parsed, ok := l.(AlbumParsed); ok && !parsed.Result.FileName.IsZero() {
		newFile = parsed.Result.FileName
		ops = append(ops, kv.SetAdd(fileIndexKey(newFile), key))
	}

	previous, err := r.Find(ctx, l.Query())
	if err != nil && !errors.Is(err, ErrInvalidRecord) {
		return err
	}
	if prev, ok := previous.(AlbumParsed); ok && !prev.Result.FileName.IsZero() && prev.Result.FileName != newFile {
		ops = append(ops, kv.SetRemove(fileIndexKey(prev.Result.FileName), key))
	}

	if err := r.store.Apply(ctx, ops...); err != nil {
		return fmt.Errorf("put album search lookup %s: %w", l.Query(), err)
	}
	metrics.RecordLookupTransition(string(l.Status()))
	return nil
}

// Find returns the lookup for q, or nil when none is stored.
func (r *Repository) Find(ctx context.Context, q AlbumSearchLookupQuery) (AlbumSearchLookup, error) {
	data, err := r.store.Get(ctx, recordKey(q))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find album search lookup %s: %w", q, err)
	}
	return Unmarshal(data)
}

// Get is Find that returns ErrNotFound when no lookup is stored.
func (r *Repository) Get(ctx context.Context, q AlbumSearchLookupQuery) (AlbumSearchLookup, error) {
	l, err := r.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%s: %w", q, ErrNotFound)
	}
	return l, nil
}

// FindMany returns one slot per query in input order, nil for misses.
// Records that fail to decode are logged and reported as misses.
func (r *Repository) FindMany(ctx context.Context, queries []AlbumSearchLookupQuery) ([]AlbumSearchLookup, error) {
	keys := make([]string, len(queries))
	for i, q := range queries {
		keys[i] = recordKey(q)
	}

	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("find many album search lookups: %w", err)
	}

	out := make([]AlbumSearchLookup, len(queries))
	for i, v := range values {
		if v == nil {
			continue
		}
		l, err := Unmarshal(v)
		if err != nil {
			logging.Warn().Err(err).Str("query", queries[i].String()).Msg("Skipping unreadable album search lookup")
			continue
		}
		out[i] = l
	}
	return out, nil
}

// FindManyByAlbumFileName returns every lookup currently resolved to name.
func (r *Repository) FindManyByAlbumFileName(ctx context.Context, name files.FileName) ([]AlbumSearchLookup, error) {
	members, err := r.store.Members(ctx, fileIndexKey(name))
	if err != nil {
		return nil, fmt.Errorf("find album search lookups by file %s: %w", name, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = recordKeyPrefix + m
	}
	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("find album search lookups by file %s: %w", name, err)
	}

	var out []AlbumSearchLookup
	for i, v := range values {
		if v == nil {
			continue
		}
		l, err := Unmarshal(v)
		if err != nil {
			logging.Warn().Err(err).Str("key", keys[i]).Msg("Skipping unreadable album search lookup")
			continue
		}
		if parsed, ok := l.(AlbumParsed); ok && parsed.Result.FileName == name {
			out = append(out, l)
		}
	}
	return out, nil
}

// AggregateStatuses counts stored lookups by status. Every status appears in
// the result, in lifecycle order, even when its count is zero.
func (r *Repository) AggregateStatuses(ctx context.Context) ([]AggregatedStatus, error) {
	counts := make(map[Status]int, len(Statuses))
	err := r.store.Scan(ctx, recordKeyPrefix, func(key string, value []byte) error {
		l, err := Unmarshal(value)
		if err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("Skipping unreadable album search lookup")
			return nil
		}
		counts[l.Status()]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate album search lookup statuses: %w", err)
	}

	out := make([]AggregatedStatus, 0, len(Statuses))
	gauge := make(map[string]int, len(Statuses))
	for _, s := range Statuses {
		out = append(out, AggregatedStatus{Status: s, Count: counts[s]})
		gauge[string(s)] = counts[s]
	}
	metrics.UpdateLookupStatusCounts(gauge)
	return out, nil
}
