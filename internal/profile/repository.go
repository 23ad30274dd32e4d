// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/kv"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/lookup"
)

const (
	profileRecordPrefix     = "profile:record:"
	profileAlbumsPrefix     = "profile:albums:"
	profileFactorPrefix     = "profile:album_factor:"
	subscriptionPrefix      = "profile:spotify_import:subscription:"
	subscriptionIndexPrefix = "profile:spotify_import:by_query:"
	keySep                  = "\x1f"
)

func profileKey(id string) string { return profileRecordPrefix + id }

func albumsKey(id string) string { return profileAlbumsPrefix + id }

func factorKey(id string, f files.FileName) string {
	return profileFactorPrefix + id + keySep + f.String()
}

func subscriptionKey(q lookup.AlbumSearchLookupQuery, profileID string) string {
	return subscriptionPrefix + q.Key() + keySep + profileID
}

func subscriptionIndexKey(q lookup.AlbumSearchLookupQuery) string {
	return subscriptionIndexPrefix + q.Key()
}

type profileRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Repository stores profiles and import subscriptions. Albums are kept as
// a member set plus one factor key per album so adding an album is a single
// atomic write.
type Repository struct {
	store kv.Store
}

func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Insert stores a new profile record.
func (r *Repository) Insert(ctx context.Context, p Profile) error {
	data, err := json.Marshal(profileRecord{ID: p.ID, Title: p.Title})
	if err != nil {
		return err
	}
	ops := []kv.Op{kv.Set(profileKey(p.ID), data)}
	for name, factor := range p.Albums {
		ops = append(ops, albumOps(p.ID, name, factor)...)
	}
	return r.store.Apply(ctx, ops...)
}

// Exists reports whether the profile record is present.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, profileKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Get loads a profile with its albums.
func (r *Repository) Get(ctx context.Context, id string) (Profile, error) {
	data, err := r.store.Get(ctx, profileKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err != nil {
		return Profile{}, err
	}
	var rec profileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", id, err)
	}

	members, err := r.store.Members(ctx, albumsKey(id))
	if err != nil {
		return Profile{}, err
	}
	names := make([]files.FileName, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		name, err := files.ParseFileName(m)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("profile_id", id).Str("file_name", m).Msg("Invalid album in profile")
			continue
		}
		names = append(names, name)
		keys = append(keys, factorKey(id, name))
	}

	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{ID: rec.ID, Title: rec.Title, Albums: make(map[files.FileName]uint32, len(names))}
	for i, name := range names {
		var factor uint64 = 1
		if values[i] != nil {
			if parsed, err := strconv.ParseUint(string(values[i]), 10, 32); err == nil {
				factor = parsed
			}
		}
		p.Albums[name] = uint32(factor)
	}
	return p, nil
}

func albumOps(id string, name files.FileName, factor uint32) []kv.Op {
	return []kv.Op{
		kv.SetAdd(albumsKey(id), name.String()),
		kv.Set(factorKey(id, name), []byte(strconv.FormatUint(uint64(factor), 10))),
	}
}

// PutAlbum sets the factor of one album, adding it if absent.
func (r *Repository) PutAlbum(ctx context.Context, id string, name files.FileName, factor uint32) error {
	return r.store.Apply(ctx, albumOps(id, name, factor)...)
}

// PutSubscription stores s and indexes it under its query.
func (r *Repository) PutSubscription(ctx context.Context, s SpotifyImportSubscription) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.store.Apply(ctx,
		kv.Set(subscriptionKey(s.Query, s.ProfileID), data),
		kv.SetAdd(subscriptionIndexKey(s.Query), s.ProfileID),
	)
}

// FindSubscriptionsByQuery returns every subscription waiting on q, ordered
// by profile id.
func (r *Repository) FindSubscriptionsByQuery(ctx context.Context, q lookup.AlbumSearchLookupQuery) ([]SpotifyImportSubscription, error) {
	profileIDs, err := r.store.Members(ctx, subscriptionIndexKey(q))
	if err != nil {
		return nil, err
	}
	if len(profileIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(profileIDs))
	for i, id := range profileIDs {
		keys[i] = subscriptionKey(q, id)
	}
	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]SpotifyImportSubscription, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue
		}
		var s SpotifyImportSubscription
		if err := json.Unmarshal(data, &s); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", keys[i]).Msg("Skipping unreadable subscription")
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// RemoveSubscription deletes a subscription and its index entry. Removing
// an absent subscription succeeds.
func (r *Repository) RemoveSubscription(ctx context.Context, profileID string, q lookup.AlbumSearchLookupQuery) error {
	return r.store.Apply(ctx,
		kv.Delete(subscriptionKey(q, profileID)),
		kv.SetRemove(subscriptionIndexKey(q), profileID),
	)
}
