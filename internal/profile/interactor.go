// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package profile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/lookup"
)

// Searcher resolves album searches. *search.Interactor implements it.
type Searcher interface {
	SearchAlbum(ctx context.Context, artistName, albumName string) (lookup.AlbumSearchLookup, error)
	FindAlbumSearchLookup(ctx context.Context, q lookup.AlbumSearchLookupQuery) (lookup.AlbumSearchLookup, error)
}

// DefaultImportParallelism bounds concurrent searches during one import.
const DefaultImportParallelism = 8

type Interactor struct {
	repo        *Repository
	searcher    Searcher
	publisher   events.EventPublisher
	parallelism int
}

func NewInteractor(repo *Repository, searcher Searcher, publisher events.EventPublisher) *Interactor {
	return &Interactor{
		repo:        repo,
		searcher:    searcher,
		publisher:   publisher,
		parallelism: DefaultImportParallelism,
	}
}

// CreateProfile stores a new empty profile.
func (i *Interactor) CreateProfile(ctx context.Context, id, title string) (Profile, error) {
	if err := ValidateProfileID(id); err != nil {
		return Profile{}, err
	}
	exists, err := i.repo.Exists(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if exists {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileExists, id)
	}

	p := Profile{ID: id, Title: title, Albums: map[files.FileName]uint32{}}
	if err := i.repo.Insert(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("store profile: %w", err)
	}
	logging.Ctx(ctx).Info().Str("profile_id", id).Msg("Profile created")
	return p, nil
}

func (i *Interactor) GetProfile(ctx context.Context, id string) (Profile, error) {
	if err := ValidateProfileID(id); err != nil {
		return Profile{}, err
	}
	return i.repo.Get(ctx, id)
}

// AddAlbumToProfile sets the album's factor. Setting the factor it already
// has changes nothing and publishes nothing.
func (i *Interactor) AddAlbumToProfile(ctx context.Context, profileID string, name files.FileName, factor uint32) error {
	p, err := i.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if current, ok := p.Albums[name]; ok && current == factor {
		return nil
	}

	if err := i.repo.PutAlbum(ctx, profileID, name, factor); err != nil {
		return fmt.Errorf("store profile album: %w", err)
	}
	err = i.publisher.Publish(ctx, events.StreamProfile, events.EventPayload{
		Event: events.ProfileAlbumAdded{ProfileID: profileID, FileName: name, Factor: factor},
	})
	if err != nil {
		return fmt.Errorf("publish profile album: %w", err)
	}
	return nil
}

func (i *Interactor) PutSpotifyImportSubscription(ctx context.Context, s SpotifyImportSubscription) error {
	if err := ValidateProfileID(s.ProfileID); err != nil {
		return err
	}
	return i.repo.PutSubscription(ctx, s)
}

func (i *Interactor) FindSpotifyImportSubscriptionsByQuery(ctx context.Context, q lookup.AlbumSearchLookupQuery) ([]SpotifyImportSubscription, error) {
	return i.repo.FindSubscriptionsByQuery(ctx, q)
}

func (i *Interactor) RemoveSpotifyImportSubscription(ctx context.Context, profileID string, q lookup.AlbumSearchLookupQuery) error {
	return i.repo.RemoveSubscription(ctx, profileID, q)
}

// ImportAlbums searches every item and attaches what is already resolved.
// Unresolved items are parked as subscriptions; items whose search ended
// without a match are skipped. Results keep the order of items.
func (i *Interactor) ImportAlbums(ctx context.Context, profileID string, items []ImportItem) ([]ImportResult, error) {
	if _, err := i.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	results := make([]ImportResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.parallelism)
	for idx, item := range items {
		g.Go(func() error {
			res, err := i.importOne(gctx, profileID, item)
			if err != nil {
				return fmt.Errorf("import %s - %s: %w", item.ArtistName, item.AlbumName, err)
			}
			results[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (i *Interactor) importOne(ctx context.Context, profileID string, item ImportItem) (ImportResult, error) {
	factor := item.Factor
	if factor == 0 {
		factor = 1
	}
	res := ImportResult{Item: item}

	l, err := i.searcher.SearchAlbum(ctx, item.ArtistName, item.AlbumName)
	if err != nil {
		return res, err
	}

	switch v := l.(type) {
	case lookup.AlbumParsed:
		res.Status, res.Outcome = v.Status(), OutcomeAdded
		return res, i.AddAlbumToProfile(ctx, profileID, v.Result.FileName, factor)
	case lookup.Started:
	default:
		res.Status, res.Outcome = l.Status(), OutcomeSkipped
		return res, nil
	}

	sub := SpotifyImportSubscription{ProfileID: profileID, Query: l.Query(), Factor: factor}
	if err := i.PutSpotifyImportSubscription(ctx, sub); err != nil {
		return res, err
	}

	// The lookup may have resolved while the subscription was being written,
	// in which case its update event was already consumed.
	latest, err := i.searcher.FindAlbumSearchLookup(ctx, l.Query())
	if err != nil {
		return res, err
	}
	if parsed, ok := latest.(lookup.AlbumParsed); ok {
		if err := i.fulfill(ctx, sub, parsed); err != nil {
			return res, err
		}
		res.Status, res.Outcome = parsed.Status(), OutcomeAdded
		return res, nil
	}

	res.Status, res.Outcome = lookup.StatusStarted, OutcomeSubscribed
	return res, nil
}

func (i *Interactor) fulfill(ctx context.Context, sub SpotifyImportSubscription, parsed lookup.AlbumParsed) error {
	if err := i.AddAlbumToProfile(ctx, sub.ProfileID, parsed.Result.FileName, sub.Factor); err != nil {
		return err
	}
	return i.RemoveSpotifyImportSubscription(ctx, sub.ProfileID, sub.Query)
}
