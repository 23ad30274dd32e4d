// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package profile

import (
	"context"
	"errors"

	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/lookup"
)

const (
	SpotifyImportSubscriberID = "profile_spotify_import"

	DefaultSpotifyImportConcurrency = 250
)

// ProcessLookupSubscriptions fulfills the import subscriptions waiting on a
// lookup that reached AlbumParsed. Other events are ignored.
func (i *Interactor) ProcessLookupSubscriptions(ctx context.Context, sc events.SubscriberContext) error {
	updated, ok := sc.Payload.Event.(events.LookupAlbumSearchUpdated)
	if !ok {
		return nil
	}
	parsed, ok := updated.Lookup.(lookup.AlbumParsed)
	if !ok {
		return nil
	}

	subs, err := i.FindSpotifyImportSubscriptionsByQuery(ctx, parsed.Q)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		err := i.fulfill(ctx, sub, parsed)
		if errors.Is(err, ErrProfileNotFound) {
			logging.Ctx(ctx).Warn().Str("profile_id", sub.ProfileID).Msg("Dropping subscription of missing profile")
			err = i.RemoveSpotifyImportSubscription(ctx, sub.ProfileID, sub.Query)
		}
		if err != nil {
			return err
		}
	}

	if len(subs) > 0 {
		logging.Ctx(ctx).Info().
			Str("query", parsed.Q.String()).
			Int("subscriptions", len(subs)).
			Msg("Import subscriptions fulfilled")
	}
	return nil
}

// BuildSpotifyImportEventSubscribers returns the subscribers owned by the
// import flow. A concurrency below 1 selects the default.
func BuildSpotifyImportEventSubscribers(i *Interactor, concurrency int) []events.Subscriber {
	if concurrency < 1 {
		concurrency = DefaultSpotifyImportConcurrency
	}
	return []events.Subscriber{{
		ID:          SpotifyImportSubscriberID,
		Stream:      events.StreamLookup,
		Concurrency: concurrency,
		Handle:      i.ProcessLookupSubscriptions,
	}}
}
