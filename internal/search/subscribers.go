// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/lookup"
)

// ParserResultsSubscriberID is the consumer group applying parser output.
const ParserResultsSubscriberID = "lookup_parser_results"

// ProcessParserResult applies a parser event to the lookup it belongs to.
// Events for other page types, or without lookup metadata, are ignored.
func (i *Interactor) ProcessParserResult(ctx context.Context, sc events.SubscriberContext) error {
	var fileName files.FileName
	switch e := sc.Payload.Event.(type) {
	case events.FileParsed:
		fileName = e.FileName
	case events.FileParseFailed:
		fileName = e.FileName
	default:
		return nil
	}
	if fileName.PageType() != files.PageTypeAlbumSearchResult {
		return nil
	}

	artist := sc.Payload.MetadataValue(events.MetadataArtistName)
	album := sc.Payload.MetadataValue(events.MetadataAlbumName)
	q := lookup.NewAlbumSearchLookupQuery(artist, album)
	if q.IsEmpty() {
		logging.Ctx(ctx).Debug().
			Str("file_name", fileName.String()).
			Msg("Parser result without lookup metadata, skipping")
		return nil
	}

	current, err := i.repo.Find(ctx, q)
	if err != nil {
		return fmt.Errorf("find lookup: %w", err)
	}
	if current == nil {
		logging.Ctx(ctx).Warn().
			Str("file_name", fileName.String()).
			Str("query", q.String()).
			Msg("Parser result for unknown lookup, skipping")
		return nil
	}

	var next lookup.AlbumSearchLookup
	switch e := sc.Payload.Event.(type) {
	case events.FileParsed:
		result := e.Data.AlbumSearchResult
		switch {
		case result == nil:
			next = lookup.WithError(current, "parsed search page carried no album search result")
		case result.FileName.IsZero():
			next = lookup.WithNotFound(current)
		default:
			next = lookup.WithParsed(current, *result)
		}
	case events.FileParseFailed:
		next = lookup.WithError(current, e.Error)
	}

	if err := lookup.CheckTransition(current, next); err != nil {
		if errors.Is(err, lookup.ErrInvalidTransition) {
			logging.Ctx(ctx).Warn().Err(err).Msg("Rejected lookup transition")
			return nil
		}
		return err
	}

	// A redelivered result finds its transition already stored. It is
	// published again in case the previous attempt failed after the write.
	if !lookup.SameState(current, next) {
		if err := i.repo.Put(ctx, next); err != nil {
			return fmt.Errorf("store lookup transition: %w", err)
		}
	}
	if err := i.publishUpdate(ctx, next, sc.Payload.Metadata); err != nil {
		return err
	}

	logging.Ctx(ctx).Info().
		Str("query", q.String()).
		Str("from", string(current.Status())).
		Str("to", string(next.Status())).
		Msg("Album search lookup transitioned")
	return nil
}

// BuildLookupEventSubscribers returns the subscribers owned by the search pipeline.
func BuildLookupEventSubscribers(i *Interactor, concurrency int) []events.Subscriber {
	if concurrency < 1 {
		concurrency = 1
	}
	return []events.Subscriber{{
		ID:          ParserResultsSubscriberID,
		Stream:      events.StreamParser,
		Concurrency: concurrency,
		Handle:      i.ProcessParserResult,
	}}
}
