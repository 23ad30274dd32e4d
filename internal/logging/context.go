// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// correlationIDKey carries the correlation identifier of the logical search being processed.
	correlationIDKey contextKey = "correlation_id"

	// requestIDKey carries the HTTP request ID.
	requestIDKey contextKey = "request_id"

	// subscriberKey carries the subscriber (consumer group) handling the current entry.
	subscriberKey contextKey = "subscriber"

	// loggerKey stores a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
// An empty id leaves the context unchanged.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithSubscriber returns a new context tagged with the subscriber id.
func ContextWithSubscriber(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subscriberKey, id)
}

// SubscriberFromContext retrieves the subscriber id from context.
func SubscriberFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(subscriberKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return *current()
}

// Ctx returns a logger with the context values (correlation_id, request_id,
// subscriber) attached.
//
//	logging.Ctx(ctx).Info().Msg("Lookup transitioned")
//	// {"level":"info","correlation_id":"lookup:album_search:9f..","subscriber":"profile_spotify_import",...}
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := LoggerFromContext(ctx).With()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}
	if subscriber := SubscriberFromContext(ctx); subscriber != "" {
		logCtx = logCtx.Str("subscriber", subscriber)
	}

	logger := logCtx.Logger()
	return &logger
}
