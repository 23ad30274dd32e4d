// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package logging provides centralized zerolog-based structured logging for Lute.
//
// The package keeps one global zerolog logger that every component writes
// through. Components derive child loggers with a "component" field, and
// event handlers log through Ctx(ctx) so the correlation identifier of the
// envelope being processed is attached to every line.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("stream", "lookup").Msg("Subscriber started")
//	logging.Error().Err(err).Msg("Publish failed")
//
//	ctx = logging.ContextWithCorrelationID(ctx, payload.CorrelationIDOrEmpty())
//	logging.Ctx(ctx).Info().Msg("Handling lookup update")
//
// # Configuration
//
// Environment variables (through internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file and line (default: false)
//
// # Supervisor Integration
//
// NewSlogLogger returns a *slog.Logger backed by zerolog for sutureslog,
// which only accepts slog.
package logging
