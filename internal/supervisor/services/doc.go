// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package services adapts Lute components with Start/Shutdown style
// lifecycles to suture's Serve(ctx) error contract.
//
//   - HTTPServerService runs an *http.Server and shuts it down gracefully.
//   - GCService schedules badger value-log GC.
//
// Subscriber runtimes in internal/events already implement suture.Service
// and are added to the tree directly.
package services
