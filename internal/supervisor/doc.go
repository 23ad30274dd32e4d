// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

/*
Package supervisor runs the long-lived parts of Lute under a suture v4 tree.

Services are grouped into three layers so that a failing layer restarts on
its own without taking the others down:

	RootSupervisor ("lute")
	├── StorageSupervisor ("storage-layer")
	│   └── GCService (badger value-log GC, badger backends only)
	├── SubscriberSupervisor ("subscriber-layer")
	│   ├── subscriber:lookup_parser_results
	│   └── subscriber:profile_spotify_import
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each subscriber runtime is its own service, so a subscriber whose group
cannot be created is restarted with backoff while the others keep
consuming.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddStorageService(services.NewGCService(db, db.GCInterval()))
	tree.AddSubscribers(runtimes...)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Services return ctx.Err() when cancelled, which suture treats as a clean
stop. Any other error counts toward the layer's FailureThreshold.

Lifecycle events (start, stop, panic, backoff) are logged through
sutureslog into the zerolog logger via internal/logging's slog adapter.
*/
package supervisor
