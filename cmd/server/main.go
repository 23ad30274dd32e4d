// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lute/internal/api"
	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/config"
	"github.com/tomtom215/lute/internal/events"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/profile"
	"github.com/tomtom215/lute/internal/search"
	"github.com/tomtom215/lute/internal/supervisor"
	"github.com/tomtom215/lute/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		// The logger still has its defaults here.
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().Str("config", cfg.String()).Msg("Starting lute")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := OpenBackends(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.ShutdownTimeout)
		defer cancel()
		if err := backends.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Failed to close backends")
		}
		logging.Info().Msg("Backends closed")
	}()

	if err := backends.WaitReady(ctx, cfg.Broker.RetryAttempts, cfg.Broker.RetryInitialDelay, cfg.Broker.RetryMaxDelay); err != nil {
		return fmt.Errorf("backends not ready: %w", err)
	}
	logging.Info().Str("store", cfg.Store.Backend).Str("broker", cfg.Broker.Backend).Msg("Backends ready")

	app, err := buildApp(cfg, backends)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	app.Tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", httpServer.Addr).Msg("Supervisor tree starting")
	errCh := app.Tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := app.Tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}

// App is the wired application minus the listening HTTP server.
type App struct {
	Tree      *supervisor.SupervisorTree
	Router    http.Handler
	Publisher *events.Publisher
	Lookups   *search.Interactor
	Profiles  *profile.Interactor
	Runtimes  []*events.Runtime
}

// buildApp wires repositories, interactors, subscribers, and the router on
// top of opened backends. Subscribers and the badger GC are added to the
// returned tree; the caller adds the HTTP server.
func buildApp(cfg *config.Config, b *Backends) (*App, error) {
	var cb *gobreaker.CircuitBreaker[broker.EntryID]
	if cfg.CircuitBreaker.Enabled {
		cb = events.NewCircuitBreaker(events.CircuitBreakerConfig{
			Name:             "event-publisher",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		})
	}
	publisher := events.NewPublisher(b.Broker, cfg.Broker.TopicPrefix, cb)

	lookups := search.NewInteractor(lookup.NewRepository(b.Store), publisher)
	profiles := profile.NewInteractor(profile.NewRepository(b.Store), lookups, publisher)

	subs := search.BuildLookupEventSubscribers(lookups,
		cfg.Subscribers.ConcurrencyFor(search.ParserResultsSubscriberID, 0))
	subs = append(subs, profile.BuildSpotifyImportEventSubscribers(profiles,
		cfg.Subscribers.ConcurrencyFor(profile.SpotifyImportSubscriberID, profile.DefaultSpotifyImportConcurrency))...)

	runtimes, err := events.NewRuntimes(b.Broker, subs, events.RuntimeConfig{
		TopicPrefix:       cfg.Broker.TopicPrefix,
		ConsumerName:      cfg.Broker.ConsumerName,
		Block:             cfg.Broker.Block,
		ClaimMinIdle:      cfg.Broker.ClaimMinIdle,
		ClaimInterval:     cfg.Broker.ClaimInterval,
		RetryAttempts:     cfg.Broker.RetryAttempts,
		RetryInitialDelay: cfg.Broker.RetryInitialDelay,
		RetryMaxDelay:     cfg.Broker.RetryMaxDelay,
		MaxDeliveries:     cfg.Broker.MaxDeliveries,
		AckTimeout:        cfg.Broker.AckTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build subscribers: %w", err)
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}
	if b.DB != nil {
		tree.AddStorageService(services.NewGCService(b.DB, b.DB.GCInterval()))
	}
	tree.AddSubscribers(runtimes...)

	handler := api.NewHandler(lookups, profiles,
		api.Dependency{Name: "store", Pinger: b.Store},
		api.Dependency{Name: "broker", Pinger: b.Broker},
	)
	handler.SetContentStore(files.NewFileContentStore(b.Store))
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Server)))

	return &App{
		Tree:      tree,
		Router:    router,
		Publisher: publisher,
		Lookups:   lookups,
		Profiles:  profiles,
		Runtimes:  runtimes,
	}, nil
}
