// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/wal"
)

// GarbageCollector is satisfied by *wal.DB.
type GarbageCollector interface {
	RunGC() error
}

// GCService runs value-log garbage collection on a fixed interval.
//
//	db, _ := wal.Open(wal.DefaultConfig(cfg.Badger.Path))
//	tree.AddStorageService(services.NewGCService(db, db.GCInterval()))
type GCService struct {
	gc       GarbageCollector
	interval time.Duration
	name     string
}

// NewGCService creates a GC service. A non-positive interval disables
// collection; the service then idles until cancelled.
func NewGCService(gc GarbageCollector, interval time.Duration) *GCService {
	return &GCService{
		gc:       gc,
		interval: interval,
		name:     "badger-gc",
	}
}

// Serve implements suture.Service.
//
// A failed run is logged and retried on the next tick. Once the database
// is closed the service exits and is not restarted.
func (s *GCService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.gc.RunGC(); err != nil {
				if errors.Is(err, wal.ErrClosed) {
					return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
				}
				logging.Warn().Err(err).Str("service", s.name).Msg("BadgerDB value log GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *GCService) String() string {
	return s.name
}
