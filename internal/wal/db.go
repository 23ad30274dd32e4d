// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package wal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/metrics"
)

// ErrClosed is returned when operating on a closed database.
var ErrClosed = errors.New("badger database is closed")

// DB wraps a BadgerDB handle with garbage collection and close bookkeeping.
type DB struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

// Open opens the database described by cfg.
func Open(cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites && !cfg.InMemory
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("BadgerDB opened")

	return &DB{db: db, config: cfg}, nil
}

// Badger returns the underlying handle shared by the broker and the store.
func (d *DB) Badger() *badger.DB {
	return d.db
}

// RunGC runs value-log garbage collection until nothing is left to rewrite.
// In-memory databases have no value log and return immediately.
func (d *DB) RunGC() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	if d.config.InMemory {
		return nil
	}

	start := time.Now()
	rewrites := 0
	for {
		err := d.db.RunValueLogGC(d.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
		rewrites++
	}
	metrics.RecordBadgerGC(time.Since(start), rewrites)
	return nil
}

// GCInterval reports how often RunGC should be scheduled. Zero disables it.
func (d *DB) GCInterval() time.Duration {
	if d.config.InMemory {
		return 0
	}
	return d.config.GCInterval
}

// Close closes the database. Calling Close more than once is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("BadgerDB closed")
	return nil
}
