// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

// Package wal owns the embedded BadgerDB database used when Lute runs without
// Redis. The same database backs two components:
//
//   - broker.BadgerBroker: the append-only stream log with consumer-group
//     cursors and pending-entry leases
//   - kv.BadgerStore: the keyed store holding lookup and profile records
//
// # Lifecycle
//
// Open creates (or reopens) the database. DB.RunGC performs one value-log
// garbage collection pass; services.GCService calls it on GCInterval from
// the storage layer of the supervisor tree.
//
//	db, err := wal.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	store := kv.NewBadgerStore(db.Badger())
//	broker := broker.NewBadgerBroker(db.Badger())
//
// # In-memory mode
//
// Config.InMemory opens the database without touching disk. Tests use it for
// the broker and store suites; production deployments should not, since all
// stream entries are lost on restart.
package wal
