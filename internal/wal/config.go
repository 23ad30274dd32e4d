// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package wal

import (
	"errors"
	"fmt"
	"time"
)

// Config holds BadgerDB settings. It is populated from the badger section of
// the application configuration.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory. Intended for tests.
	InMemory bool

	// SyncWrites forces fsync after every write.
	SyncWrites bool

	// MemTableSize is the size of each memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of LSM compaction workers (BadgerDB minimum is 2).
	NumCompactors int

	// GCInterval is the time between value-log GC runs. Zero disables the loop.
	GCInterval time.Duration

	// GCRatio is the discard ratio passed to RunValueLogGC.
	GCRatio float64
}

// DefaultConfig returns production defaults rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		SyncWrites:       true,
		MemTableSize:     64 << 20,
		ValueLogFileSize: 256 << 20,
		NumCompactors:    2,
		GCInterval:       10 * time.Minute,
		GCRatio:          0.5,
	}
}

// TestConfig returns an in-memory configuration with BadgerDB minimums.
func TestConfig() Config {
	return Config{
		InMemory:         true,
		MemTableSize:     16 << 20,
		ValueLogFileSize: 16 << 20,
		NumCompactors:    2,
		GCRatio:          0.5,
	}
}

// Validate checks the configuration for values BadgerDB would reject.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errors.New("badger path is required unless in_memory is set")
	}
	if c.NumCompactors < 2 {
		return fmt.Errorf("num_compactors must be at least 2, got %d", c.NumCompactors)
	}
	if c.MemTableSize < 1<<20 {
		return fmt.Errorf("mem_table_size must be at least 1MB, got %d", c.MemTableSize)
	}
	if c.ValueLogFileSize < 1<<20 {
		return fmt.Errorf("value_log_file_size must be at least 1MB, got %d", c.ValueLogFileSize)
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("gc_interval must not be negative, got %s", c.GCInterval)
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return fmt.Errorf("gc_ratio must be between 0 and 1 (exclusive), got %v", c.GCRatio)
	}
	return nil
}
