// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/wal"
)

func newTestBroker(t *testing.T) *broker.BadgerBroker {
	t.Helper()
	db, err := wal.Open(wal.TestConfig())
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return broker.NewBadgerBroker(db.Badger())
}

func testRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		TopicPrefix:       "test:",
		Block:             50 * time.Millisecond,
		ClaimMinIdle:      150 * time.Millisecond,
		ClaimInterval:     50 * time.Millisecond,
		RetryAttempts:     2,
		RetryInitialDelay: 10 * time.Millisecond,
		RetryMaxDelay:     20 * time.Millisecond,
		AckTimeout:        time.Second,
	}
}

// startRuntime runs rt in the background. The returned stop cancels it and
// returns Serve's error.
func startRuntime(t *testing.T, rt *Runtime) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	var once sync.Once
	var result error
	stop = func() error {
		once.Do(func() {
			cancel()
			select {
			case result = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("Serve did not return after cancel")
			}
		})
		return result
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// failingBroker fails every Append with ErrTransport.
type failingBroker struct {
	broker.Broker
	mu      sync.Mutex
	appends int
}

func (f *failingBroker) Append(context.Context, string, []byte) (broker.EntryID, error) {
	f.mu.Lock()
	f.appends++
	f.mu.Unlock()
	return "", errors.Join(broker.ErrTransport, errors.New("connection refused"))
}

func (f *failingBroker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}
