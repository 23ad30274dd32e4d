// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package config

import (
	"fmt"

	"github.com/tomtom215/lute/internal/logging"
	"github.com/tomtom215/lute/internal/validation"
)

// Validate checks field constraints, then the rules that span sections.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	validators := []func() error{
		c.validateLogging,
		c.validateBadger,
		c.validateNATS,
		c.validateBroker,
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	return nil
}

// validateBadger requires a path when the embedded database runs on disk.
func (c *Config) validateBadger() error {
	if !c.UsesBadger() || c.Badger.InMemory {
		return nil
	}
	if c.Badger.Path == "" {
		return fmt.Errorf("BADGER_PATH is required when a badger backend is selected")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.Broker.Backend != BackendJetStream {
		return nil
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when BROKER_BACKEND=jetstream without an embedded server")
	}
	if c.NATS.EmbeddedServer && !c.NATS.MemoryStorage && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server with file storage")
	}
	return nil
}

// validateBroker keeps the reclaim loop from stealing entries that are
// still inside a single blocking read.
func (c *Config) validateBroker() error {
	if c.Broker.ClaimMinIdle <= c.Broker.Block {
		return fmt.Errorf("broker.claim_min_idle (%s) must exceed broker.block (%s)", c.Broker.ClaimMinIdle, c.Broker.Block)
	}
	return nil
}
