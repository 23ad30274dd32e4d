// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// ErrEmptyKey is returned when an operation names an empty key.
var ErrEmptyKey = errors.New("key cannot be empty")

// Store is a keyed store with atomic multi-operation writes.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// MGet returns one slot per key in input order. Missing keys yield nil.
	MGet(ctx context.Context, keys []string) ([][]byte, error)

	// Apply executes ops atomically.
	Apply(ctx context.Context, ops ...Op) error

	// Members returns the members of the set at setKey in ascending order.
	// A missing set is empty, not an error.
	Members(ctx context.Context, setKey string) ([]string, error)

	// Scan calls fn for every value whose key starts with prefix.
	// Returning an error from fn stops the scan and is returned by Scan.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// OpKind identifies the operation carried by an Op.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
	OpSetAdd
	OpSetRemove
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpDelete:
		return "delete"
	case OpSetAdd:
		return "set_add"
	case OpSetRemove:
		return "set_remove"
	default:
		return "unknown"
	}
}

// Op is a single write inside Apply.
type Op struct {
	Kind   OpKind
	Key    string
	Value  []byte
	Member string
}

// Set stores value at key, replacing any previous value.
func Set(key string, value []byte) Op {
	return Op{Kind: OpSet, Key: key, Value: value}
}

// Delete removes key. Deleting a missing key is not an error.
func Delete(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// SetAdd adds member to the set at key.
func SetAdd(key, member string) Op {
	return Op{Kind: OpSetAdd, Key: key, Member: member}
}

// SetRemove removes member from the set at key.
func SetRemove(key, member string) Op {
	return Op{Kind: OpSetRemove, Key: key, Member: member}
}

func validateOps(ops []Op) error {
	for _, op := range ops {
		if op.Key == "" {
			return ErrEmptyKey
		}
	}
	return nil
}
