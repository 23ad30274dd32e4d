// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes inside the shared BadgerDB keyspace. The broker uses its own
// prefixes, so values and set members never collide with stream entries.
const (
	badgerValuePrefix  = "kv:v:"
	badgerMemberPrefix = "kv:s:"
	memberSeparator    = "\x00"
)

// BadgerStore implements Store on an embedded BadgerDB. Set members are
// stored as empty marker keys of the form kv:s:<set>\x00<member>.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func valueKey(key string) []byte {
	return []byte(badgerValuePrefix + key)
}

func memberKeyPrefix(setKey string) []byte {
	return []byte(badgerMemberPrefix + setKey + memberSeparator)
}

func memberKey(setKey, member string) []byte {
	return append(memberKeyPrefix(setKey), member...)
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(valueKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return val, nil
}

// MGet implements Store. All keys are read from one snapshot.
func (s *BadgerStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			item, err := txn.Get(valueKey(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if out[i], err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger mget: %w", err)
	}
	return out, nil
}

// Apply implements Store inside a single read-write transaction.
func (s *BadgerStore) Apply(ctx context.Context, ops ...Op) error {
	if len(ops) == 0 {
		return nil
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpSet:
				err = txn.Set(valueKey(op.Key), op.Value)
			case OpDelete:
				err = txn.Delete(valueKey(op.Key))
			case OpSetAdd:
				err = txn.Set(memberKey(op.Key, op.Member), nil)
			case OpSetRemove:
				err = txn.Delete(memberKey(op.Key, op.Member))
			default:
				err = fmt.Errorf("unsupported op kind %d", op.Kind)
			}
			if err != nil {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger apply %d ops: %w", len(ops), err)
	}
	return nil
}

// Members implements Store. Badger iterates keys in byte order, so members
// come back sorted.
func (s *BadgerStore) Members(ctx context.Context, setKey string) ([]string, error) {
	prefix := memberKeyPrefix(setKey)
	var members []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			members = append(members, string(bytes.TrimPrefix(it.Item().Key(), prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger members %s: %w", setKey, err)
	}
	return members, nil
}

// Scan implements Store.
func (s *BadgerStore) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	fullPrefix := valueKey(prefix)

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = fullPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(fullPrefix); it.ValidForPrefix(fullPrefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("badger scan %s: %w", prefix, err)
			}
			key := string(bytes.TrimPrefix(item.Key(), []byte(badgerValuePrefix)))
			if err := fn(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ping implements Store.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}
