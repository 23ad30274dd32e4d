// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package broker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/lute/internal/logging"
)

// Key layout inside the shared BadgerDB keyspace:
//
//	bk:last:<topic>                 last assigned sequence (uint64 BE)
//	bk:e:<topic>\x00<seq>           entry payload
//	bk:g:<topic>\x00<group>         group cursor: last delivered sequence
//	bk:p:<topic>\x00<group>\x00<seq> pending lease (JSON)
//
// <seq> is a zero-padded decimal so byte order equals append order.
const (
	prefixLast    = "bk:last:"
	prefixEntry   = "bk:e:"
	prefixGroup   = "bk:g:"
	prefixPending = "bk:p:"
	keySep        = "\x00"
	seqWidth      = 20
)

// pendingLease records who holds a delivered but unacknowledged entry.
type pendingLease struct {
	Consumer      string `json:"consumer"`
	DeliveredAt   int64  `json:"delivered_at"`
	DeliveryCount int    `json:"delivery_count"`
}

// BadgerBroker implements Broker on an embedded BadgerDB. It assumes it is
// the only writer of its key prefixes, which holds because BadgerDB allows a
// single process per directory.
type BadgerBroker struct {
	db  *badger.DB
	now func() time.Time

	// mu serializes mutations so sequence assignment and cursor moves never
	// interleave. Blocking reads wait on notify without holding it.
	mu     sync.Mutex
	notify map[string]chan struct{}
}

// NewBadgerBroker wraps an open database.
func NewBadgerBroker(db *badger.DB) *BadgerBroker {
	return &BadgerBroker{
		db:     db,
		now:    time.Now,
		notify: make(map[string]chan struct{}),
	}
}

func formatSeq(seq uint64) string {
	return fmt.Sprintf("%0*d", seqWidth, seq)
}

func parseSeq(id EntryID) (uint64, error) {
	seq, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: entry id %q", ErrInvalidArgument, id)
	}
	return seq, nil
}

func lastKey(topic string) []byte { return []byte(prefixLast + topic) }

func entryPrefix(topic string) []byte { return []byte(prefixEntry + topic + keySep) }

func entryKey(topic string, seq uint64) []byte {
	return append(entryPrefix(topic), formatSeq(seq)...)
}

func groupKey(topic, group string) []byte { return []byte(prefixGroup + topic + keySep + group) }

func pendingPrefix(topic, group string) []byte {
	return []byte(prefixPending + topic + keySep + group + keySep)
}

func pendingKey(topic, group string, seq uint64) []byte {
	return append(pendingPrefix(topic, group), formatSeq(seq)...)
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func readSeq(txn *badger.Txn, key []byte) (uint64, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt sequence value at %q", key)
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, true, err
}

// EnsureGroup implements Broker. The cursor starts at 0 so the group sees
// every entry ever appended.
func (b *BadgerBroker) EnsureGroup(ctx context.Context, topic, group string) error {
	if err := validateNames(topic, group); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(txn *badger.Txn) error {
		_, ok, err := readSeq(txn, groupKey(topic, group))
		if err != nil || ok {
			return err
		}
		return txn.Set(groupKey(topic, group), encodeSeq(0))
	})
	if err != nil {
		return transportErr("ensure group "+topic+"/"+group, err)
	}
	return nil
}

// Append implements Broker.
func (b *BadgerBroker) Append(ctx context.Context, topic string, payload []byte) (EntryID, error) {
	if err := validateNames(topic); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var seq uint64
	err := b.db.Update(func(txn *badger.Txn) error {
		last, _, err := readSeq(txn, lastKey(topic))
		if err != nil {
			return err
		}
		seq = last + 1
		if err := txn.Set(entryKey(topic, seq), payload); err != nil {
			return err
		}
		return txn.Set(lastKey(topic), encodeSeq(seq))
	})
	if err != nil {
		return "", transportErr("append "+topic, err)
	}

	if ch, ok := b.notify[topic]; ok {
		close(ch)
		delete(b.notify, topic)
	}
	return EntryID(strconv.FormatUint(seq, 10)), nil
}

// ReadGroup implements Broker. It waits for an Append notification when the
// group is caught up, up to block.
func (b *BadgerBroker) ReadGroup(ctx context.Context, topic, group, consumer string, maxCount int, block time.Duration) ([]Entry, error) {
	if err := validateNames(topic, group, consumer); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, nil
	}

	var deadline <-chan time.Time
	if block > 0 {
		timer := time.NewTimer(block)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		b.mu.Lock()
		entries, err := b.readNewLocked(topic, group, consumer, maxCount)
		if err != nil || len(entries) > 0 || deadline == nil {
			b.mu.Unlock()
			return entries, err
		}
		wake := b.waitChanLocked(topic)
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, nil
		case <-wake:
		}
	}
}

func (b *BadgerBroker) waitChanLocked(topic string) <-chan struct{} {
	ch, ok := b.notify[topic]
	if !ok {
		ch = make(chan struct{})
		b.notify[topic] = ch
	}
	return ch
}

func (b *BadgerBroker) readNewLocked(topic, group, consumer string, maxCount int) ([]Entry, error) {
	var entries []Entry
	err := b.db.Update(func(txn *badger.Txn) error {
		cursor, ok, err := readSeq(txn, groupKey(topic, group))
		if err != nil {
			return err
		}
		if !ok {
			return ErrGroupNotFound
		}

		lease, err := json.Marshal(pendingLease{
			Consumer:      consumer,
			DeliveredAt:   b.now().UnixNano(),
			DeliveryCount: 1,
		})
		if err != nil {
			return err
		}

		entries, err = scanEntries(txn, topic, cursor, maxCount)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		for _, e := range entries {
			seq, _ := parseSeq(e.ID)
			if err := txn.Set(pendingKey(topic, group, seq), lease); err != nil {
				return err
			}
		}
		last, _ := parseSeq(entries[len(entries)-1].ID)
		return txn.Set(groupKey(topic, group), encodeSeq(last))
	})
	if errors.Is(err, ErrGroupNotFound) {
		return nil, fmt.Errorf("read %s/%s: %w", topic, group, ErrGroupNotFound)
	}
	if err != nil {
		return nil, transportErr("read "+topic+"/"+group, err)
	}
	return entries, nil
}

// scanEntries returns up to maxCount entries with a sequence above after.
func scanEntries(txn *badger.Txn, topic string, after uint64, maxCount int) ([]Entry, error) {
	prefix := entryPrefix(topic)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var entries []Entry
	for it.Seek(entryKey(topic, after+1)); it.ValidForPrefix(prefix) && len(entries) < maxCount; it.Next() {
		item := it.Item()
		seq, err := strconv.ParseUint(string(item.Key()[len(prefix):]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt entry key %q: %w", item.Key(), err)
		}
		payload, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			ID:            EntryID(strconv.FormatUint(seq, 10)),
			Payload:       payload,
			DeliveryCount: 1,
		})
	}
	return entries, nil
}

// Ack implements Broker.
func (b *BadgerBroker) Ack(ctx context.Context, topic, group string, id EntryID) error {
	if err := validateNames(topic, group); err != nil {
		return err
	}
	seq, err := parseSeq(id)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(pendingKey(topic, group, seq))
	})
	if err != nil {
		return transportErr("ack "+topic+"/"+group, err)
	}
	return nil
}

// ClaimStale implements Broker by re-leasing pending entries whose delivery
// time is at least minIdle in the past.
func (b *BadgerBroker) ClaimStale(ctx context.Context, topic, group, consumer string, minIdle time.Duration, maxCount int) ([]Entry, error) {
	if err := validateNames(topic, group, consumer); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	cutoff := now.Add(-minIdle).UnixNano()
	var entries []Entry

	err := b.db.Update(func(txn *badger.Txn) error {
		if _, ok, err := readSeq(txn, groupKey(topic, group)); err != nil {
			return err
		} else if !ok {
			return ErrGroupNotFound
		}

		type claim struct {
			seq   uint64
			lease pendingLease
		}
		var claims []claim

		prefix := pendingPrefix(topic, group)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(claims) < maxCount; it.Next() {
			item := it.Item()
			seq, err := strconv.ParseUint(string(item.Key()[len(prefix):]), 10, 64)
			if err != nil {
				it.Close()
				return fmt.Errorf("corrupt pending key %q: %w", item.Key(), err)
			}
			var lease pendingLease
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &lease) }); err != nil {
				logging.Warn().Err(err).Str("topic", topic).Str("group", group).Msg("Reclaiming entry with unreadable pending lease")
				lease = pendingLease{}
			}
			if lease.DeliveredAt > cutoff {
				continue
			}
			claims = append(claims, claim{seq: seq, lease: lease})
		}
		it.Close()

		for _, c := range claims {
			item, err := txn.Get(entryKey(topic, c.seq))
			if errors.Is(err, badger.ErrKeyNotFound) {
				if err := txn.Delete(pendingKey(topic, group, c.seq)); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			lease := pendingLease{
				Consumer:      consumer,
				DeliveredAt:   now.UnixNano(),
				DeliveryCount: c.lease.DeliveryCount + 1,
			}
			data, err := json.Marshal(lease)
			if err != nil {
				return err
			}
			if err := txn.Set(pendingKey(topic, group, c.seq), data); err != nil {
				return err
			}
			entries = append(entries, Entry{
				ID:            EntryID(strconv.FormatUint(c.seq, 10)),
				Payload:       payload,
				DeliveryCount: lease.DeliveryCount,
			})
		}
		return nil
	})
	if errors.Is(err, ErrGroupNotFound) {
		return nil, fmt.Errorf("claim %s/%s: %w", topic, group, ErrGroupNotFound)
	}
	if err != nil {
		return nil, transportErr("claim "+topic+"/"+group, err)
	}
	return entries, nil
}

// Pending returns the number of unacknowledged entries held by group.
func (b *BadgerBroker) Pending(ctx context.Context, topic, group string) (int, error) {
	prefix := pendingPrefix(topic, group)
	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, transportErr("pending "+topic+"/"+group, err)
	}
	return count, nil
}

// Ping implements Broker.
func (b *BadgerBroker) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return transportErr("ping", errors.New("badger database is closed"))
	}
	return nil
}
