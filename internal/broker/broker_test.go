// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package broker

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

type suiteOptions struct {
	// explicitClaim is false for backends where the server redelivers.
	explicitClaim bool
}

func payloads(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e.Payload)
	}
	return out
}

func mustAppend(t *testing.T, b Broker, topic string, payloads ...string) []EntryID {
	t.Helper()
	ids := make([]EntryID, 0, len(payloads))
	for _, p := range payloads {
		id, err := b.Append(context.Background(), topic, []byte(p))
		if err != nil {
			t.Fatalf("Append(%q) error = %v", p, err)
		}
		ids = append(ids, id)
	}
	return ids
}

// runBrokerSuite exercises the Broker contract against a fresh backend.
func runBrokerSuite(t *testing.T, newBroker func(t *testing.T) Broker, opts suiteOptions) {
	t.Helper()
	ctx := context.Background()

	t.Run("ReadInAppendOrder", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "orders", "g1"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		mustAppend(t, b, "orders", "a", "b", "c", "d")

		got, err := b.ReadGroup(ctx, "orders", "g1", "c1", 10, 0)
		if err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		want := []string{"a", "b", "c", "d"}
		if !reflect.DeepEqual(payloads(got), want) {
			t.Errorf("ReadGroup() payloads = %v, want %v", payloads(got), want)
		}
		for _, e := range got {
			if e.DeliveryCount != 1 {
				t.Errorf("entry %s DeliveryCount = %d, want 1", e.ID, e.DeliveryCount)
			}
		}
	})

	t.Run("GroupStartsAtBeginning", func(t *testing.T) {
		b := newBroker(t)
		// EnsureGroup on one group so the topic exists for every backend.
		if err := b.EnsureGroup(ctx, "late", "early"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		mustAppend(t, b, "late", "before")
		if err := b.EnsureGroup(ctx, "late", "joiner"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		got, err := b.ReadGroup(ctx, "late", "joiner", "c1", 10, 0)
		if err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		if !reflect.DeepEqual(payloads(got), []string{"before"}) {
			t.Errorf("late group payloads = %v, want [before]", payloads(got))
		}
	})

	t.Run("EnsureGroupIdempotent", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "t", "g"); err != nil {
			t.Fatalf("first EnsureGroup() error = %v", err)
		}
		mustAppend(t, b, "t", "x")
		if _, err := b.ReadGroup(ctx, "t", "g", "c", 10, 0); err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		if err := b.EnsureGroup(ctx, "t", "g"); err != nil {
			t.Fatalf("second EnsureGroup() error = %v", err)
		}
		got, err := b.ReadGroup(ctx, "t", "g", "c", 10, 0)
		if err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("re-ensuring the group rewound the cursor: %v", payloads(got))
		}
	})

	t.Run("EachEntryDeliveredOncePerGroup", func(t *testing.T) {
		b := newBroker(t)
		for _, g := range []string{"g1", "g2"} {
			if err := b.EnsureGroup(ctx, "fanout", g); err != nil {
				t.Fatalf("EnsureGroup(%s) error = %v", g, err)
			}
		}
		mustAppend(t, b, "fanout", "e1", "e2", "e3")

		first, err := b.ReadGroup(ctx, "fanout", "g1", "c1", 2, 0)
		if err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		second, err := b.ReadGroup(ctx, "fanout", "g1", "c2", 10, 0)
		if err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		if !reflect.DeepEqual(payloads(first), []string{"e1", "e2"}) {
			t.Errorf("first read = %v, want [e1 e2]", payloads(first))
		}
		if !reflect.DeepEqual(payloads(second), []string{"e3"}) {
			t.Errorf("second read = %v, want [e3]", payloads(second))
		}

		other, err := b.ReadGroup(ctx, "fanout", "g2", "c1", 10, 0)
		if err != nil {
			t.Fatalf("ReadGroup(g2) error = %v", err)
		}
		if len(other) != 3 {
			t.Errorf("g2 received %d entries, want 3", len(other))
		}
	})

	t.Run("ReadUnknownGroup", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "known", "g"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		_, err := b.ReadGroup(ctx, "known", "missing", "c", 1, 0)
		if !errors.Is(err, ErrGroupNotFound) {
			t.Errorf("ReadGroup() error = %v, want ErrGroupNotFound", err)
		}
	})

	t.Run("ReadBlocksUntilTimeout", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "quiet", "g"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		start := time.Now()
		got, err := b.ReadGroup(ctx, "quiet", "g", "c", 1, 200*time.Millisecond)
		if err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("ReadGroup() = %v, want empty", payloads(got))
		}
		if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
			t.Errorf("ReadGroup() returned after %s, expected to block", elapsed)
		}
	})

	t.Run("ReadWakesOnAppend", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "wake", "g"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		go func() {
			time.Sleep(50 * time.Millisecond)
			b.Append(context.Background(), "wake", []byte("late")) //nolint:errcheck
		}()
		got, err := b.ReadGroup(ctx, "wake", "g", "c", 1, 5*time.Second)
		if err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		if !reflect.DeepEqual(payloads(got), []string{"late"}) {
			t.Errorf("ReadGroup() = %v, want [late]", payloads(got))
		}
	})

	t.Run("AckUnknownIsNoop", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "acks", "g"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		ids := mustAppend(t, b, "acks", "x")
		if err := b.Ack(ctx, "acks", "g", ids[0]); err != nil {
			t.Errorf("Ack() of undelivered entry error = %v", err)
		}
	})

	t.Run("InvalidNames", func(t *testing.T) {
		b := newBroker(t)
		if _, err := b.Append(ctx, "", []byte("x")); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Append(\"\") error = %v, want ErrInvalidArgument", err)
		}
		if err := b.EnsureGroup(ctx, "t", ""); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("EnsureGroup(group=\"\") error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		b := newBroker(t)
		if err := b.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	if !opts.explicitClaim {
		return
	}

	t.Run("ClaimRedeliversUnacked", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "claims", "g"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		mustAppend(t, b, "claims", "keep", "drop")

		got, err := b.ReadGroup(ctx, "claims", "g", "dead", 10, 0)
		if err != nil || len(got) != 2 {
			t.Fatalf("ReadGroup() = %v, %v; want 2 entries", payloads(got), err)
		}
		if err := b.Ack(ctx, "claims", "g", got[1].ID); err != nil {
			t.Fatalf("Ack() error = %v", err)
		}

		claimed, err := b.ClaimStale(ctx, "claims", "g", "alive", 0, 10)
		if err != nil {
			t.Fatalf("ClaimStale() error = %v", err)
		}
		if len(claimed) != 1 {
			t.Fatalf("ClaimStale() returned %d entries, want 1", len(claimed))
		}
		if claimed[0].ID != got[0].ID || string(claimed[0].Payload) != "keep" {
			t.Errorf("claimed %s=%q, want %s=keep", claimed[0].ID, claimed[0].Payload, got[0].ID)
		}
		if claimed[0].DeliveryCount != 2 {
			t.Errorf("DeliveryCount = %d, want 2", claimed[0].DeliveryCount)
		}

		if err := b.Ack(ctx, "claims", "g", claimed[0].ID); err != nil {
			t.Fatalf("Ack() error = %v", err)
		}
		again, err := b.ClaimStale(ctx, "claims", "g", "alive", 0, 10)
		if err != nil {
			t.Fatalf("ClaimStale() error = %v", err)
		}
		if len(again) != 0 {
			t.Errorf("ClaimStale() after ack = %v, want empty", payloads(again))
		}
	})

	t.Run("ClaimRespectsIdleThreshold", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "fresh", "g"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		mustAppend(t, b, "fresh", "x")
		if _, err := b.ReadGroup(ctx, "fresh", "g", "c1", 1, 0); err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		claimed, err := b.ClaimStale(ctx, "fresh", "g", "c2", time.Hour, 10)
		if err != nil {
			t.Fatalf("ClaimStale() error = %v", err)
		}
		if len(claimed) != 0 {
			t.Errorf("ClaimStale() claimed a fresh entry: %v", payloads(claimed))
		}
	})

	t.Run("ClaimLimit", func(t *testing.T) {
		b := newBroker(t)
		if err := b.EnsureGroup(ctx, "many", "g"); err != nil {
			t.Fatalf("EnsureGroup() error = %v", err)
		}
		for i := 0; i < 5; i++ {
			mustAppend(t, b, "many", fmt.Sprintf("m%d", i))
		}
		if _, err := b.ReadGroup(ctx, "many", "g", "c1", 5, 0); err != nil {
			t.Fatalf("ReadGroup() error = %v", err)
		}
		claimed, err := b.ClaimStale(ctx, "many", "g", "c2", 0, 2)
		if err != nil {
			t.Fatalf("ClaimStale() error = %v", err)
		}
		if !reflect.DeepEqual(payloads(claimed), []string{"m0", "m1"}) {
			t.Errorf("ClaimStale() = %v, want [m0 m1]", payloads(claimed))
		}
	})
}
