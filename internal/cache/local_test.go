// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package cache

import (
	"context"
	"testing"
	"time"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	l := newLocalBackend(0)
	defer l.close()
	ctx := context.Background()

	if err := l.set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	data, found, err := l.get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("get should find a freshly set key")
	}
	if string(data) != "v1" {
		t.Errorf("get = %q, want %q", data, "v1")
	}

	_, found, _ = l.get(ctx, "missing")
	if found {
		t.Error("get should miss for an unknown key")
	}
}

func TestLocalBackendExpiry(t *testing.T) {
	l := newLocalBackend(0)
	defer l.close()
	ctx := context.Background()

	base := time.Now()
	l.now = func() time.Time { return base }

	if err := l.set(ctx, "k1", []byte("v1"), 30*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Still fresh just before the deadline
	l.now = func() time.Time { return base.Add(29 * time.Second) }
	if _, found, _ := l.get(ctx, "k1"); !found {
		t.Error("get should hit before expiry")
	}

	// Expired reads miss and evict
	l.now = func() time.Time { return base.Add(31 * time.Second) }
	if _, found, _ := l.get(ctx, "k1"); found {
		t.Error("get should miss after expiry")
	}
	if l.len() != 0 {
		t.Errorf("expired read should evict, %d entries remain", l.len())
	}
}

func TestLocalBackendDelete(t *testing.T) {
	l := newLocalBackend(0)
	defer l.close()
	ctx := context.Background()

	_ = l.set(ctx, "k1", []byte("v1"), time.Minute)
	if err := l.delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := l.get(ctx, "k1"); found {
		t.Error("get should miss after delete")
	}

	// Deleting an absent key is a no-op
	if err := l.delete(ctx, "k1"); err != nil {
		t.Errorf("repeat delete: %v", err)
	}
}

func TestLocalBackendDeleteByPattern(t *testing.T) {
	l := newLocalBackend(0)
	defer l.close()
	ctx := context.Background()

	_ = l.set(ctx, Key(CategoryPlayerList, "dom", "srv-1", "full"), []byte("a"), time.Minute)
	_ = l.set(ctx, Key(CategoryPlayerList, "dom", "srv-2", "full"), []byte("b"), time.Minute)
	_ = l.set(ctx, Key(CategoryServerList, "dom"), []byte("c"), time.Minute)

	if err := l.deleteByPattern(ctx, Pattern(CategoryPlayerList, "dom", "srv-1")); err != nil {
		t.Fatalf("deleteByPattern: %v", err)
	}

	if _, found, _ := l.get(ctx, Key(CategoryPlayerList, "dom", "srv-1", "full")); found {
		t.Error("matching key should be deleted")
	}
	if _, found, _ := l.get(ctx, Key(CategoryPlayerList, "dom", "srv-2", "full")); !found {
		t.Error("non-matching player list key should survive")
	}
	if _, found, _ := l.get(ctx, Key(CategoryServerList, "dom")); !found {
		t.Error("other category should survive")
	}
}

func TestLocalBackendCleanup(t *testing.T) {
	l := newLocalBackend(0)
	defer l.close()
	ctx := context.Background()

	base := time.Now()
	l.now = func() time.Time { return base }

	_ = l.set(ctx, "fresh", []byte("a"), time.Hour)
	_ = l.set(ctx, "stale", []byte("b"), time.Second)

	l.now = func() time.Time { return base.Add(time.Minute) }
	l.cleanup()

	if l.len() != 1 {
		t.Errorf("cleanup left %d entries, want 1", l.len())
	}
	if _, found, _ := l.get(ctx, "fresh"); !found {
		t.Error("fresh entry should survive cleanup")
	}
}
