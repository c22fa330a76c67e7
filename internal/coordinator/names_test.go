// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package coordinator

import (
	"context"
	"testing"
)

func TestResolveNamesBatchesOnlyMisses(t *testing.T) {
	api := &fakeAPI{profiles: map[string]string{
		"p1": "Alex",
		"p2": "Sam",
		"p3": "Kai",
	}}
	c := newTestCoordinator(t, api)
	ctx := context.Background()

	// First call resolves and caches p1, p2.
	names, err := c.ResolveNames(ctx, "dom", []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if names["p1"] != "Alex" || names["p2"] != "Sam" {
		t.Errorf("ResolveNames = %v", names)
	}

	// Second call adds p3; only p3 goes upstream.
	names, err = c.ResolveNames(ctx, "dom", []string{"p1", "p2", "p3"})
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if len(names) != 3 || names["p3"] != "Kai" {
		t.Errorf("ResolveNames = %v, want all three", names)
	}

	if calls := api.profileCalls.Load(); calls != 2 {
		t.Fatalf("upstream profile calls = %d, want 2", calls)
	}
	if got := api.profileIDs[1]; len(got) != 1 || got[0] != "p3" {
		t.Errorf("second batch = %v, want only the uncached [p3]", got)
	}
}

func TestResolveNamesFullyCached(t *testing.T) {
	api := &fakeAPI{profiles: map[string]string{"p1": "Alex"}}
	c := newTestCoordinator(t, api)
	ctx := context.Background()

	if _, err := c.ResolveNames(ctx, "dom", []string{"p1"}); err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if _, err := c.ResolveNames(ctx, "dom", []string{"p1"}); err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}

	if calls := api.profileCalls.Load(); calls != 1 {
		t.Errorf("upstream profile calls = %d, want 1 (second call is fully cached)", calls)
	}
}

func TestResolveNamesDeduplicatesInput(t *testing.T) {
	api := &fakeAPI{profiles: map[string]string{"p1": "Alex"}}
	c := newTestCoordinator(t, api)

	names, err := c.ResolveNames(context.Background(), "dom", []string{"p1", "p1", "p1"})
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if len(names) != 1 {
		t.Errorf("ResolveNames = %v, want 1 entry", names)
	}
	if got := api.profileIDs[0]; len(got) != 1 {
		t.Errorf("upstream batch = %v, want deduplicated [p1]", got)
	}
}

func TestResolveNamesUnknownIDsAbsent(t *testing.T) {
	api := &fakeAPI{profiles: map[string]string{"p1": "Alex"}}
	c := newTestCoordinator(t, api)

	names, err := c.ResolveNames(context.Background(), "dom", []string{"p1", "ghost"})
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if _, ok := names["ghost"]; ok {
		t.Error("unknown ID should be absent from the result map")
	}
	if names["p1"] != "Alex" {
		t.Errorf("names = %v", names)
	}
}
