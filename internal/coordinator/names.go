// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package coordinator

import (
	"context"

	"github.com/tomtom215/playermap/internal/cache"
)

// ResolveNames resolves a batch of player IDs to display names through a
// per-ID micro-cache: cached IDs are served from the store, only the misses
// go upstream in one batched lookup, and each freshly resolved name is
// cached under its own ID-scoped key. An ID resolved recently is never
// re-fetched, even across calls within one logical batch.
//
// IDs the upstream does not know are simply absent from the result map.
func (c *Coordinator) ResolveNames(ctx context.Context, domain string, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))

	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var name string
		if c.store.Get(ctx, cache.Key(cache.CategoryPlayerName, domain, id), &name) {
			names[id] = name
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return names, nil
	}

	fetched, err := c.api.Profiles(ctx, domain, missing)
	if err != nil {
		return nil, err
	}

	for id, name := range fetched {
		c.store.Set(ctx, cache.Key(cache.CategoryPlayerName, domain, id), name, c.ttl.PlayerNameTTL)
		names[id] = name
	}

	return names, nil
}
