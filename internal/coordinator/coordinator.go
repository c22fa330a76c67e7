// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

// Package coordinator is the single chokepoint through which all tracking
// API reads flow. It layers, in order:
//
//   - cache-first reads against the tiered store
//   - in-flight request collapsing for identical concurrent fetches
//   - cache-the-full-dataset, filter-on-read for time-windowed queries
//   - pagination draining with a safety ceiling
//
// The coordinator never retries upstream failures; retries are the
// caller's responsibility. Cache failures never surface here at all - the
// store degrades internally and reports misses.
package coordinator

import (
	"context"
	"reflect"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/playermap/internal/cache"
	"github.com/tomtom215/playermap/internal/config"
	"github.com/tomtom215/playermap/internal/downsample"
	"github.com/tomtom215/playermap/internal/metrics"
	"github.com/tomtom215/playermap/internal/models"
	"github.com/tomtom215/playermap/internal/tracker"
)

// Coordinator orchestrates cache lookups, request collapsing and upstream
// pagination. Construct one per cache scope; it is safe for concurrent use.
type Coordinator struct {
	store cache.Store
	api   tracker.API
	ttl   config.CacheConfig

	pageSize int
	maxDrain int

	dstable downsample.Table

	// flights collapses concurrent full-list fetches for the same
	// (domain, server) key into one upstream call. singleflight removes
	// the entry the moment the shared call settles, success or failure,
	// and its insert-if-absent is atomic, which keeps the check-then-
	// register sequence safe under real OS threads.
	flights singleflight.Group
}

// New creates a Coordinator over the given store and tracking API client.
func New(store cache.Store, api tracker.API, ttl config.CacheConfig, pageSize, maxDrain int) *Coordinator {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxDrain <= 0 {
		maxDrain = 10000
	}
	return &Coordinator{
		store:    store,
		api:      api,
		ttl:      ttl,
		pageSize: pageSize,
		maxDrain: maxDrain,
		dstable:  downsample.DefaultTable(),
	}
}

// SetDownsampleTable overrides the default downsampling interval cascade.
// Call before serving requests; the table is read without locking.
func (c *Coordinator) SetDownsampleTable(t downsample.Table) {
	c.dstable = t
}

// Cached is the generic cache-aside primitive: check the store under key,
// return the hit, otherwise run fetch and store a non-empty result with the
// given TTL before returning it. It has no special-casing and is safe for
// any upstream read whose result can be treated as eventually consistent
// for the TTL duration.
func Cached[T any](ctx context.Context, store cache.Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if store.Get(ctx, key, &cached) {
		return cached, nil
	}

	result, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if !isEmptyResult(result) {
		store.Set(ctx, key, result, ttl)
	}
	return result, nil
}

// isEmptyResult reports whether a fetch result is nil-like and should not
// be cached (nil pointers, nil slices, nil maps).
func isEmptyResult(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// FullPlayerList returns the complete, time-unfiltered player snapshot for
// one server: the unit that is actually cached and paginated. This is the
// most expensive and most concurrently requested upstream call, so it is
// the one protected by in-flight collapsing: N concurrent callers while no
// cache entry exists produce exactly one upstream drain, and all N resolve
// with that drain's result.
func (c *Coordinator) FullPlayerList(ctx context.Context, domain, serverID string) ([]models.PlayerRecord, error) {
	key := cache.Key(cache.CategoryPlayerList, domain, serverID, "full")

	// The winning caller's context drives the shared fetch; latecomers
	// that cancel their own context still receive the shared result.
	result, err, shared := c.flights.Do(key, func() (any, error) {
		var cached []models.PlayerRecord
		if c.store.Get(ctx, key, &cached) {
			return cached, nil
		}

		players, err := DrainPaginated(ctx, func(ctx context.Context, page, limit int) ([]models.PlayerRecord, int, error) {
			return c.api.Players(ctx, domain, serverID, page, limit)
		}, c.pageSize, c.maxDrain)
		if err != nil {
			return nil, err
		}

		c.store.Set(ctx, key, players, c.ttl.PlayerListTTL)
		return players, nil
	})
	if shared {
		metrics.InflightCollapses.Inc()
	}
	if err != nil {
		return nil, err
	}
	return result.([]models.PlayerRecord), nil
}

// Players applies the cache-then-filter policy over the full list.
//
// Online records always pass. Offline records pass only when their
// last-seen timestamp falls within [start, end] inclusive. With no window,
// only online records are returned, unless loadAll requests the raw
// snapshot. Changing the window is always an in-memory filter over the
// cached full list, never a new upstream call within the full-list TTL.
func (c *Coordinator) Players(ctx context.Context, domain, serverID string, start, end *time.Time, loadAll bool) ([]models.PlayerRecord, error) {
	full, err := c.FullPlayerList(ctx, domain, serverID)
	if err != nil {
		return nil, err
	}

	if loadAll {
		return full, nil
	}

	filtered := make([]models.PlayerRecord, 0, len(full))

	if start == nil || end == nil {
		for _, p := range full {
			if p.Online {
				filtered = append(filtered, p)
			}
		}
		return filtered, nil
	}

	for _, p := range full {
		if p.SeenWithin(*start, *end) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// InvalidateServer clears every cached resource for one server.
func (c *Coordinator) InvalidateServer(ctx context.Context, domain, serverID string) {
	for _, category := range []string{
		cache.CategoryPlayerList,
		cache.CategoryMovement,
		cache.CategoryMapMeta,
		cache.CategoryItemCatalog,
	} {
		c.store.DeleteByPattern(ctx, cache.Pattern(category, domain, serverID))
	}
	// Map and catalog entries have no qualifier suffix, so the glob above
	// misses the exact keys; delete those directly.
	c.store.Delete(ctx, cache.Key(cache.CategoryMapMeta, domain, serverID))
	c.store.Delete(ctx, cache.Key(cache.CategoryItemCatalog, domain, serverID))
}
