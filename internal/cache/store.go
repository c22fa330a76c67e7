// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

// Package cache provides the tiered key/value store that fronts the
// tracking API: a shared redis backend when reachable, transparently
// degrading to an in-process map when not.
//
// The cache is best-effort acceleration, never a source of truth. Every
// backend error is swallowed and logged; callers only ever observe a hit
// or a miss.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playermap/internal/logging"
	"github.com/tomtom215/playermap/internal/metrics"
)

// Store is the cache interface consumed by the fetch coordinator.
//
// Get unmarshals the cached value into dest and reports whether the key was
// present and fresh. A miss is a boolean, not an error. Values round-trip
// through JSON on both backends, so a hit is structurally equal to what was
// stored, never reference-equal.
type Store interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPattern(ctx context.Context, pattern string)
}

// Options configures a Tiered store.
type Options struct {
	// RedisAddr enables the shared backend when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ConnectTimeout bounds the initial redis ping.
	ConnectTimeout time.Duration

	// LocalCleanup is the sweep interval for the in-process fallback map.
	LocalCleanup time.Duration
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Degraded bool
}

// backend is the uniform operation set both tiers implement.
// Values are serialized before they reach a backend.
type backend interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	delete(ctx context.Context, key string) error
	deleteByPattern(ctx context.Context, pattern string) error
}

// Tiered is the two-variant cache store. It is constructed, never shared as
// a hidden singleton: whoever owns the coordinator owns its store, which
// gives tests isolated cache scopes.
type Tiered struct {
	remote   *redisBackend // nil when redis is disabled or was unreachable at startup
	local    *localBackend
	degraded atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64

	closeOnce sync.Once
}

// New constructs a Tiered store. If the shared backend is unavailable the
// store silently degrades to the in-process map for the remainder of the
// process lifetime; construction itself never fails.
func New(opts Options) *Tiered {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.LocalCleanup <= 0 {
		opts.LocalCleanup = 5 * time.Minute
	}

	t := &Tiered{
		local: newLocalBackend(opts.LocalCleanup),
	}

	if opts.RedisAddr == "" {
		logging.Info().Msg("Cache: redis not configured, using in-process store")
		t.degraded.Store(true)
		metrics.CacheDegraded.Set(1)
		return t
	}

	remote, err := newRedisBackend(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.ConnectTimeout)
	if err != nil {
		logging.Warn().Err(err).Str("addr", opts.RedisAddr).
			Msg("Cache: redis unreachable, degrading to in-process store")
		t.degraded.Store(true)
		metrics.CacheDegraded.Set(1)
		return t
	}

	logging.Info().Str("addr", opts.RedisAddr).Msg("Cache: connected to redis")
	t.remote = remote
	metrics.CacheDegraded.Set(0)
	return t
}

// backend returns the active tier and its metric label.
func (t *Tiered) backend() (backend, string) {
	if t.remote != nil && !t.degraded.Load() {
		return t.remote, "redis"
	}
	return t.local, "local"
}

// degrade flips the store to the in-process map after a remote error.
// In-flight requests are unaffected; they simply fall through to local.
func (t *Tiered) degrade(operation string, err error) {
	metrics.CacheErrors.WithLabelValues(operation).Inc()
	if t.degraded.CompareAndSwap(false, true) {
		metrics.CacheDegraded.Set(1)
		logging.Warn().Err(err).Str("operation", operation).
			Msg("Cache: redis error, degrading to in-process store")
	}
}

// Get retrieves a value and unmarshals it into dest.
// Returns false on miss, expiry, or any backend/serialization error.
func (t *Tiered) Get(ctx context.Context, key string, dest any) bool {
	b, tier := t.backend()

	data, found, err := b.get(ctx, key)
	if err != nil {
		t.degrade("get", err)
		// Retry once against the local map so a redis blip degrades to a
		// miss rather than an error.
		data, found, _ = t.local.get(ctx, key)
		tier = "local"
	}

	if !found {
		t.misses.Add(1)
		metrics.CacheMisses.WithLabelValues(tier).Inc()
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Cache: stored payload failed to deserialize")
		t.misses.Add(1)
		metrics.CacheMisses.WithLabelValues(tier).Inc()
		return false
	}

	t.hits.Add(1)
	metrics.CacheHits.WithLabelValues(tier).Inc()
	return true
}

// Set stores a value under key with the given TTL.
// Serialization and backend failures are logged and swallowed.
func (t *Tiered) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Cache: value failed to serialize")
		return
	}

	b, _ := t.backend()
	if err := b.set(ctx, key, data, ttl); err != nil {
		t.degrade("set", err)
		_ = t.local.set(ctx, key, data, ttl)
	}
}

// Delete removes a single key. Safe to call for keys that do not exist.
func (t *Tiered) Delete(ctx context.Context, key string) {
	b, _ := t.backend()
	if err := b.delete(ctx, key); err != nil {
		t.degrade("delete", err)
		_ = t.local.delete(ctx, key)
	}
}

// DeleteByPattern removes every key matching the glob pattern, scoping
// invalidation to one resource category or domain.
func (t *Tiered) DeleteByPattern(ctx context.Context, pattern string) {
	b, _ := t.backend()
	if err := b.deleteByPattern(ctx, pattern); err != nil {
		t.degrade("delete_pattern", err)
		_ = t.local.deleteByPattern(ctx, pattern)
	}
}

// Stats returns a snapshot of cache counters.
func (t *Tiered) Stats() Stats {
	return Stats{
		Hits:     t.hits.Load(),
		Misses:   t.misses.Load(),
		Degraded: t.degraded.Load(),
	}
}

// Close releases backend resources. Safe to call more than once.
func (t *Tiered) Close() {
	t.closeOnce.Do(func() {
		t.local.close()
		if t.remote != nil {
			if err := t.remote.close(); err != nil {
				logging.Warn().Err(err).Msg("Cache: redis close failed")
			}
		}
	})
}
