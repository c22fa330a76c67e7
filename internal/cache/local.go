// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/playermap/internal/metrics"
)

// localBackend is the in-process fallback store: a map of serialized values
// with a parallel expiry map. A read past the recorded expiry is a miss and
// evicts the entry.
type localBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
	expiry  map[string]time.Time

	// now is replaceable in tests.
	now func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// newLocalBackend creates an in-process store with a background cleanup
// goroutine sweeping expired entries every cleanupInterval.
func newLocalBackend(cleanupInterval time.Duration) *localBackend {
	l := &localBackend{
		entries:     make(map[string][]byte),
		expiry:      make(map[string]time.Time),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go l.cleanupLoop(cleanupInterval)
	}

	return l
}

func (l *localBackend) get(_ context.Context, key string) ([]byte, bool, error) {
	l.mu.RLock()
	data, exists := l.entries[key]
	expiresAt := l.expiry[key]
	l.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if l.now().After(expiresAt) {
		l.mu.Lock()
		delete(l.entries, key)
		delete(l.expiry, key)
		l.mu.Unlock()
		metrics.CacheEvictions.Inc()
		return nil, false, nil
	}

	return data, true, nil
}

func (l *localBackend) set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	l.mu.Lock()
	l.entries[key] = data
	l.expiry[key] = l.now().Add(ttl)
	l.mu.Unlock()
	return nil
}

func (l *localBackend) delete(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.entries, key)
	delete(l.expiry, key)
	l.mu.Unlock()
	return nil
}

// deleteByPattern removes every key containing the pattern with its
// wildcard stripped. Substring matching is deliberately looser than redis
// glob semantics; the namespaced key scheme keeps it precise enough.
func (l *localBackend) deleteByPattern(_ context.Context, pattern string) error {
	needle := strings.ReplaceAll(pattern, "*", "")

	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.entries {
		if strings.Contains(key, needle) {
			delete(l.entries, key)
			delete(l.expiry, key)
		}
	}
	return nil
}

func (l *localBackend) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired entries.
func (l *localBackend) cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, expiresAt := range l.expiry {
		if now.After(expiresAt) {
			delete(l.entries, key)
			delete(l.expiry, key)
			metrics.CacheEvictions.Inc()
		}
	}
}

func (l *localBackend) close() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// len reports the current number of entries, expired or not.
func (l *localBackend) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
