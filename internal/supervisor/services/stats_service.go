// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package services

import (
	"context"
	"time"

	"github.com/tomtom215/playermap/internal/cache"
	"github.com/tomtom215/playermap/internal/logging"
)

// StatsSource exposes cache counters for periodic reporting.
// Satisfied by *cache.Tiered.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheStatsService logs cache hit/miss counters on a fixed interval so
// operators can spot degraded-mode operation and cold caches without
// scraping Prometheus.
type CacheStatsService struct {
	source   StatsSource
	interval time.Duration
}

// NewCacheStatsService creates the reporter. Interval defaults to 5 minutes.
func NewCacheStatsService(source StatsSource, interval time.Duration) *CacheStatsService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheStatsService{source: source, interval: interval}
}

// Serve implements suture.Service.
func (s *CacheStatsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := s.source.Stats()
			logger := logging.WithComponent("cache")
			logger.Info().
				Int64("hits", stats.Hits).
				Int64("misses", stats.Misses).
				Bool("degraded", stats.Degraded).
				Msg("Cache statistics")
		}
	}
}

// String identifies the service in suture log messages.
func (s *CacheStatsService) String() string {
	return "cache-stats"
}
