// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package coordinator

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/playermap/internal/cache"
	"github.com/tomtom215/playermap/internal/downsample"
	"github.com/tomtom215/playermap/internal/models"
)

// Servers returns the game-server list for the auth domain.
func (c *Coordinator) Servers(ctx context.Context, domain string) ([]models.GameServer, error) {
	key := cache.Key(cache.CategoryServerList, domain)
	return Cached(ctx, c.store, key, c.ttl.ServerListTTL, func(ctx context.Context) ([]models.GameServer, error) {
		return c.api.Servers(ctx, domain)
	})
}

// MapMeta returns the map metadata for one server.
func (c *Coordinator) MapMeta(ctx context.Context, domain, serverID string) (*models.MapMeta, error) {
	key := cache.Key(cache.CategoryMapMeta, domain, serverID)
	return Cached(ctx, c.store, key, c.ttl.MapMetaTTL, func(ctx context.Context) (*models.MapMeta, error) {
		return c.api.MapMeta(ctx, domain, serverID)
	})
}

// ItemCatalog returns the item catalog for one server.
func (c *Coordinator) ItemCatalog(ctx context.Context, domain, serverID string) ([]models.CatalogItem, error) {
	key := cache.Key(cache.CategoryItemCatalog, domain, serverID)
	return Cached(ctx, c.store, key, c.ttl.ItemCatalogTTL, func(ctx context.Context) ([]models.CatalogItem, error) {
		return c.api.ItemCatalog(ctx, domain, serverID)
	})
}

// MovementPath returns a player's movement path within [start, end],
// downsampled to the window size.
//
// The raw drained point list is cached per (player, range); sorting and
// downsampling are cheap in-memory passes applied on every call, so the
// same cached query can serve repeated requests for the same range.
func (c *Coordinator) MovementPath(ctx context.Context, domain, serverID, playerID string, start, end time.Time) ([]models.MovementPoint, error) {
	key := cache.Key(cache.CategoryMovement, domain, serverID, playerID,
		strconv.FormatInt(start.Unix(), 10), strconv.FormatInt(end.Unix(), 10))

	points, err := Cached(ctx, c.store, key, c.ttl.MovementTTL, func(ctx context.Context) ([]models.MovementPoint, error) {
		return DrainPaginated(ctx, func(ctx context.Context, page, limit int) ([]models.MovementPoint, int, error) {
			return c.api.Movements(ctx, domain, serverID, playerID, start, end, page, limit)
		}, c.pageSize, c.maxDrain)
	})
	if err != nil {
		return nil, err
	}

	// Downsampling requires sorted input; sort before, never inside.
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return downsample.Points(points, end.Sub(start), c.dstable), nil
}

// Tile fetches one tile image from upstream. The on-disk tile store is a
// separate tier checked by the HTTP layer before reaching here; tiles are
// immutable so the tiered cache store is not involved at all.
func (c *Coordinator) Tile(ctx context.Context, domain, serverID string, zoom, x, y int) ([]byte, error) {
	return c.api.Tile(ctx, domain, serverID, zoom, x, y)
}
