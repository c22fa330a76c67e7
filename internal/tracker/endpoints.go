// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package tracker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/playermap/internal/models"
)

// TotalUnknown is returned as the total when the upstream response reports
// no total count. Pagination then terminates on the first short page.
const TotalUnknown = -1

// API is the tracking API surface consumed by the fetch coordinator.
// Implemented by Client and BreakerClient for production, and by fakes in
// tests.
//
// All methods accept a context for cancellation and return typed errors
// (*UpstreamError) on failure. The coordinator performs no retries; a
// failure here propagates to the caller unchanged.
type API interface {
	Ping(ctx context.Context) error
	Servers(ctx context.Context, domain string) ([]models.GameServer, error)

	// Players fetches one page of the full (online + offline, unfiltered)
	// player list. Returns the page items and the reported total, or
	// TotalUnknown when the upstream omits it.
	Players(ctx context.Context, domain, serverID string, page, limit int) ([]models.PlayerRecord, int, error)

	// Profiles resolves a batch of player IDs to display names.
	Profiles(ctx context.Context, domain string, ids []string) (map[string]string, error)

	// Movements fetches one page of a player's movement events within
	// [start, end].
	Movements(ctx context.Context, domain, serverID, playerID string, start, end time.Time, page, limit int) ([]models.MovementPoint, int, error)

	MapMeta(ctx context.Context, domain, serverID string) (*models.MapMeta, error)
	ItemCatalog(ctx context.Context, domain, serverID string) ([]models.CatalogItem, error)

	// Tile fetches one tile image as opaque bytes.
	Tile(ctx context.Context, domain, serverID string, zoom, x, y int) ([]byte, error)
}

var (
	_ API = (*Client)(nil)
	_ API = (*BreakerClient)(nil)
)

// Servers lists the game servers visible to the auth domain.
func (c *Client) Servers(ctx context.Context, domain string) ([]models.GameServer, error) {
	var out struct {
		Servers []models.GameServer `json:"servers"`
	}
	path := fmt.Sprintf("/v1/%s/servers", url.PathEscape(domain))
	if err := c.get(ctx, "servers", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Servers, nil
}

// Players fetches one page of the full player list for a server.
func (c *Client) Players(ctx context.Context, domain, serverID string, page, limit int) ([]models.PlayerRecord, int, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var out struct {
		Players []models.PlayerRecord `json:"players"`
		Total   *int                  `json:"total"`
	}
	path := fmt.Sprintf("/v1/%s/servers/%s/players", url.PathEscape(domain), url.PathEscape(serverID))
	if err := c.get(ctx, "players", path, params, &out); err != nil {
		return nil, 0, err
	}

	total := TotalUnknown
	if out.Total != nil {
		total = *out.Total
	}
	return out.Players, total, nil
}

// Profiles resolves a batch of player IDs to display names in one call.
func (c *Client) Profiles(ctx context.Context, domain string, ids []string) (map[string]string, error) {
	payload := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}

	var out struct {
		Profiles []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"profiles"`
	}
	path := fmt.Sprintf("/v1/%s/profiles/lookup", url.PathEscape(domain))
	if err := c.post(ctx, "profiles", path, payload, &out); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(out.Profiles))
	for _, p := range out.Profiles {
		names[p.ID] = p.Name
	}
	return names, nil
}

// Movements fetches one page of a player's movement events within [start, end].
func (c *Client) Movements(ctx context.Context, domain, serverID, playerID string, start, end time.Time, page, limit int) ([]models.MovementPoint, int, error) {
	params := url.Values{}
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var out struct {
		Events []models.MovementPoint `json:"events"`
		Total  *int                   `json:"total"`
	}
	path := fmt.Sprintf("/v1/%s/servers/%s/players/%s/movements",
		url.PathEscape(domain), url.PathEscape(serverID), url.PathEscape(playerID))
	if err := c.get(ctx, "movements", path, params, &out); err != nil {
		return nil, 0, err
	}

	total := TotalUnknown
	if out.Total != nil {
		total = *out.Total
	}
	return out.Events, total, nil
}

// MapMeta fetches the coordinate space and tile pyramid for a server's map.
func (c *Client) MapMeta(ctx context.Context, domain, serverID string) (*models.MapMeta, error) {
	var out models.MapMeta
	path := fmt.Sprintf("/v1/%s/servers/%s/map", url.PathEscape(domain), url.PathEscape(serverID))
	if err := c.get(ctx, "map_meta", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ItemCatalog fetches a server's item catalog.
func (c *Client) ItemCatalog(ctx context.Context, domain, serverID string) ([]models.CatalogItem, error) {
	var out struct {
		Items []models.CatalogItem `json:"items"`
	}
	path := fmt.Sprintf("/v1/%s/servers/%s/items", url.PathEscape(domain), url.PathEscape(serverID))
	if err := c.get(ctx, "item_catalog", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Tile fetches one tile image as opaque bytes.
func (c *Client) Tile(ctx context.Context, domain, serverID string, zoom, x, y int) ([]byte, error) {
	path := fmt.Sprintf("/v1/%s/servers/%s/tiles/%d/%d/%d",
		url.PathEscape(domain), url.PathEscape(serverID), zoom, x, y)
	return c.getBytes(ctx, "tile", path)
}
