// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

// Package models defines the domain types shared across Playermap.
package models

import "time"

// Position is a player's location in game-world coordinates.
// Y (height) may be absent for players reported without valid coordinates.
type Position struct {
	X float64  `json:"x"`
	Y *float64 `json:"y,omitempty"`
	Z float64  `json:"z"`
}

// PlayerRecord is one player's association with one game server.
//
// PresenceID identifies the player-on-server join record; PlayerID is the
// player's stable global identity. A full-list snapshot contains exactly one
// record per presence ID.
//
// LastSeen is required when Online is false and is irrelevant when true.
// Position may be nil for players without valid coordinates.
type PlayerRecord struct {
	PresenceID string     `json:"presence_id"`
	PlayerID   string     `json:"player_id"`
	Name       string     `json:"name"`
	Position   *Position  `json:"position,omitempty"`
	Online     bool       `json:"online"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Ping       int        `json:"ping,omitempty"`
	Currency   int64      `json:"currency,omitempty"`
	Playtime   int64      `json:"playtime_seconds,omitempty"`
}

// SeenWithin reports whether an offline record's last-seen timestamp falls
// within [start, end] inclusive. Online records are always in range.
// Offline records without a last-seen timestamp never match.
func (p *PlayerRecord) SeenWithin(start, end time.Time) bool {
	if p.Online {
		return true
	}
	if p.LastSeen == nil {
		return false
	}
	return !p.LastSeen.Before(start) && !p.LastSeen.After(end)
}

// MovementPoint is one sample of a player's movement path.
// Paths are ordered by timestamp ascending.
type MovementPoint struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// GameServer describes one game server known to the tracking API.
type GameServer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	OnlineCount int    `json:"online_count"`
}

// MapMeta describes the coordinate space and tile pyramid of a server's map.
// The browser map widget consumes this to translate game coordinates into
// lat/lng-like tile coordinates.
type MapMeta struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	OriginX  float64 `json:"origin_x"`
	OriginZ  float64 `json:"origin_z"`
	TileSize int     `json:"tile_size"`
	MinZoom  int     `json:"min_zoom"`
	MaxZoom  int     `json:"max_zoom"`
}

// CatalogItem is one entry of a server's item catalog, used to annotate
// inventory data in the UI.
type CatalogItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}
