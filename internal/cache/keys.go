// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package cache

import "strings"

// keyPrefix namespaces every Playermap cache key so different deployments
// can share one redis database without collisions.
const keyPrefix = "playermap"

// keySeparator joins the fixed prefix, resource category and variable parts.
const keySeparator = ":"

// Resource categories. Each category gets its own TTL and can be invalidated
// independently via DeleteByPattern.
const (
	CategoryPlayerList  = "players"
	CategoryPlayerName  = "name"
	CategoryServerList  = "servers"
	CategoryMapMeta     = "map"
	CategoryMovement    = "movement"
	CategoryItemCatalog = "items"
)

// Key builds a namespaced cache key:
//
//	Key(CategoryPlayerList, domain, serverID) -> "playermap:players:<domain>:<serverID>"
func Key(category string, parts ...string) string {
	elems := make([]string, 0, len(parts)+2)
	elems = append(elems, keyPrefix, category)
	elems = append(elems, parts...)
	return strings.Join(elems, keySeparator)
}

// Pattern builds a glob pattern matching every key under a category scope:
//
//	Pattern(CategoryPlayerList, domain) -> "playermap:players:<domain>:*"
func Pattern(category string, parts ...string) string {
	return Key(category, parts...) + keySeparator + "*"
}
