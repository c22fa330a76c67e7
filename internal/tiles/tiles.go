// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

// Package tiles persists map tile images to a content-addressed on-disk
// path keyed by (auth domain, server, zoom, x, y), so tile bytes survive
// process restarts.
//
// This is a simpler tier than the main cache store: tiles are treated as
// immutable once fetched, so there is no TTL and no invalidation. The disk
// store is checked before any upstream call for tile requests.
package tiles

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tomtom215/playermap/internal/logging"
	"github.com/tomtom215/playermap/internal/metrics"
)

// Store is the on-disk tile cache rooted at a single directory.
type Store struct {
	root string
}

// NewStore creates a tile store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tile directory %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// path builds the content-addressed location for one tile. Domain and
// server IDs are escaped so upstream-supplied values cannot traverse
// outside the root.
func (s *Store) path(domain, serverID string, zoom, x, y int) string {
	return filepath.Join(s.root,
		url.PathEscape(domain),
		url.PathEscape(serverID),
		fmt.Sprintf("%d", zoom),
		fmt.Sprintf("%d_%d.png", x, y))
}

// Get returns the stored tile bytes, or false when the tile has never been
// fetched. Read errors other than absence are logged and reported as misses
// so the caller falls through to upstream.
func (s *Store) Get(domain, serverID string, zoom, x, y int) ([]byte, bool) {
	data, err := os.ReadFile(s.path(domain, serverID, zoom, x, y))
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(err).Msg("Tiles: read failed")
		}
		metrics.TileCacheMisses.Inc()
		return nil, false
	}
	metrics.TileCacheHits.Inc()
	return data, true
}

// Put persists tile bytes. The write is atomic (temp file + rename) so a
// crash mid-write never leaves a truncated tile behind. Failures are logged
// and swallowed: the disk tier is best-effort, the caller already has the
// bytes to serve.
func (s *Store) Put(domain, serverID string, zoom, x, y int, data []byte) {
	target := s.path(domain, serverID, zoom, x, y)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		logging.Warn().Err(err).Msg("Tiles: mkdir failed")
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tile-*")
	if err != nil {
		logging.Warn().Err(err).Msg("Tiles: temp file failed")
		return
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		logging.Warn().Err(err).Msg("Tiles: write failed")
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		logging.Warn().Err(err).Msg("Tiles: close failed")
		return
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		logging.Warn().Err(err).Msg("Tiles: rename failed")
	}
}
