// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

// Package downsample reduces chronologically sorted movement paths to a
// visually sufficient subset. The minimum spacing between kept points scales
// with the viewing window: a fixed interval would flood short windows with
// redundant points or starve long windows of detail.
package downsample

import (
	"time"

	"github.com/tomtom215/playermap/internal/models"
)

// Bracket maps a minimum window duration to the minimum spacing between
// kept points for windows of at least that size.
type Bracket struct {
	WindowAtLeast time.Duration
	Interval      time.Duration
}

// Table is a cascading interval table: finer granularity for short windows,
// coarser for long ones. Brackets must be ordered by WindowAtLeast ascending.
//
// The exact breakpoints are deployment tuning defaults, not contracts; only
// the cascading structure is load-bearing.
type Table struct {
	// FullResolutionUnder disables downsampling entirely for windows
	// shorter than this, regardless of point count.
	FullResolutionUnder time.Duration

	Brackets []Bracket
}

// DefaultTable returns the default interval cascade.
func DefaultTable() Table {
	return Table{
		FullResolutionUnder: 15 * time.Minute,
		Brackets: []Bracket{
			{WindowAtLeast: 15 * time.Minute, Interval: 10 * time.Second},
			{WindowAtLeast: time.Hour, Interval: 30 * time.Second},
			{WindowAtLeast: 6 * time.Hour, Interval: time.Minute},
			{WindowAtLeast: 24 * time.Hour, Interval: 2 * time.Minute},
			{WindowAtLeast: 72 * time.Hour, Interval: 5 * time.Minute},
			{WindowAtLeast: 7 * 24 * time.Hour, Interval: 10 * time.Minute},
		},
	}
}

// IntervalFor returns the minimum spacing for the given window duration,
// or zero when the window is below the full-resolution threshold.
func (t Table) IntervalFor(window time.Duration) time.Duration {
	if window < t.FullResolutionUnder {
		return 0
	}

	interval := time.Duration(0)
	for _, b := range t.Brackets {
		if window >= b.WindowAtLeast {
			interval = b.Interval
		}
	}
	return interval
}

// Points reduces a sorted movement path for the given viewing window.
//
// The input must already be sorted by timestamp ascending; no sorting is
// performed here. The first and last points are always kept: endpoints
// anchor the path visually and temporally. An interior point is kept only
// if its timestamp is at least one interval past the last kept point.
// Single forward pass, O(n).
//
// Inputs with fewer than 3 points, and any window below the table's
// full-resolution threshold, are returned unchanged.
func Points(points []models.MovementPoint, window time.Duration, table Table) []models.MovementPoint {
	if len(points) < 3 {
		return points
	}

	interval := table.IntervalFor(window)
	if interval <= 0 {
		return points
	}

	kept := make([]models.MovementPoint, 0, len(points))
	kept = append(kept, points[0])
	lastKept := points[0].Timestamp

	for _, p := range points[1 : len(points)-1] {
		if p.Timestamp.Sub(lastKept) >= interval {
			kept = append(kept, p)
			lastKept = p.Timestamp
		}
	}

	kept = append(kept, points[len(points)-1])
	return kept
}
