// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package downsample

import (
	"testing"
	"time"

	"github.com/tomtom215/playermap/internal/models"
)

// path builds n points spaced `step` apart starting at a fixed origin.
func path(n int, step time.Duration) []models.MovementPoint {
	origin := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	points := make([]models.MovementPoint, n)
	for i := range points {
		points[i] = models.MovementPoint{
			X:         float64(i),
			Z:         float64(i),
			Timestamp: origin.Add(time.Duration(i) * step),
		}
	}
	return points
}

func TestIntervalFor(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		window time.Duration
		want   time.Duration
	}{
		{5 * time.Minute, 0}, // below full-resolution threshold
		{15 * time.Minute, 10 * time.Second},
		{30 * time.Minute, 10 * time.Second},
		{time.Hour, 30 * time.Second},
		{6 * time.Hour, time.Minute},
		{24 * time.Hour, 2 * time.Minute},
		{72 * time.Hour, 5 * time.Minute},
		{7 * 24 * time.Hour, 10 * time.Minute},
		{30 * 24 * time.Hour, 10 * time.Minute}, // past the last bracket
	}

	for _, tt := range tests {
		if got := table.IntervalFor(tt.window); got != tt.want {
			t.Errorf("IntervalFor(%v) = %v, want %v", tt.window, got, tt.want)
		}
	}
}

func TestPointsKeepsEndpoints(t *testing.T) {
	points := path(100, time.Second)
	kept := Points(points, time.Hour, DefaultTable())

	if len(kept) < 2 {
		t.Fatalf("kept %d points, want at least the endpoints", len(kept))
	}
	if kept[0] != points[0] {
		t.Error("first point must be kept")
	}
	if kept[len(kept)-1] != points[len(points)-1] {
		t.Error("last point must be kept")
	}
}

func TestPointsSpacing(t *testing.T) {
	// 1 hour of points at 1s spacing, 1h window -> 30s interval
	points := path(3600, time.Second)
	table := DefaultTable()
	kept := Points(points, time.Hour, table)

	interval := table.IntervalFor(time.Hour)
	// Interior points must honor the minimum spacing; the final endpoint
	// is exempt because it is kept unconditionally.
	for i := 1; i < len(kept)-1; i++ {
		gap := kept[i].Timestamp.Sub(kept[i-1].Timestamp)
		if gap < interval {
			t.Fatalf("gap %v between kept[%d] and kept[%d] is under the %v interval", gap, i-1, i, interval)
		}
	}

	if len(kept) >= len(points) {
		t.Errorf("downsampling kept %d of %d points, expected a reduction", len(kept), len(points))
	}
}

func TestPointsShortWindowUnchanged(t *testing.T) {
	points := path(600, time.Second)
	kept := Points(points, 10*time.Minute, DefaultTable())

	if len(kept) != len(points) {
		t.Errorf("window under full-resolution threshold kept %d of %d points, want all", len(kept), len(points))
	}
}

func TestPointsTinyInputUnchanged(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		points := path(n, time.Hour)
		kept := Points(points, 7*24*time.Hour, DefaultTable())
		if len(kept) != n {
			t.Errorf("input of %d points returned %d, want unchanged", n, len(kept))
		}
	}
}

func TestPointsSparseInputUnchanged(t *testing.T) {
	// Points already spaced wider than the interval pass through whole.
	points := path(10, time.Hour)
	kept := Points(points, 24*time.Hour, DefaultTable())

	if len(kept) != len(points) {
		t.Errorf("sparse input kept %d of %d points, want all", len(kept), len(points))
	}
}
