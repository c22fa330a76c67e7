// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package coordinator

import (
	"context"

	"github.com/tomtom215/playermap/internal/logging"
	"github.com/tomtom215/playermap/internal/metrics"
	"github.com/tomtom215/playermap/internal/tracker"
)

// PageFetchFunc fetches one page of items. It returns the page's items and
// the upstream's reported total, or tracker.TotalUnknown when the upstream
// omits a total.
type PageFetchFunc[T any] func(ctx context.Context, page, limit int) ([]T, int, error)

// DrainPaginated repeatedly fetches pages (1-based, fixed page size) and
// concatenates the items until one of:
//
//   - the accumulated count reaches the reported total
//   - the upstream reports no total and returns a short or empty page
//   - the safety ceiling maxTotal is reached
//
// Hitting the ceiling is not an error: the drain logs the truncation and
// returns what was accumulated. This bounds runaway loops when the
// upstream's reported total is absent or unreliable.
func DrainPaginated[T any](ctx context.Context, fetch PageFetchFunc[T], pageSize, maxTotal int) ([]T, error) {
	var items []T

	for page := 1; ; page++ {
		pageItems, total, err := fetch(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)

		if len(items) >= maxTotal {
			metrics.PaginationTruncations.Inc()
			logging.Ctx(ctx).Warn().Int("accumulated", len(items)).Int("ceiling", maxTotal).
				Msg("Pagination drain stopped at safety ceiling")
			return items[:maxTotal], nil
		}

		if total != tracker.TotalUnknown && len(items) >= total {
			return items, nil
		}

		// No total reported: a short page means the data is exhausted.
		if total == tracker.TotalUnknown && len(pageItems) < pageSize {
			return items, nil
		}

		// An empty page with an unreached total means the upstream
		// over-reported; continuing would loop forever.
		if len(pageItems) == 0 {
			return items, nil
		}
	}
}
