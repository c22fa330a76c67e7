// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/playermap/internal/tracker"
)

// intPages simulates a paginated upstream over a dataset of n sequential ints.
// reportTotal controls whether the upstream includes a total count.
func intPages(n int, reportTotal bool) (PageFetchFunc[int], *int) {
	calls := new(int)
	fetch := func(_ context.Context, page, limit int) ([]int, int, error) {
		*calls++
		start := (page - 1) * limit
		if start >= n {
			if reportTotal {
				return nil, n, nil
			}
			return nil, tracker.TotalUnknown, nil
		}
		end := start + limit
		if end > n {
			end = n
		}
		items := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, i)
		}
		if reportTotal {
			return items, n, nil
		}
		return items, tracker.TotalUnknown, nil
	}
	return fetch, calls
}

func TestDrainPaginatedExactPageCount(t *testing.T) {
	// 237 records at page size 100: pages of 100, 100, 37 and no fourth call.
	fetch, calls := intPages(237, true)

	items, err := DrainPaginated(context.Background(), fetch, 100, 10000)
	if err != nil {
		t.Fatalf("DrainPaginated: %v", err)
	}
	if len(items) != 237 {
		t.Errorf("drained %d items, want 237", len(items))
	}
	if *calls != 3 {
		t.Errorf("made %d page fetches, want exactly 3", *calls)
	}
	if items[0] != 0 || items[236] != 236 {
		t.Errorf("items out of order: first=%d last=%d", items[0], items[236])
	}
}

func TestDrainPaginatedUnknownTotalStopsOnShortPage(t *testing.T) {
	fetch, calls := intPages(150, false)

	items, err := DrainPaginated(context.Background(), fetch, 100, 10000)
	if err != nil {
		t.Fatalf("DrainPaginated: %v", err)
	}
	if len(items) != 150 {
		t.Errorf("drained %d items, want 150", len(items))
	}
	// Second page is short (50 < 100), so the drain stops there.
	if *calls != 2 {
		t.Errorf("made %d page fetches, want 2", *calls)
	}
}

func TestDrainPaginatedCeiling(t *testing.T) {
	// Upstream with no total and endless full pages must stop exactly at
	// the ceiling, without an error.
	calls := 0
	fetch := func(_ context.Context, page, limit int) ([]int, int, error) {
		calls++
		items := make([]int, limit)
		return items, tracker.TotalUnknown, nil
	}

	items, err := DrainPaginated[int](context.Background(), fetch, 100, 500)
	if err != nil {
		t.Fatalf("DrainPaginated: %v", err)
	}
	if len(items) != 500 {
		t.Errorf("drained %d items, want exactly the 500 ceiling", len(items))
	}
	if calls != 5 {
		t.Errorf("made %d page fetches, want 5", calls)
	}
}

func TestDrainPaginatedOverReportedTotal(t *testing.T) {
	// Upstream claims 500 records but runs dry after 120. The empty page
	// terminates the drain instead of looping forever.
	fetch := func(_ context.Context, page, limit int) ([]int, int, error) {
		start := (page - 1) * limit
		if start >= 120 {
			return nil, 500, nil
		}
		end := start + limit
		if end > 120 {
			end = 120
		}
		return make([]int, end-start), 500, nil
	}

	items, err := DrainPaginated[int](context.Background(), fetch, 100, 10000)
	if err != nil {
		t.Fatalf("DrainPaginated: %v", err)
	}
	if len(items) != 120 {
		t.Errorf("drained %d items, want 120", len(items))
	}
}

func TestDrainPaginatedEmptyDataset(t *testing.T) {
	fetch, calls := intPages(0, true)

	items, err := DrainPaginated(context.Background(), fetch, 100, 10000)
	if err != nil {
		t.Fatalf("DrainPaginated: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("drained %d items, want 0", len(items))
	}
	if *calls != 1 {
		t.Errorf("made %d page fetches, want 1", *calls)
	}
}

func TestDrainPaginatedPropagatesError(t *testing.T) {
	wantErr := errors.New("upstream down")
	fetch := func(_ context.Context, page, limit int) ([]int, int, error) {
		if page == 2 {
			return nil, 0, wantErr
		}
		return make([]int, limit), 300, nil
	}

	_, err := DrainPaginated[int](context.Background(), fetch, 100, 10000)
	if !errors.Is(err, wantErr) {
		t.Errorf("DrainPaginated error = %v, want %v", err, wantErr)
	}
}
