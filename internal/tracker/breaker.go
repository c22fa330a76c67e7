// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package tracker

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/playermap/internal/logging"
	"github.com/tomtom215/playermap/internal/metrics"
	"github.com/tomtom215/playermap/internal/models"
)

// BreakerClient wraps Client with a circuit breaker so a down or slow
// tracking API fails fast instead of piling up blocked requests.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should mock the underlying client rather than the breaker.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewBreakerClient creates a tracking API client with circuit breaker.
// Configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(client *Client) *BreakerClient {
	cbName := "tracker-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false // Need statistical significance before tripping
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a tracking API call with circuit breaker protection.
func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

func (b *BreakerClient) Ping(ctx context.Context) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.client.Ping(ctx)
	})
	return err
}

func (b *BreakerClient) Servers(ctx context.Context, domain string) ([]models.GameServer, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.Servers(ctx, domain)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.GameServer), nil
}

func (b *BreakerClient) Players(ctx context.Context, domain, serverID string, page, limit int) ([]models.PlayerRecord, int, error) {
	type pageResult struct {
		items []models.PlayerRecord
		total int
	}
	result, err := b.execute(func() (any, error) {
		items, total, err := b.client.Players(ctx, domain, serverID, page, limit)
		if err != nil {
			return nil, err
		}
		return pageResult{items: items, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	pr := result.(pageResult)
	return pr.items, pr.total, nil
}

func (b *BreakerClient) Profiles(ctx context.Context, domain string, ids []string) (map[string]string, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.Profiles(ctx, domain, ids)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

func (b *BreakerClient) Movements(ctx context.Context, domain, serverID, playerID string, start, end time.Time, page, limit int) ([]models.MovementPoint, int, error) {
	type pageResult struct {
		items []models.MovementPoint
		total int
	}
	result, err := b.execute(func() (any, error) {
		items, total, err := b.client.Movements(ctx, domain, serverID, playerID, start, end, page, limit)
		if err != nil {
			return nil, err
		}
		return pageResult{items: items, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	pr := result.(pageResult)
	return pr.items, pr.total, nil
}

func (b *BreakerClient) MapMeta(ctx context.Context, domain, serverID string) (*models.MapMeta, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.MapMeta(ctx, domain, serverID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.MapMeta), nil
}

func (b *BreakerClient) ItemCatalog(ctx context.Context, domain, serverID string) ([]models.CatalogItem, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.ItemCatalog(ctx, domain, serverID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.CatalogItem), nil
}

func (b *BreakerClient) Tile(ctx context.Context, domain, serverID string, zoom, x, y int) ([]byte, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.Tile(ctx, domain, serverID, zoom, x, y)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// stateToString converts a gobreaker state to a readable label.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts a gobreaker state to a metric value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
