// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

/*
client.go - Core tracking API client

This file provides the Client struct and HTTP communication layer for the
third-party player tracking API (source of truth for positions, inventory
and movement events).

Client features:
  - HTTP client with configurable timeout
  - Bearer token authentication
  - Automatic HTTP 429 rate limit handling with exponential backoff
  - Client-side request rate limiting (golang.org/x/time/rate)
  - JSON response parsing with typed envelopes
  - Context support for cancellation and timeouts

Related files:
  - endpoints.go: typed API methods (players, movements, servers, tiles)
  - breaker.go: circuit breaker wrapper
  - errors.go: upstream error extraction
*/
package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/playermap/internal/config"
	"github.com/tomtom215/playermap/internal/metrics"
)

// maxErrorBodySize limits the response body read for error reporting.
// Prevents unbounded allocation on large upstream error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client handles communication with the tracking API.
//
// Thread safety: safe for concurrent use. Each request creates its own
// HTTP request; the rate limiter and HTTP client are concurrency-safe.
type Client struct {
	baseURL        string
	token          string
	client         *http.Client
	limiter        *rate.Limiter // nil when client-side rate limiting is disabled
	maxRetries     int           // Maximum retries for HTTP 429
	retryBaseDelay time.Duration // Base delay for exponential backoff
}

// NewClient creates a tracking API client from configuration.
func NewClient(cfg *config.UpstreamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Client{
		baseURL:        cfg.URL,
		token:          cfg.Token,
		client:         &http.Client{Timeout: timeout},
		limiter:        limiter,
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

// doRequestWithRateLimit performs an HTTP request with automatic 429 handling.
// Implements exponential backoff (1s, 2s, 4s, 8s, 16s), honoring Retry-After.
// The context cancels backoff waits. The body is rewound on every attempt.
func (c *Client) doRequestWithRateLimit(ctx context.Context, method, reqURL string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var reqBody io.Reader = http.NoBody
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited - close body and retry with backoff
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// get performs a GET against an API path, decoding the JSON response into
// result. The endpoint label is used for metrics and error messages.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, result any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.RecordUpstreamRequest(endpoint, err, time.Since(start))
		return wrapTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	err = c.decodeResponse(endpoint, resp, result)
	metrics.RecordUpstreamRequest(endpoint, err, time.Since(start))
	return err
}

// getBytes performs a GET returning the raw response body (tile images).
func (c *Client) getBytes(ctx context.Context, endpoint, path string) ([]byte, error) {
	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		metrics.RecordUpstreamRequest(endpoint, err, time.Since(start))
		return nil, wrapTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		upErr := errorFromResponse(endpoint, resp)
		metrics.RecordUpstreamRequest(endpoint, upErr, time.Since(start))
		return nil, upErr
	}

	data, err := io.ReadAll(resp.Body)
	metrics.RecordUpstreamRequest(endpoint, err, time.Since(start))
	if err != nil {
		return nil, wrapTransportError(endpoint, err)
	}
	return data, nil
}

// post performs a POST with a JSON payload, decoding the response into result.
func (c *Client) post(ctx context.Context, endpoint, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		metrics.RecordUpstreamRequest(endpoint, err, time.Since(start))
		return wrapTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	err = c.decodeResponse(endpoint, resp, result)
	metrics.RecordUpstreamRequest(endpoint, err, time.Since(start))
	return err
}

// decodeResponse checks HTTP status and decodes the JSON body into result.
func (c *Client) decodeResponse(endpoint string, resp *http.Response, result any) error {
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(endpoint, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// Ping verifies connectivity to the tracking API.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "ping", "/v1/ping", nil, &out)
}
