// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/playermap/internal/config"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(&config.UpstreamConfig{
		URL:     serverURL,
		Token:   "test-token",
		Domain:  "dom",
		Timeout: 5 * time.Second,
	})
	c.retryBaseDelay = time.Millisecond // keep backoff tests fast
	return c
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", gotAuth)
	}
}

func TestPlayersDecodesPageAndTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/dom/servers/srv-1/players" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q, want 2", got)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q, want 50", got)
		}
		w.Write([]byte(`{
			"players": [
				{"presence_id":"pr1","player_id":"p1","name":"Alex","online":true,
				 "position":{"x":10.5,"y":64,"z":-3}},
				{"presence_id":"pr2","player_id":"p2","name":"Sam","online":false,
				 "last_seen":"2026-08-30T10:00:00Z"}
			],
			"total": 120
		}`))
	}))
	defer srv.Close()

	players, total, err := newTestClient(srv.URL).Players(context.Background(), "dom", "srv-1", 2, 50)
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if total != 120 {
		t.Errorf("total = %d, want 120", total)
	}
	if len(players) != 2 {
		t.Fatalf("got %d players, want 2", len(players))
	}
	if players[0].Position == nil || players[0].Position.X != 10.5 {
		t.Errorf("players[0].Position = %+v", players[0].Position)
	}
	if players[1].Online || players[1].LastSeen == nil {
		t.Errorf("players[1] = %+v, want offline with last_seen", players[1])
	}
}

func TestPlayersMissingTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"players": []}`))
	}))
	defer srv.Close()

	_, total, err := newTestClient(srv.URL).Players(context.Background(), "dom", "srv", 1, 100)
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if total != TotalUnknown {
		t.Errorf("total = %d, want TotalUnknown", total)
	}
}

func TestErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "structured error field wins",
			body:    `{"error":{"code":"E42","message":"server not found"},"message":"generic"}`,
			wantMsg: "server not found",
		},
		{
			name:    "flat message field second",
			body:    `{"message":"maintenance window"}`,
			wantMsg: "maintenance window",
		},
		{
			name:    "unparseable body falls back",
			body:    `<html>gateway error</html>`,
			wantMsg: fallbackErrorMessage,
		},
		{
			name:    "empty body falls back",
			body:    ``,
			wantMsg: fallbackErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newTestClient(srv.URL).Ping(context.Background())
			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("error = %v, want *UpstreamError", err)
			}
			if ue.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", ue.Message, tt.wantMsg)
			}
			if ue.StatusCode != http.StatusNotFound {
				t.Errorf("StatusCode = %d, want 404", ue.StatusCode)
			}
		})
	}
}

func TestTransportErrorWrapped(t *testing.T) {
	// Point at a closed server so the dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := newTestClient(srv.URL).Ping(context.Background())
	if !IsUpstreamError(err) {
		t.Fatalf("error = %v, want upstream error", err)
	}
	var ue *UpstreamError
	errors.As(err, &ue)
	if ue.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failures", ue.StatusCode)
	}
	if ue.Message == "" || ue.Message == fallbackErrorMessage {
		t.Errorf("Message = %q, want the transport error text", ue.Message)
	}
}

func TestRateLimitRetry(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping should succeed after 429 retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("made %d requests, want 3 (two 429s then success)", got)
	}
}

func TestRateLimitExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.maxRetries = 2

	err := c.Ping(context.Background())
	if err == nil {
		t.Fatal("Ping should fail once retries are exhausted")
	}
	if !IsUpstreamError(err) {
		t.Errorf("error = %v, want upstream error", err)
	}
}

func TestRateLimitHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int64
	var gap time.Duration
	var first time.Time

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			first = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			gap = time.Since(first)
			w.Write([]byte(`{"status":"ok"}`))
		}
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if gap < time.Second {
		t.Errorf("retried after %v, want at least the 1s Retry-After", gap)
	}
}

func TestBackoffRespectsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.retryBaseDelay = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Ping(ctx)
	if err == nil {
		t.Fatal("Ping should fail when the context expires mid-backoff")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, backoff wait did not honor the context", elapsed)
	}
}

func TestProfilesLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/dom/profiles/lookup" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"profiles":[{"id":"p1","name":"Alex"},{"id":"p2","name":"Sam"}]}`))
	}))
	defer srv.Close()

	names, err := newTestClient(srv.URL).Profiles(context.Background(), "dom", []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if names["p1"] != "Alex" || names["p2"] != "Sam" {
		t.Errorf("Profiles = %v", names)
	}
}

func TestTileReturnsRawBytes(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/dom/servers/srv/tiles/3/1/2" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	data, err := newTestClient(srv.URL).Tile(context.Background(), "dom", "srv", 3, 1, 2)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Tile bytes = %v, want %v", data, payload)
	}
}
