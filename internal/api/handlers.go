// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/playermap/internal/models"
	"github.com/tomtom215/playermap/internal/tiles"
	"github.com/tomtom215/playermap/internal/tracker"
)

// DataSource is the coordinator surface the handlers consume.
// Implemented by *coordinator.Coordinator in production and by fakes in tests.
type DataSource interface {
	Servers(ctx context.Context, domain string) ([]models.GameServer, error)
	Players(ctx context.Context, domain, serverID string, start, end *time.Time, loadAll bool) ([]models.PlayerRecord, error)
	MovementPath(ctx context.Context, domain, serverID, playerID string, start, end time.Time) ([]models.MovementPoint, error)
	MapMeta(ctx context.Context, domain, serverID string) (*models.MapMeta, error)
	ItemCatalog(ctx context.Context, domain, serverID string) ([]models.CatalogItem, error)
	ResolveNames(ctx context.Context, domain string, ids []string) (map[string]string, error)
	Tile(ctx context.Context, domain, serverID string, zoom, x, y int) ([]byte, error)
	InvalidateServer(ctx context.Context, domain, serverID string)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	data   DataSource
	tiles  *tiles.Store
	domain string

	// ping verifies upstream connectivity for the readiness probe.
	// Optional; nil means readiness only reports process liveness.
	ping func(ctx context.Context) error
}

// NewHandlers creates the handler set. The domain is the auth domain all
// requests are scoped to; per-request domain selection is the upstream
// auth plumbing's concern, not this service's.
func NewHandlers(data DataSource, tileStore *tiles.Store, domain string, ping func(ctx context.Context) error) *Handlers {
	return &Handlers{
		data:   data,
		tiles:  tileStore,
		domain: domain,
		ping:   ping,
	}
}

// writeErr maps coordinator errors to HTTP responses: upstream failures
// become 502 with the extracted message, everything else is a 500.
func writeErr(rw *ResponseWriter, err error) {
	if tracker.IsUpstreamError(err) {
		rw.UpstreamError(err)
		return
	}
	rw.InternalError(err.Error())
}

// parseTime accepts RFC 3339 or unix seconds.
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}

// parseWindow extracts the optional [start, end] query window.
// Both bounds must be present for a window to apply.
func parseWindow(r *http.Request) (start, end *time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		return nil, nil, nil
	}

	s, err := parseTime(startStr)
	if err != nil {
		return nil, nil, err
	}
	e, err := parseTime(endStr)
	if err != nil {
		return nil, nil, err
	}
	return &s, &e, nil
}

// HealthLive reports process liveness.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// HealthReady reports readiness, including upstream connectivity when a
// ping function is configured.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			rw.Error(http.StatusServiceUnavailable, ErrCodeExternalServiceFail,
				"tracking API unreachable: "+err.Error())
			return
		}
	}

	rw.Success(map[string]string{"status": "ready"})
}

// Servers returns the game-server list for the auth domain.
func (h *Handlers) Servers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	servers, err := h.data.Servers(r.Context(), h.domain)
	if err != nil {
		writeErr(rw, err)
		return
	}
	rw.SuccessList(servers, len(servers))
}

// Players returns the player list for one server, filtered to the
// requested time window (see coordinator.Players for the policy).
//
// Query parameters:
//   - start, end: optional window bounds (RFC 3339 or unix seconds)
//   - all: "true" returns the raw full snapshot, ignoring the window
func (h *Handlers) Players(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	serverID := chi.URLParam(r, "serverID")

	start, end, err := parseWindow(r)
	if err != nil {
		rw.BadRequest("invalid start/end: use RFC 3339 or unix seconds")
		return
	}
	loadAll := r.URL.Query().Get("all") == "true"

	players, err := h.data.Players(r.Context(), h.domain, serverID, start, end, loadAll)
	if err != nil {
		writeErr(rw, err)
		return
	}
	rw.SuccessList(players, len(players))
}

// MovementPath returns a player's downsampled movement path for a window.
// Both start and end are required.
func (h *Handlers) MovementPath(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	serverID := chi.URLParam(r, "serverID")
	playerID := chi.URLParam(r, "playerID")

	start, end, err := parseWindow(r)
	if err != nil || start == nil || end == nil {
		rw.BadRequest("start and end are required: RFC 3339 or unix seconds")
		return
	}

	points, err := h.data.MovementPath(r.Context(), h.domain, serverID, playerID, *start, *end)
	if err != nil {
		writeErr(rw, err)
		return
	}
	rw.SuccessList(points, len(points))
}

// MapMeta returns the map metadata for one server.
func (h *Handlers) MapMeta(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	serverID := chi.URLParam(r, "serverID")

	meta, err := h.data.MapMeta(r.Context(), h.domain, serverID)
	if err != nil {
		writeErr(rw, err)
		return
	}
	rw.Success(meta)
}

// ItemCatalog returns the item catalog for one server.
func (h *Handlers) ItemCatalog(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	serverID := chi.URLParam(r, "serverID")

	items, err := h.data.ItemCatalog(r.Context(), h.domain, serverID)
	if err != nil {
		writeErr(rw, err)
		return
	}
	rw.SuccessList(items, len(items))
}

// ResolveNames resolves a batch of player IDs to display names.
// Request body: {"ids": ["...", ...]}
func (h *Handlers) ResolveNames(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body: expected {\"ids\": [...]}")
		return
	}
	if len(req.IDs) == 0 {
		rw.BadRequest("ids must not be empty")
		return
	}

	names, err := h.data.ResolveNames(r.Context(), h.domain, req.IDs)
	if err != nil {
		writeErr(rw, err)
		return
	}
	rw.Success(names)
}

// Tile serves one map tile image, checking the on-disk store before
// fetching from upstream. Fetched tiles are persisted for future requests;
// tiles are immutable so there is no expiry.
func (h *Handlers) Tile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	serverID := chi.URLParam(r, "serverID")

	zoom, errZ := strconv.Atoi(chi.URLParam(r, "zoom"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errZ != nil || errX != nil || errY != nil {
		rw.BadRequest("zoom, x and y must be integers")
		return
	}

	data, ok := h.tiles.Get(h.domain, serverID, zoom, x, y)
	if !ok {
		var err error
		data, err = h.data.Tile(r.Context(), h.domain, serverID, zoom, x, y)
		if err != nil {
			writeErr(rw, err)
			return
		}
		h.tiles.Put(h.domain, serverID, zoom, x, y, data)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// InvalidateServer clears every cached resource for one server, forcing
// the next reads to hit upstream.
func (h *Handlers) InvalidateServer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	serverID := chi.URLParam(r, "serverID")

	h.data.InvalidateServer(r.Context(), h.domain, serverID)
	rw.Success(map[string]string{"status": "invalidated"})
}
