// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

// Package main is the entry point for the Playermap server.
//
// Playermap is a self-hosted dashboard backend that visualizes player
// activity on game-server world maps. It sits between the browser map UI
// and a player tracking API, caching aggressively so dashboard refreshes
// and window changes never hammer upstream.
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (env > config file > defaults)
//  2. Cache: Redis-backed tiered store, degrading to in-process on failure
//  3. Tracking client: rate-limited HTTP client behind a circuit breaker
//  4. Coordinator: fetch-cache orchestration with in-flight deduplication
//  5. Tile store: on-disk persistence for immutable map tile images
//  6. HTTP server: Chi REST API, supervised by a suture tree
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting connections, waits for in-flight requests (configurable
// timeout) and closes the cache backends.
//
// # Example Usage
//
//	export PLAYERMAP_UPSTREAM__URL=https://tracker.example.com
//	export PLAYERMAP_UPSTREAM__TOKEN=service-account-token
//	export PLAYERMAP_UPSTREAM__DOMAIN=my-community
//	export PLAYERMAP_REDIS__ADDR=localhost:6379
//	./playermap
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/playermap/internal/api"
	"github.com/tomtom215/playermap/internal/cache"
	"github.com/tomtom215/playermap/internal/config"
	"github.com/tomtom215/playermap/internal/coordinator"
	"github.com/tomtom215/playermap/internal/downsample"
	"github.com/tomtom215/playermap/internal/logging"
	"github.com/tomtom215/playermap/internal/supervisor"
	"github.com/tomtom215/playermap/internal/supervisor/services"
	"github.com/tomtom215/playermap/internal/tiles"
	"github.com/tomtom215/playermap/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so this uses the default logger
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("upstream_url", cfg.Upstream.URL).
		Str("domain", cfg.Upstream.Domain).
		Str("tile_dir", cfg.Tiles.Dir).
		Msg("Starting Playermap")

	store := cache.New(cache.Options{
		RedisAddr:      cfg.Redis.Addr,
		RedisPassword:  cfg.Redis.Password,
		RedisDB:        cfg.Redis.DB,
		ConnectTimeout: cfg.Redis.ConnectTimeout,
		LocalCleanup:   cfg.Cache.LocalCleanup,
	})
	defer store.Close()

	client := tracker.NewClient(&cfg.Upstream)
	breaker := tracker.NewBreakerClient(client)
	if err := breaker.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Tracking API unreachable at startup (will retry)")
	} else {
		logging.Info().Msg("Connected to tracking API")
	}

	coord := coordinator.New(store, breaker, cfg.Cache, cfg.Upstream.PageSize, cfg.Upstream.MaxDrain)
	if cfg.Downsample.FullResolutionUnder > 0 {
		table := downsample.DefaultTable()
		table.FullResolutionUnder = cfg.Downsample.FullResolutionUnder
		coord.SetDownsampleTable(table)
	}

	tileStore, err := tiles.NewStore(cfg.Tiles.Dir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize tile store")
	}

	handlers := api.NewHandlers(coord, tileStore, cfg.Upstream.Domain, breaker.Ping)
	router := api.NewRouter(&cfg.Server, handlers)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMaintenanceService(services.NewCacheStatsService(store, 5*time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Playermap stopped gracefully")
}
