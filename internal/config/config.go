// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

// Package config provides layered configuration for Playermap using Koanf v2.
//
// Precedence: environment variables > YAML config file > built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Playermap server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Redis      RedisConfig      `koanf:"redis"`
	Cache      CacheConfig      `koanf:"cache"`
	Tiles      TilesConfig      `koanf:"tiles"`
	Downsample DownsampleConfig `koanf:"downsample"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// UpstreamConfig holds connection settings for the player tracking API.
type UpstreamConfig struct {
	// URL is the base URL of the tracking API, without a trailing slash.
	URL string `koanf:"url" validate:"required,url"`

	// Token authenticates the service account against the tracking API.
	// Browser-forwarded credentials are passed per-request and do not
	// replace this token.
	Token string `koanf:"token" validate:"required"`

	// Domain is the auth domain all requests are scoped to.
	Domain string `koanf:"domain" validate:"required"`

	Timeout time.Duration `koanf:"timeout"`

	// PageSize is the page length used when draining paginated endpoints.
	PageSize int `koanf:"page_size" validate:"gte=1,lte=1000"`

	// MaxDrain caps the total records accumulated from a paginated drain.
	MaxDrain int `koanf:"max_drain" validate:"gte=1"`

	// RatePerSecond limits outgoing requests to the tracking API.
	// Zero disables client-side rate limiting.
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// RedisConfig holds settings for the shared cache backend.
// Redis is optional; when unreachable the cache degrades to an
// in-process map for the remainder of the process lifetime.
type RedisConfig struct {
	Addr           string        `koanf:"addr"`
	Password       string        `koanf:"password"`
	DB             int           `koanf:"db"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// CacheConfig holds per-resource freshness windows.
// Hot, volatile data expires fastest.
type CacheConfig struct {
	PlayerListTTL   time.Duration `koanf:"player_list_ttl"`
	PlayerNameTTL   time.Duration `koanf:"player_name_ttl"`
	ServerListTTL   time.Duration `koanf:"server_list_ttl"`
	MapMetaTTL      time.Duration `koanf:"map_meta_ttl"`
	MovementTTL     time.Duration `koanf:"movement_ttl"`
	ItemCatalogTTL  time.Duration `koanf:"item_catalog_ttl"`
	LocalCleanup    time.Duration `koanf:"local_cleanup"`
}

// TilesConfig holds the on-disk tile store settings.
type TilesConfig struct {
	// Dir is the root directory for persisted tile images.
	Dir string `koanf:"dir" validate:"required"`
}

// DownsampleConfig tunes the movement-path downsampler.
// Bracket boundaries are deployment tuning knobs, not contracts; the
// cascading structure (finer near zero, coarser at the extreme) must hold.
type DownsampleConfig struct {
	// FullResolutionUnder is the window size below which no downsampling occurs.
	FullResolutionUnder time.Duration `koanf:"full_resolution_under"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3858,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Upstream: UpstreamConfig{
			URL:           "",
			Token:         "",
			Domain:        "",
			Timeout:       30 * time.Second,
			PageSize:      100,
			MaxDrain:      10000,
			RatePerSecond: 0, // Unlimited
		},
		Redis: RedisConfig{
			Addr:           "", // Empty disables the shared backend entirely
			Password:       "",
			DB:             0,
			ConnectTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			PlayerListTTL:  30 * time.Second, // Matches client auto-refresh cadence
			PlayerNameTTL:  5 * time.Minute,
			ServerListTTL:  15 * time.Minute,
			MapMetaTTL:     time.Hour,
			MovementTTL:    5 * time.Minute,
			ItemCatalogTTL: 30 * time.Minute,
			LocalCleanup:   5 * time.Minute,
		},
		Tiles: TilesConfig{
			Dir: "/data/tiles",
		},
		Downsample: DownsampleConfig{
			FullResolutionUnder: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Cache.PlayerListTTL > c.Cache.PlayerNameTTL {
		return fmt.Errorf("cache.player_list_ttl must not exceed cache.player_name_ttl (hot data expires fastest)")
	}
	return nil
}
