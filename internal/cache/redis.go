// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisBackend is the shared networked store. Values arrive already
// serialized; redis handles TTL expiry natively via SET with expiration.
type redisBackend struct {
	client *redis.Client
}

// newRedisBackend connects to redis and verifies the connection with a ping.
// Returns an error when redis is unreachable so the caller can degrade to
// the in-process backend.
func newRedisBackend(addr, password string, db int, connectTimeout time.Duration) (*redisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &redisBackend{client: client}, nil
}

func (r *redisBackend) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *redisBackend) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	// SET with expiration is atomic; no separate EXPIRE round trip.
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisBackend) delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// deleteByPattern enumerates matching keys via SCAN and bulk-deletes them.
// SCAN avoids blocking redis the way KEYS would on large keyspaces.
func (r *redisBackend) deleteByPattern(ctx context.Context, pattern string) error {
	var keys []string

	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisBackend) close() error {
	return r.client.Close()
}
