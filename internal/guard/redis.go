// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package guard

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Guard shared by every instance pointing at the same Redis.
type Redis struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

// RedisOptions configures the Redis guard.
type RedisOptions struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Prefix is prepended to all keys (e.g., "unitconv:guard:")
	Prefix string

	// ConnectTimeout is the timeout for establishing a connection
	ConnectTimeout time.Duration
}

// NewRedis creates a Redis guard. It does not contact the server.
func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.ConnectTimeout > 0 {
		redisOpts.DialTimeout = opts.ConnectTimeout
	} else {
		redisOpts.DialTimeout = 3 * time.Second
	}
	if opts.Prefix == "" {
		opts.Prefix = "unitconv:guard:"
	}

	return &Redis{
		client: redis.NewClient(redisOpts),
		prefix: opts.Prefix,
	}, nil
}

// Ping checks the connection.
func (g *Redis) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Acquire implements Guard using SET NX PX.
func (g *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if g.closed.Load() {
		return "", ErrClosed
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrBusy
	}
	return token, nil
}

// Release implements Guard.
func (g *Redis) Release(ctx context.Context, key, token string) error {
	if g.closed.Load() {
		return ErrClosed
	}
	return releaseScript.Run(ctx, g.client, []string{g.prefix + key}, token).Err()
}

// Close implements Guard.
func (g *Redis) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	return g.client.Close()
}
