// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guard provides short-lived exclusive leases used to keep a client
// from running two conversions at the same time.
package guard

import (
	"context"
	"log/slog"
	"time"
)

// Guard hands out exclusive leases on string keys.
// All implementations must be thread-safe.
type Guard interface {
	// Acquire takes the lease on key for at most ttl.
	// Returns ErrBusy if another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, err error)

	// Release gives the lease back. Releasing with a stale token is a no-op.
	Release(ctx context.Context, key, token string) error

	// Close releases any resources held by the guard.
	Close() error
}

// Error represents an error type for guard operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrBusy indicates the key is held by someone else.
	ErrBusy Error = "lease is held"

	// ErrClosed indicates the guard has been closed.
	ErrClosed Error = "guard closed"
)

// Config holds configuration for guard creation.
type Config struct {
	// RedisURL selects the Redis guard when set (e.g. redis://localhost:6379/0).
	RedisURL string

	// Prefix is prepended to Redis keys.
	Prefix string

	// FallbackToMemory uses the memory guard if Redis is unreachable.
	FallbackToMemory bool
}

// New creates a guard from cfg. Without a Redis URL, or when Redis cannot be
// reached and FallbackToMemory is set, a memory guard is returned.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Guard, error) {
	if cfg.RedisURL == "" {
		return NewMemory(), nil
	}

	rg, err := NewRedis(RedisOptions{URL: cfg.RedisURL, Prefix: cfg.Prefix})
	if err == nil {
		err = rg.Ping(ctx)
		if err == nil {
			return rg, nil
		}
		_ = rg.Close()
	}

	if !cfg.FallbackToMemory {
		return nil, err
	}
	logger.Warn("redis unavailable, using in-process submit guard", "error", err)
	return NewMemory(), nil
}
