// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package guard

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AcquireRelease(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	token, err := g.Acquire(ctx, "client-1", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = g.Acquire(ctx, "client-1", time.Minute)
	assert.ErrorIs(t, err, ErrBusy)

	// Other keys are independent
	_, err = g.Acquire(ctx, "client-2", time.Minute)
	require.NoError(t, err)

	require.NoError(t, g.Release(ctx, "client-1", token))
	_, err = g.Acquire(ctx, "client-1", time.Minute)
	assert.NoError(t, err)
}

func TestMemory_StaleTokenRelease(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	_, err := g.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, g.Release(ctx, "k", "not-the-token"))
	_, err = g.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestMemory_Expiry(t *testing.T) {
	g := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := g.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Held())

	now = now.Add(2 * time.Second)
	assert.Equal(t, 0, g.Held())

	_, err = g.Acquire(ctx, "k", time.Second)
	assert.NoError(t, err)
}

func TestMemory_Concurrent(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Acquire(ctx, "same", time.Minute); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestMemory_Closed(t *testing.T) {
	g := NewMemory()
	require.NoError(t, g.Close())

	_, err := g.Acquire(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNew_MemoryWithoutRedisURL(t *testing.T) {
	g, err := New(context.Background(), Config{}, slog.Default())
	require.NoError(t, err)
	_, ok := g.(*Memory)
	assert.True(t, ok)
}

func TestNew_FallbackWhenRedisUnreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	g, err := New(ctx, Config{RedisURL: "redis://127.0.0.1:1/0", FallbackToMemory: true}, logger)
	require.NoError(t, err)
	_, ok := g.(*Memory)
	assert.True(t, ok)
}

func TestNew_NoFallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, Config{RedisURL: "redis://127.0.0.1:1/0"}, slog.Default())
	assert.Error(t, err)
}
