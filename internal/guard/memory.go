// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Guard.
type Memory struct {
	mu     sync.Mutex
	leases map[string]lease
	closed atomic.Bool
	now    func() time.Time
}

type lease struct {
	token     string
	expiresAt time.Time
}

// NewMemory creates an empty in-process guard.
func NewMemory() *Memory {
	return &Memory{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire implements Guard.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (string, error) {
	if m.closed.Load() {
		return "", ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expiresAt) {
		return "", ErrBusy
	}

	// Drop expired leases while we hold the lock
	for k, l := range m.leases {
		if !now.Before(l.expiresAt) {
			delete(m.leases, k)
		}
	}

	token := uuid.NewString()
	m.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return token, nil
}

// Release implements Guard.
func (m *Memory) Release(_ context.Context, key, token string) error {
	if m.closed.Load() {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.leases[key]; ok && l.token == token {
		delete(m.leases, key)
	}
	return nil
}

// Held returns the number of live leases.
func (m *Memory) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := m.now()
	for _, l := range m.leases {
		if now.Before(l.expiresAt) {
			n++
		}
	}
	return n
}

// Close implements Guard.
func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}
