// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session identifies converter clients across requests.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/google/uuid"
)

// clientIDKey is the session key holding the client identifier.
const clientIDKey = "client_id"

// New creates a session manager backed by an in-memory store.
func New(isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = memstore.New()

	sm.Lifetime = 24 * time.Hour
	sm.IdleTimeout = 2 * time.Hour
	sm.Cookie.Name = "unitconv_session"
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only
	if !isDev {
		// __Host- cookies must be Secure, host-only and scoped to "/"
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// ClientID returns the identifier of the session's client, creating one on
// first use. The session must have been loaded by LoadAndSave.
func ClientID(ctx context.Context, sm *scs.SessionManager) string {
	if id := sm.GetString(ctx, clientIDKey); id != "" {
		return id
	}
	id := uuid.NewString()
	sm.Put(ctx, clientIDKey, id)
	return id
}
