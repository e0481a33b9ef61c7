// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net"
	"net/http"
)

// ContextKeyPeerAddr is the context key for the socket peer address.
const ContextKeyPeerAddr ContextKey = "peer_addr"

// forwardingHeaders are the client IP headers honoured by chi RealIP.
var forwardingHeaders = []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"}

// PeerAddr records the socket peer address of the request.
// It must run before chi RealIP, which rewrites RemoteAddr from headers.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyPeerAddr, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPeerAddr returns the address recorded by PeerAddr, or RemoteAddr when
// PeerAddr did not run.
func GetPeerAddr(r *http.Request) string {
	if addr, ok := r.Context().Value(ContextKeyPeerAddr).(string); ok && addr != "" {
		return addr
	}
	return r.RemoteAddr
}

// isDirectLoopback reports whether the request came straight from a loopback
// socket without any client IP header.
func isDirectLoopback(r *http.Request) bool {
	for _, h := range forwardingHeaders {
		if r.Header.Get(h) != "" {
			return false
		}
	}

	host := GetPeerAddr(r)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
