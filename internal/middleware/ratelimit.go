// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultMaxLimiters bounds the number of per-client limiters kept in memory.
const DefaultMaxLimiters = 10000

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// len returns the number of cached limiters.
func (lc *limiterCache[K]) len() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.limiters)
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// GlobalRateLimiter limits conversion requests per client IP.
type GlobalRateLimiter struct {
	cache        *limiterCache[string]
	maxSize      int
	denyHTML     http.Handler
	skipLoopback bool
}

// NewGlobalRateLimiter creates a new per-IP rate limiter.
func NewGlobalRateLimiter(rps float64, burst int) *GlobalRateLimiter {
	return &GlobalRateLimiter{
		cache:   newLimiterCache[string](rps, burst),
		maxSize: DefaultMaxLimiters,
	}
}

// SetHTMLDenyHandler replaces the plain text 429 answer of HTMLMiddleware.
// The handler must write the status itself.
func (rl *GlobalRateLimiter) SetHTMLDenyHandler(h http.Handler) {
	rl.denyHTML = h
}

// SkipLoopback exempts loopback clients, such as the converter pages calling
// the conversion API of the same process. Only the socket peer counts: a
// request carrying client IP headers is always limited.
func (rl *GlobalRateLimiter) SkipLoopback() {
	rl.skipLoopback = true
}

// allow reports whether the request may proceed and the client IP it was counted for.
func (rl *GlobalRateLimiter) allow(r *http.Request) (bool, string) {
	ip := getClientIP(r)
	if rl.skipLoopback && isDirectLoopback(r) {
		return true, ip
	}
	return rl.cache.get(ip).Allow(), ip
}

// Cleanup drops every limiter once the cache holds more than its maximum.
// It is run periodically by the scheduler.
func (rl *GlobalRateLimiter) Cleanup() {
	if rl.cache.clearIfExceeds(rl.maxSize) {
		slog.Info("rate limiter cache cleared", "max_size", rl.maxSize)
	}
}

// Size returns the number of tracked clients.
func (rl *GlobalRateLimiter) Size() int {
	return rl.cache.len()
}

// Middleware returns the rate limiting middleware for API routes (returns JSON errors).
func (rl *GlobalRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, ip := rl.allow(r)
			if !ok {
				slog.Warn("api rate limit exceeded", "ip", ip, "path", r.URL.Path)
				WriteAPIError(w, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTMLMiddleware returns the rate limiting middleware for the converter form.
func (rl *GlobalRateLimiter) HTMLMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, ip := rl.allow(r)
			if !ok {
				slog.Warn("form rate limit exceeded", "ip", ip, "path", r.URL.Path)
				if rl.denyHTML != nil {
					rl.denyHTML.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Real-IP header (set by reverse proxies)
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	// X-Forwarded-For can contain multiple IPs; the first one is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
