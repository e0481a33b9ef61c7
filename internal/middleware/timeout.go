// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Timeout wraps an http.Handler and applies a request timeout.
// If the handler has not written anything when the timeout expires, onTimeout
// answers instead (a plain 503 when nil). Writes after that are discarded.
func Timeout(timeout time.Duration, onTimeout http.Handler) func(http.Handler) http.Handler {
	if onTimeout == nil {
		onTimeout = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Request timeout"))
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			panicked := make(chan any, 1)
			tw := &timeoutWriter{ResponseWriter: w}

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
				// A handler that gave up on the deadline without writing still gets the timeout answer
				if ctx.Err() == nil {
					tw.mu.Lock()
					defer tw.mu.Unlock()
					if !tw.wroteHeader {
						tw.copyHeader()
					}
					return
				}
			case p := <-panicked:
				// Re-raise on the serving goroutine so Recoverer sees it
				panic(p)
			case <-ctx.Done():
			}

			tw.mu.Lock()
			defer tw.mu.Unlock()
			tw.timedOut = true
			if !tw.wroteHeader {
				onTimeout.ServeHTTP(w, r)
			}
		})
	}
}

// timeoutWriter tracks whether headers were written and drops writes after a timeout.
// The handler sets headers on its own map, which is copied to the response
// only when the handler writes, so it never shares a map with onTimeout.
type timeoutWriter struct {
	http.ResponseWriter
	h           http.Header
	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header {
	if tw.h == nil {
		tw.h = make(http.Header)
	}
	return tw.h
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	tw.copyHeader()
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(code)
}

// copyHeader moves the handler's headers to the response. Callers hold mu.
func (tw *timeoutWriter) copyHeader() {
	dst := tw.ResponseWriter.Header()
	for k, vv := range tw.h {
		dst[k] = vv
	}
}
