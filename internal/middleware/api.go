// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/olegiv/unitconv/internal/model"
)

// Error codes written by the middleware.
const (
	CodeRateLimited  = "rate_limit_exceeded"
	CodeBodyTooLarge = "body_too_large"
	CodeTimeout      = "timeout"
)

// WriteAPIError writes a JSON error response in the service error envelope.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorBody{Code: code, Message: message},
	})
}

// APITimeoutHandler answers a timed out API request.
var APITimeoutHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	WriteAPIError(w, http.StatusServiceUnavailable, CodeTimeout, "Request timeout")
})

// MaxBodySize limits request bodies to n bytes.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > n {
				WriteAPIError(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
