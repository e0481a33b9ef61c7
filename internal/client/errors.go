// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable is returned when the service cannot be reached.
	ErrUnavailable = errors.New("conversion service unavailable")
	// ErrTimeout is returned when the service does not answer in time.
	ErrTimeout = errors.New("conversion service timed out")
	// ErrMalformedResponse is returned when a response body has an unexpected shape.
	ErrMalformedResponse = errors.New("malformed response from conversion service")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("conversion service returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("conversion service returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
