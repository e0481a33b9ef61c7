// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olegiv/unitconv/internal/client"
	"github.com/olegiv/unitconv/internal/controller"
)

func TestLogAndHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		statusCode int
		logMsg     string
	}{
		{"bad request", "Bad Request", http.StatusBadRequest, "validation failed"},
		{"not found", "Not Found", http.StatusNotFound, "resource missing"},
		{"internal error", "Internal Server Error", http.StatusInternalServerError, "render failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			logAndHTTPError(w, tt.message, tt.statusCode, tt.logMsg)

			if w.Code != tt.statusCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.statusCode)
			}
			if body := w.Body.String(); body == "" {
				t.Error("body should not be empty")
			}
		})
	}
}

func TestLogAndInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	logAndInternalError(w, "template failed", "error", errors.New("missing field"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestPageStatus(t *testing.T) {
	convertErr := func(err error) error {
		return fmt.Errorf("%w: %w", controller.ErrConvert, err)
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, http.StatusOK},
		{"unknown category", fmt.Errorf("%w: %q", controller.ErrUnknownCategory, "volume"), http.StatusNotFound},
		{"invalid value", controller.ErrInvalidValue, http.StatusUnprocessableEntity},
		{"unknown unit", fmt.Errorf("%w: %q", controller.ErrUnknownUnit, "parsec"), http.StatusUnprocessableEntity},
		{"pending", controller.ErrSubmitPending, http.StatusConflict},
		{"load failure", fmt.Errorf("%w: %w", controller.ErrLoadUnits, client.ErrUnavailable), http.StatusBadGateway},
		{"rejected by service", convertErr(&client.StatusError{StatusCode: http.StatusBadRequest}), http.StatusUnprocessableEntity},
		{"service error", convertErr(&client.StatusError{StatusCode: http.StatusInternalServerError}), http.StatusBadGateway},
		{"service rate limit", convertErr(&client.StatusError{StatusCode: http.StatusTooManyRequests}), http.StatusBadGateway},
		{"timeout", convertErr(client.ErrTimeout), http.StatusBadGateway},
		{"controls missing", controller.ErrControlsMissing, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageStatus(tt.err); got != tt.want {
				t.Errorf("pageStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPageMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"none", nil, ""},
		{"pending", controller.ErrSubmitPending, "A conversion is already in progress. Please wait."},
		{"controls missing", controller.ErrControlsMissing, "The converter form is not available."},
		{"unexpected", errors.New("boom"), "Something went wrong. Please try again."},
		{
			"service message",
			fmt.Errorf("%w: %w", controller.ErrConvert, &client.StatusError{StatusCode: 400, Message: "invalid to unit: kn (did you mean km?)"}),
			"Conversion failed: invalid to unit: kn (did you mean km?)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageMessage("en", tt.err); got != tt.want {
				t.Errorf("pageMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<script>alert(1)</script>bad unit", "bad unit"},
		{"<b>m</b> &amp; km", "m & km"},
		{"  spread \n over\tlines ", "spread over lines"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizeMessage(tt.in); got != tt.want {
			t.Errorf("sanitizeMessage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeMessage_Truncates(t *testing.T) {
	got := sanitizeMessage(strings.Repeat("a", 500))
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected truncation marker, got %q", got)
	}
	if len(got) > maxRelayedMessageLen+len("…") {
		t.Errorf("len = %d, want <= %d", len(got), maxRelayedMessageLen+len("…"))
	}
}
