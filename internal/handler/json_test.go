// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/unitconv/internal/model"
)

// decodeAPIError validates an error envelope response and returns its body.
func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int) model.ErrorBody {
	t.Helper()

	if w.Code != wantStatus {
		t.Errorf("status code = %d, want %d", w.Code, wantStatus)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	return resp.Error
}

func TestWriteAPIError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		code       string
		message    string
	}{
		{"bad request", http.StatusBadRequest, CodeMissingType, "no type provided"},
		{"forbidden", http.StatusForbidden, CodeUnknownType, "Wrong type provided"},
		{"internal error", http.StatusInternalServerError, CodeInternalError, "Something went wrong"},
		{"empty message", http.StatusBadRequest, CodeInvalidBody, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeAPIError(w, tt.statusCode, tt.code, tt.message)

			body := decodeAPIError(t, w, tt.statusCode)
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if body.Message != tt.message {
				t.Errorf("message = %q, want %q", body.Message, tt.message)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, []string{"m", "km"})

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	if got := w.Body.String(); got != "[\"m\",\"km\"]\n" {
		t.Errorf("body = %q", got)
	}
}

func TestWriteJSON_BareNumber(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, 0.003)

	if got := w.Body.String(); got != "0.003\n" {
		t.Errorf("body = %q, want %q", got, "0.003\n")
	}
}
