// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olegiv/unitconv/internal/model"
)

func TestWriteAPIError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteAPIError(rr, http.StatusForbidden, "unknown_type", "unknown conversion type: volume")

	if rr.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "unknown_type" || resp.Error.Message != "unknown conversion type: volume" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	handler := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	// Declared length over the limit is rejected before the handler runs
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{"value":"123456789"}`)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}

	// Unknown length is cut off while reading
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{"value":"123456789"}`))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Error("expected read error for oversized body")
	}

	readErr = nil
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{}`)))
	if readErr != nil {
		t.Errorf("small body: unexpected error %v", readErr)
	}
}
