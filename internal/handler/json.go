// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/olegiv/unitconv/internal/middleware"
)

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set(HeaderContentType, "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAPIError writes a JSON error in the {"error":{"code","message"}} envelope.
func writeAPIError(w http.ResponseWriter, statusCode int, code, message string) {
	middleware.WriteAPIError(w, statusCode, code, message)
}
