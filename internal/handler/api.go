// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/unitconv/internal/model"
	"github.com/olegiv/unitconv/internal/units"
)

// APIHandler serves the conversion service endpoints.
type APIHandler struct {
	logger *slog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger}
}

// convertBody is the decoded body of POST /convert.
type convertBody struct {
	Value *model.Number `json:"value"`
	From  string        `json:"from"`
	To    string        `json:"to"`
}

// Categories handles GET /categories.
func (h *APIHandler) Categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, units.Categories())
}

// Units handles GET /units?type= and returns the unit names of a category.
func (h *APIHandler) Units(w http.ResponseWriter, r *http.Request) {
	category, ok := h.requireType(w, r)
	if !ok {
		return
	}

	names, err := units.List(category)
	if err != nil {
		h.logger.Error("failed to list units", "type", category, "error", err)
		writeAPIError(w, http.StatusInternalServerError, CodeInternalError, "Failed to list units")
		return
	}

	writeJSON(w, http.StatusOK, names)
}

// Convert handles POST /convert?type= and converts one value.
func (h *APIHandler) Convert(w http.ResponseWriter, r *http.Request) {
	category, ok := h.requireType(w, r)
	if !ok {
		return
	}

	var body convertBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeAPIError(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "Request body too large")
		case errors.Is(err, model.ErrNotANumber):
			writeAPIError(w, http.StatusBadRequest, CodeInvalidValue, "invalid value")
		default:
			writeAPIError(w, http.StatusBadRequest, CodeInvalidBody, "invalid request body")
		}
		return
	}

	from := units.NormalizeUnit(body.From)
	to := units.NormalizeUnit(body.To)
	if from == "" || to == "" {
		writeAPIError(w, http.StatusBadRequest, CodeMissingUnit, "from/to unit is required")
		return
	}
	if body.Value == nil {
		writeAPIError(w, http.StatusBadRequest, CodeInvalidValue, "invalid value")
		return
	}

	value := float64(*body.Value)
	result, err := units.Convert(category, value, from, to)
	if err != nil {
		var unitErr *units.UnitError
		switch {
		case errors.As(err, &unitErr):
			writeAPIError(w, http.StatusBadRequest, CodeInvalidUnit, unitErr.Error())
		case errors.Is(err, units.ErrInvalidValue):
			writeAPIError(w, http.StatusBadRequest, CodeInvalidValue, "invalid value")
		case errors.Is(err, units.ErrUnknownCategory):
			writeAPIError(w, http.StatusForbidden, CodeUnknownType, "Wrong type provided")
		default:
			h.logger.Error("conversion failed", "type", category, "error", err)
			writeAPIError(w, http.StatusInternalServerError, CodeInternalError, "conversion failed")
		}
		return
	}

	canonical, _ := units.Canonical(category)
	h.logger.Debug("converted",
		"type", canonical,
		"from", from,
		"to", to,
		"value", value,
		"result", result)

	writeJSON(w, http.StatusOK, model.ConvertResponse{
		Result: result,
		Value:  value,
		From:   from,
		To:     to,
		Type:   canonical,
	})
}

// requireType reads the type query parameter. A missing type is a bad
// request and an unknown one is refused.
func (h *APIHandler) requireType(w http.ResponseWriter, r *http.Request) (string, bool) {
	category := r.URL.Query().Get(queryType)
	if category == "" {
		writeAPIError(w, http.StatusBadRequest, CodeMissingType, "no type provided")
		return "", false
	}
	if _, ok := units.Canonical(category); !ok {
		writeAPIError(w, http.StatusForbidden, CodeUnknownType, "Wrong type provided")
		return "", false
	}
	return category, true
}
