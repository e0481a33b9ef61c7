// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/unitconv/internal/model"
)

func TestAPIHandler_Units(t *testing.T) {
	h := NewAPIHandler(nil)

	tests := []struct {
		name string
		typ  string
		want []string
	}{
		{"length", "length", []string{"mm", "cm", "m", "km", "in", "ft"}},
		{"weight", "weight", []string{"g", "kg", "lb", "oz"}},
		{"mass alias", "mass", []string{"g", "kg", "lb", "oz"}},
		{"temperature", "temperature", []string{"c", "f", "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/units?type="+tt.typ, nil)
			w := httptest.NewRecorder()

			h.Units(w, req)

			assertStatus(t, w.Code, http.StatusOK)
			var got []string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIHandler_Units_MissingType(t *testing.T) {
	h := NewAPIHandler(nil)
	w := httptest.NewRecorder()

	h.Units(w, httptest.NewRequest(http.MethodGet, "/units", nil))

	body := decodeAPIError(t, w, http.StatusBadRequest)
	assert.Equal(t, CodeMissingType, body.Code)
	assert.Equal(t, "no type provided", body.Message)
}

func TestAPIHandler_Units_UnknownType(t *testing.T) {
	h := NewAPIHandler(nil)
	w := httptest.NewRecorder()

	h.Units(w, httptest.NewRequest(http.MethodGet, "/units?type=volume", nil))

	body := decodeAPIError(t, w, http.StatusForbidden)
	assert.Equal(t, CodeUnknownType, body.Code)
	assert.Equal(t, "Wrong type provided", body.Message)
}

func TestAPIHandler_Categories(t *testing.T) {
	h := NewAPIHandler(nil)
	w := httptest.NewRecorder()

	h.Categories(w, httptest.NewRequest(http.MethodGet, "/categories", nil))

	assertStatus(t, w.Code, http.StatusOK)
	var got []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"length", "weight", "temperature"}, got)
}

func TestAPIHandler_Convert(t *testing.T) {
	h := NewAPIHandler(nil)

	tests := []struct {
		name   string
		typ    string
		body   string
		result float64
		from   string
		to     string
		canon  string
	}{
		{"string value", "length", `{"value":"12.5","from":"m","to":"cm"}`, 1250, "m", "cm", "length"},
		{"number value", "length", `{"value":3,"from":"m","to":"km"}`, 0.003, "m", "km", "length"},
		{"normalizes units", "length", `{"value":"2","from":" M ","to":"CM"}`, 200, "m", "cm", "length"},
		{"temperature", "temperature", `{"value":"100","from":"c","to":"f"}`, 212, "c", "f", "temperature"},
		{"mass alias", "mass", `{"value":1000,"from":"g","to":"kg"}`, 1, "g", "kg", "weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/convert?type="+tt.typ, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Convert(w, req)

			assertStatus(t, w.Code, http.StatusOK)
			var resp model.ConvertResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.InDelta(t, tt.result, resp.Result, 1e-9)
			assert.Equal(t, tt.from, resp.From)
			assert.Equal(t, tt.to, resp.To)
			assert.Equal(t, tt.canon, resp.Type)
		})
	}
}

func TestAPIHandler_Convert_Errors(t *testing.T) {
	h := NewAPIHandler(nil)

	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"missing type", "/convert", `{"value":1,"from":"m","to":"km"}`, http.StatusBadRequest, CodeMissingType, "no type provided"},
		{"unknown type", "/convert?type=volume", `{"value":1,"from":"l","to":"ml"}`, http.StatusForbidden, CodeUnknownType, "Wrong type provided"},
		{"not json", "/convert?type=length", `value=1`, http.StatusBadRequest, CodeInvalidBody, "invalid request body"},
		{"missing from", "/convert?type=length", `{"value":1,"to":"km"}`, http.StatusBadRequest, CodeMissingUnit, "from/to unit is required"},
		{"blank to", "/convert?type=length", `{"value":1,"from":"m","to":"  "}`, http.StatusBadRequest, CodeMissingUnit, "from/to unit is required"},
		{"missing value", "/convert?type=length", `{"from":"m","to":"km"}`, http.StatusBadRequest, CodeInvalidValue, "invalid value"},
		{"null value", "/convert?type=length", `{"value":null,"from":"m","to":"km"}`, http.StatusBadRequest, CodeInvalidValue, "invalid value"},
		{"text value", "/convert?type=length", `{"value":"abc","from":"m","to":"km"}`, http.StatusBadRequest, CodeInvalidValue, "invalid value"},
		{"NaN value", "/convert?type=length", `{"value":"NaN","from":"m","to":"km"}`, http.StatusBadRequest, CodeInvalidValue, "invalid value"},
		{"unknown unit", "/convert?type=length", `{"value":1,"from":"m","to":"kn"}`, http.StatusBadRequest, CodeInvalidUnit, "invalid to unit: kn (did you mean km?)"},
		{"unit without suggestion", "/convert?type=weight", `{"value":1,"from":"parsec","to":"kg"}`, http.StatusBadRequest, CodeInvalidUnit, "invalid from unit: parsec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Convert(w, req)

			body := decodeAPIError(t, w, tt.wantStatus)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestAPIHandler_Convert_BodyTooLarge(t *testing.T) {
	h := NewAPIHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/convert?type=length",
		strings.NewReader(`{"value":"1","from":"m","to":"km","padding":"`+strings.Repeat("x", 64)+`"}`))
	w := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(w, req.Body, 16)

	h.Convert(w, req)

	body := decodeAPIError(t, w, http.StatusRequestEntityTooLarge)
	assert.Equal(t, CodeBodyTooLarge, body.Code)
}
