// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/unitconv/internal/client"
	"github.com/olegiv/unitconv/internal/controller"
	"github.com/olegiv/unitconv/internal/guard"
	"github.com/olegiv/unitconv/internal/middleware"
	"github.com/olegiv/unitconv/internal/units"
)

// newTestApp serves the conversion API and the converter pages from one
// router, with the pages calling the API over HTTP.
func newTestApp(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := client.New(client.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	ctrl := controller.New(c, controller.Options{
		Categories: units.Categories(),
		Aliases:    units.Aliases(),
		Guard:      guard.NewMemory(),
	})
	sm := testSessionManager(t)
	pages := NewConverterHandler(ConverterOptions{
		Controller: ctrl,
		Renderer:   testRenderer(t),
		Sessions:   sm,
		BackendURL: srv.URL,
	})
	api := NewAPIHandler(nil)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(MaxConvertBodySize))
		r.Get(RouteUnits, api.Units)
		r.Post(RouteConvert, api.Convert)
		r.Get(RouteCategories, api.Categories)
	})
	r.Group(func(r chi.Router) {
		r.Use(sm.LoadAndSave)
		r.Use(middleware.Language())
		r.Get(RouteRoot, pages.Home)
		r.Get(RouteCategory, pages.Category)
		r.Post(RouteCategoryConvert, pages.Convert)
	})
	r.NotFound(pages.NotFound)

	return srv
}

// fetch reads the response of do and returns its status and body.
func fetch(t *testing.T, do func() (*http.Response, error)) (int, string) {
	t.Helper()
	resp, err := do()
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestIntegration_ConvertLength(t *testing.T) {
	srv := newTestApp(t)

	status, body := fetch(t, func() (*http.Response, error) {
		return http.Get(srv.URL + "/")
	})
	assert.Equal(t, http.StatusOK, status)
	for _, unit := range []string{"mm", "cm", "m", "km", "in", "ft"} {
		assert.Contains(t, body, `<option value="`+unit+`"`)
	}

	status, body = fetch(t, func() (*http.Response, error) {
		return http.PostForm(srv.URL+"/length/convert", url.Values{
			"value":     {"3"},
			"from_unit": {"m"},
			"to_unit":   {"km"},
		})
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<p id="result">0.003</p>`)
}

func TestIntegration_Temperature(t *testing.T) {
	srv := newTestApp(t)

	status, body := fetch(t, func() (*http.Response, error) {
		return http.PostForm(srv.URL+"/temperature/convert", url.Values{
			"value":     {"100"},
			"from_unit": {"c"},
			"to_unit":   {"f"},
		})
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<p id="result">212</p>`)
}

func TestIntegration_UnknownCategory(t *testing.T) {
	srv := newTestApp(t)

	status, _ := fetch(t, func() (*http.Response, error) {
		return http.Get(srv.URL + "/volume")
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestIntegration_MassAlias(t *testing.T) {
	srv := newTestApp(t)

	status, body := fetch(t, func() (*http.Response, error) {
		return http.Get(srv.URL + "/mass")
	})
	assert.Equal(t, http.StatusOK, status)
	for _, unit := range []string{"g", "kg", "lb", "oz"} {
		assert.Contains(t, body, `<option value="`+unit+`"`)
	}
	assert.Contains(t, body, `action="/weight/convert"`)
}

func TestIntegration_API(t *testing.T) {
	srv := newTestApp(t)

	status, body := fetch(t, func() (*http.Response, error) {
		return http.Post(srv.URL+"/convert?type=length", "application/json",
			strings.NewReader(`{"value":"12.5","from":"m","to":"cm"}`))
	})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"result":1250,"value":12.5,"from":"m","to":"cm","type":"length"}`, body)

	status, body = fetch(t, func() (*http.Response, error) {
		return http.Post(srv.URL+"/convert?type=length", "application/json",
			strings.NewReader(`{"value":"1","from":"m","to":"km","pad":"`+strings.Repeat("x", MaxConvertBodySize)+`"}`))
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Contains(t, body, CodeBodyTooLarge)
}
