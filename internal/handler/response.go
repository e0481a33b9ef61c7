// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/unitconv/internal/client"
	"github.com/olegiv/unitconv/internal/controller"
	"github.com/olegiv/unitconv/internal/i18n"
)

// messageSanitizer strips markup from messages relayed from the conversion service.
var messageSanitizer = bluemonday.StrictPolicy()

// maxRelayedMessageLen caps a relayed service message.
const maxRelayedMessageLen = 200

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// sanitizeMessage reduces a service message to plain text. The template
// escapes it again on output, so entities are decoded here.
func sanitizeMessage(msg string) string {
	clean := html.UnescapeString(messageSanitizer.Sanitize(msg))
	clean = strings.Join(strings.Fields(clean), " ")
	if len(clean) > maxRelayedMessageLen {
		clean = strings.ToValidUTF8(clean[:maxRelayedMessageLen], "") + "…"
	}
	return clean
}

// pageStatus maps a controller error to the status of the rendered page.
func pageStatus(err error) int {
	var se *client.StatusError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, controller.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrInvalidValue), errors.Is(err, controller.ErrUnknownUnit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, controller.ErrSubmitPending):
		return http.StatusConflict
	case errors.Is(err, controller.ErrConvert) && errors.As(err, &se) && !se.Temporary():
		// The service rejected the input itself
		return http.StatusUnprocessableEntity
	case errors.Is(err, controller.ErrLoadUnits), errors.Is(err, controller.ErrConvert):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// pageMessage translates a controller error into the message shown on the page.
func pageMessage(lang string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, controller.ErrInvalidValue):
		return i18n.T(lang, "error.invalid_value")
	case errors.Is(err, controller.ErrUnknownUnit):
		return i18n.T(lang, "error.unknown_unit")
	case errors.Is(err, controller.ErrSubmitPending):
		return i18n.T(lang, "error.pending")
	case errors.Is(err, controller.ErrControlsMissing):
		return i18n.T(lang, "error.controls_missing")
	case errors.Is(err, controller.ErrLoadUnits):
		return i18n.T(lang, "error.load_units", causeMessage(lang, err))
	case errors.Is(err, controller.ErrConvert):
		return i18n.T(lang, "error.convert", causeMessage(lang, err))
	default:
		return i18n.T(lang, "error.internal")
	}
}

// causeMessage describes why a call to the conversion service failed.
func causeMessage(lang string, err error) string {
	var se *client.StatusError
	switch {
	case errors.As(err, &se):
		if msg := sanitizeMessage(se.Message); msg != "" {
			return msg
		}
		return http.StatusText(se.StatusCode)
	case errors.Is(err, client.ErrTimeout):
		return i18n.T(lang, "error.timeout")
	case errors.Is(err, client.ErrMalformedResponse):
		return i18n.T(lang, "error.malformed")
	default:
		return i18n.T(lang, "error.unavailable")
	}
}
