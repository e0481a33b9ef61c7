// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteUnits lists the units of a category.
	RouteUnits = "/units"
	// RouteConvert converts a value between two units.
	RouteConvert = "/convert"
	// RouteCategories lists the known categories.
	RouteCategories = "/categories"

	// RouteHealth is the full health report.
	RouteHealth = "/health"
	// RouteHealthLive is the liveness probe.
	RouteHealthLive = "/health/live"
	// RouteHealthReady is the readiness probe.
	RouteHealthReady = "/health/ready"

	// RouteDebugEvents exposes recent warnings and errors.
	RouteDebugEvents = "/debug/events"

	// RouteStatic is the embedded asset prefix.
	RouteStatic = "/static"

	// URLParamCategory is the chi parameter naming the converter category.
	URLParamCategory = "category"
	// RouteCategory is the converter page of one category.
	RouteCategory = "/{" + URLParamCategory + "}"
	// RouteCategoryConvert is the converter form submit.
	RouteCategoryConvert = RouteCategory + "/convert"
)

// Query and form field names.
const (
	queryType     = "type"
	fieldValue    = "value"
	fieldFromUnit = "from_unit"
	fieldToUnit   = "to_unit"
)

// Error codes of the conversion API.
const (
	CodeMissingType   = "missing_type"
	CodeUnknownType   = "unknown_type"
	CodeInvalidBody   = "invalid_body"
	CodeMissingUnit   = "missing_unit"
	CodeInvalidValue  = "invalid_value"
	CodeInvalidUnit   = "invalid_unit"
	CodeBodyTooLarge  = "body_too_large"
	CodeInternalError = "internal_error"
)

// MaxConvertBodySize bounds the JSON body of a conversion request.
const MaxConvertBodySize = 4 << 10

// HeaderContentType is the Content-Type HTTP header name.
const HeaderContentType = "Content-Type"
