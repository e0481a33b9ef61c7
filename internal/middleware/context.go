// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides the HTTP middleware of the converter server.
package middleware

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string
