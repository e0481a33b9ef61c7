// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/olegiv/unitconv/internal/i18n"
)

// ContextKeyLanguage is the context key for the page language code.
const ContextKeyLanguage ContextKey = "language"

// LanguageCookieName is the cookie name for language preference.
const LanguageCookieName = "unitconv_lang"

// Language detects the page language and stores its code in the context.
// Priority order:
// 1. Query parameter ?lang=XX (explicit switch, updates the cookie)
// 2. Cookie preference
// 3. Accept-Language header
// 4. Default language
func Language() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := ""

			if q := strings.ToLower(r.URL.Query().Get("lang")); q != "" && i18n.IsSupported(q) {
				SetLanguageCookie(w, q, r.TLS != nil)
				lang = q
			}

			if lang == "" {
				if cookie, err := r.Cookie(LanguageCookieName); err == nil && i18n.IsSupported(cookie.Value) {
					lang = strings.ToLower(cookie.Value)
				}
			}

			if lang == "" {
				if accept := r.Header.Get("Accept-Language"); accept != "" {
					lang = i18n.MatchLanguage(accept)
				}
			}

			if lang == "" {
				lang = i18n.DefaultLanguage()
			}

			ctx := context.WithValue(r.Context(), ContextKeyLanguage, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLanguage returns the page language code of the request,
// or the default language when the middleware did not run.
func GetLanguage(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage()
}

// SetLanguageCookie sets the language preference cookie.
func SetLanguageCookie(w http.ResponseWriter, langCode string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     LanguageCookieName,
		Value:    langCode,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
