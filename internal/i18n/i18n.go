// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n translates the converter page and its user-facing errors.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Catalog holds all translations for all supported languages.
type Catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
	supported    []language.Tag
	defaultLang  string
	logger       *slog.Logger
}

var catalog *Catalog

// SupportedLanguages lists the page languages. The first one is the default.
var SupportedLanguages = []string{"en", "ru"}

// Init loads the embedded catalogues. defaultLang replaces "en" as the
// fallback language when it is supported.
func Init(logger *slog.Logger, defaultLang string) error {
	c := &Catalog{
		translations: make(map[string]map[string]string),
		defaultLang:  SupportedLanguages[0],
		logger:       logger,
	}
	if IsSupported(defaultLang) {
		c.defaultLang = strings.ToLower(defaultLang)
	} else if defaultLang != "" && logger != nil {
		logger.Warn("unsupported default language, using fallback",
			"language", defaultLang, "fallback", c.defaultLang)
	}

	// The default language goes first so the matcher prefers it on ties
	ordered := append([]string{c.defaultLang}, slices.DeleteFunc(slices.Clone(SupportedLanguages), func(l string) bool {
		return l == c.defaultLang
	})...)
	tags := make([]language.Tag, 0, len(ordered))
	for _, lang := range ordered {
		tags = append(tags, language.MustParse(lang))
	}
	c.supported = tags
	c.matcher = language.NewMatcher(tags)

	for _, lang := range SupportedLanguages {
		if err := c.loadLanguage(lang); err != nil {
			return fmt.Errorf("failed to load language %s: %w", lang, err)
		}
	}

	catalog = c
	if logger != nil {
		logger.Info("i18n initialized", "languages", SupportedLanguages, "default", c.defaultLang)
	}
	return nil
}

func (c *Catalog) loadLanguage(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msgFile MessageFile
	if err := json.Unmarshal(data, &msgFile); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.translations[lang] = make(map[string]string, len(msgFile.Messages))
	for _, msg := range msgFile.Messages {
		c.translations[lang][msg.ID] = msg.Translation
	}

	if c.logger != nil {
		c.logger.Debug("loaded translations", "language", lang, "count", len(msgFile.Messages))
	}
	return nil
}

// T translates a message key to the specified language.
// Missing keys fall back to the default language, then to the key itself.
// Arguments are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	if catalog == nil {
		return key
	}

	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	translation, ok := catalog.translations[lang][key]
	if !ok {
		translation, ok = catalog.translations[catalog.defaultLang][key]
		if !ok {
			return key
		}
		if lang != catalog.defaultLang && catalog.logger != nil {
			catalog.logger.Debug("missing translation, using default", "key", key, "lang", lang)
		}
	}

	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// DefaultLanguage returns the fallback language code.
func DefaultLanguage() string {
	if catalog == nil {
		return SupportedLanguages[0]
	}
	return catalog.defaultLang
}

// GetSupportedLanguages returns the list of supported page languages.
func GetSupportedLanguages() []string {
	return SupportedLanguages
}

// MatchLanguage finds the best supported language for an Accept-Language
// header or a single language code.
func MatchLanguage(acceptLang string) string {
	if catalog == nil {
		return SupportedLanguages[0]
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return catalog.defaultLang
		}
		tags = []language.Tag{tag}
	}

	_, idx, conf := catalog.matcher.Match(tags...)
	if conf == language.No {
		return catalog.defaultLang
	}
	if idx >= 0 && idx < len(catalog.supported) {
		return catalog.supported[idx].String()
	}
	return catalog.defaultLang
}

// IsSupported checks if a language code is supported.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, strings.ToLower(lang))
}

// TranslationCount returns the number of translations loaded for a language.
func TranslationCount(lang string) int {
	if catalog == nil {
		return 0
	}

	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return len(catalog.translations[lang])
}
