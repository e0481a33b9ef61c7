// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package units implements the unit tables and conversion rules served by
// the conversion service.
package units

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Category names understood by the conversion service.
const (
	Length      = "length"
	Weight      = "weight"
	Temperature = "temperature"
)

// maxSuggestDistance is the largest edit distance still offered as a suggestion.
const maxSuggestDistance = 2

var (
	// ErrUnknownCategory is returned for a category outside the known set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownUnit is returned when a unit does not belong to the category.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrInvalidValue is returned for NaN or infinite input values.
	ErrInvalidValue = errors.New("invalid value")
)

// UnitError describes a unit that the category does not know.
type UnitError struct {
	Role       string // "from" or "to"
	Unit       string
	Suggestion string
}

func (e *UnitError) Error() string {
	msg := "invalid " + e.Role + " unit: " + e.Unit
	if e.Suggestion != "" {
		msg += " (did you mean " + e.Suggestion + "?)"
	}
	return msg
}

// Unwrap lets errors.Is match ErrUnknownUnit.
func (e *UnitError) Unwrap() error {
	return ErrUnknownUnit
}

// linearTable converts through a single base unit.
type linearTable struct {
	listed []string
	toBase map[string]float64
}

var lengthTable = linearTable{
	listed: []string{"mm", "cm", "m", "km", "in", "ft"},
	// base: meter
	toBase: map[string]float64{
		"mm": 0.001,
		"cm": 0.01,
		"m":  1,
		"km": 1000,
		"in": 0.0254,
		"ft": 0.3048,
		"yd": 0.9144,
		"mi": 1609.344,
	},
}

var weightTable = linearTable{
	listed: []string{"g", "kg", "lb", "oz"},
	// base: kilogram
	toBase: map[string]float64{
		"mg": 0.000001,
		"g":  0.001,
		"kg": 1,
		"oz": 0.028349523125,
		"lb": 0.45359237,
	},
}

var temperatureListed = []string{"c", "f", "k"}

// temperatureAliases maps every accepted spelling to its scale.
var temperatureAliases = map[string]string{
	"c":          "c",
	"°c":         "c",
	"celsius":    "c",
	"f":          "f",
	"°f":         "f",
	"fahrenheit": "f",
	"k":          "k",
	"kelvin":     "k",
}

// categoryAliases maps alternative category names to canonical ones.
var categoryAliases = map[string]string{
	"mass": Weight,
}

// Categories returns the canonical category names in display order.
func Categories() []string {
	return []string{Length, Weight, Temperature}
}

// Aliases returns the alternative category names and the categories they
// stand for.
func Aliases() map[string]string {
	out := make(map[string]string, len(categoryAliases))
	for alias, category := range categoryAliases {
		out[alias] = category
	}
	return out
}

// Canonical resolves a category name or alias to its canonical name.
func Canonical(category string) (string, bool) {
	switch category {
	case Length, Weight, Temperature:
		return category, true
	}
	if canonical, ok := categoryAliases[category]; ok {
		return canonical, true
	}
	return "", false
}

// List returns the units offered for selection in a category.
// The returned slice is a copy and may be modified by the caller.
func List(category string) ([]string, error) {
	canonical, ok := Canonical(category)
	if !ok {
		return nil, ErrUnknownCategory
	}

	var listed []string
	switch canonical {
	case Length:
		listed = lengthTable.listed
	case Weight:
		listed = weightTable.listed
	case Temperature:
		listed = temperatureListed
	}

	out := make([]string, len(listed))
	copy(out, listed)
	return out, nil
}

// NormalizeUnit lower-cases and trims a unit name before lookup.
func NormalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// Convert converts value between two units of the given category.
// Unit names are normalized before lookup.
func Convert(category string, value float64, from, to string) (float64, error) {
	canonical, ok := Canonical(category)
	if !ok {
		return 0, ErrUnknownCategory
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrInvalidValue
	}

	from = NormalizeUnit(from)
	to = NormalizeUnit(to)

	switch canonical {
	case Length:
		return lengthTable.convert(value, from, to)
	case Weight:
		return weightTable.convert(value, from, to)
	default:
		return convertTemperature(value, from, to)
	}
}

func (t linearTable) convert(value float64, from, to string) (float64, error) {
	fromRatio, ok := t.toBase[from]
	if !ok {
		return 0, &UnitError{Role: "from", Unit: from, Suggestion: suggest(from, t.candidates())}
	}
	toRatio, ok := t.toBase[to]
	if !ok {
		return 0, &UnitError{Role: "to", Unit: to, Suggestion: suggest(to, t.candidates())}
	}
	return (value * fromRatio) / toRatio, nil
}

// candidates lists the listed units first, then the remaining table keys sorted.
func (t linearTable) candidates() []string {
	out := make([]string, 0, len(t.toBase))
	out = append(out, t.listed...)

	var rest []string
	for name := range t.toBase {
		if !contains(t.listed, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func convertTemperature(value float64, from, to string) (float64, error) {
	fromScale, ok := temperatureAliases[from]
	if !ok {
		return 0, &UnitError{Role: "from", Unit: from, Suggestion: suggest(from, temperatureCandidates())}
	}
	toScale, ok := temperatureAliases[to]
	if !ok {
		return 0, &UnitError{Role: "to", Unit: to, Suggestion: suggest(to, temperatureCandidates())}
	}
	if fromScale == toScale {
		return value, nil
	}

	var c float64
	switch fromScale {
	case "c":
		c = value
	case "f":
		c = (value - 32) * 5 / 9
	case "k":
		c = value - 273.15
	}

	switch toScale {
	case "f":
		return c*9/5 + 32, nil
	case "k":
		return c + 273.15, nil
	default:
		return c, nil
	}
}

func temperatureCandidates() []string {
	return append(append([]string{}, temperatureListed...), "celsius", "fahrenheit", "kelvin")
}

// suggest returns the closest candidate within maxSuggestDistance, or "".
// Ties go to the earlier candidate.
func suggest(unit string, candidates []string) string {
	if unit == "" {
		return ""
	}
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(unit, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
