// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the wire types exchanged between the converter page
// and the conversion service.
package model

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ConvertRequest is the body of POST /convert as sent by the converter page.
// Value carries the number exactly as the user typed it.
type ConvertRequest struct {
	Value string `json:"value"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ConvertResponse is the successful response of POST /convert.
type ConvertResponse struct {
	Result float64 `json:"result"`
	Value  float64 `json:"value"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Type   string  `json:"type"`
}

// ErrorBody is the payload of an error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON envelope for every service error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrNotANumber is returned when a Number cannot be decoded.
var ErrNotANumber = errors.New("value is not a number")

// Number decodes from either a JSON number or a JSON string holding a number.
// Browsers post form values as strings; API callers tend to send numbers.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return ErrNotANumber
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		s = strings.TrimSpace(raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrNotANumber
	}
	*n = Number(f)
	return nil
}
