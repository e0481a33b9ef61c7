// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/olegiv/unitconv/internal/logging"
	"github.com/olegiv/unitconv/internal/scheduler"
)

// Limits for GET /debug/events.
const (
	DefaultEventsLimit = 50
	MaxEventsLimit     = logging.DefaultCapacity
)

// EventSource provides recent log events, newest first.
type EventSource interface {
	Events() []logging.Event
}

// JobSource lists scheduled jobs.
type JobSource interface {
	Jobs() []scheduler.JobInfo
}

// EventsHandler serves the diagnostic event log.
type EventsHandler struct {
	events EventSource
	jobs   JobSource
}

// NewEventsHandler creates a new EventsHandler. jobs may be nil.
func NewEventsHandler(events EventSource, jobs JobSource) *EventsHandler {
	return &EventsHandler{events: events, jobs: jobs}
}

// EventView is an event with its metadata formatted for reading.
type EventView struct {
	logging.Event
	Details string `json:"details,omitempty"`
}

// EventsResponse is the body of GET /debug/events.
type EventsResponse struct {
	Events     []EventView         `json:"events"`
	Total      int                 `json:"total"`
	Level      string              `json:"level,omitempty"`
	Category   string              `json:"category,omitempty"`
	Levels     []string            `json:"levels"`
	Categories []string            `json:"categories"`
	Jobs       []scheduler.JobInfo `json:"jobs,omitempty"`
}

// List handles GET /debug/events. The optional level, category and limit
// query parameters filter the result.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level := strings.ToLower(q.Get("level"))
	category := strings.ToLower(q.Get("category"))
	limit := parseLimit(q.Get("limit"))

	var matched []EventView
	total := 0
	for _, e := range h.events.Events() {
		if level != "" && e.Level != level {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		total++
		if len(matched) < limit {
			matched = append(matched, EventView{Event: e, Details: formatMetadata(e.Metadata)})
		}
	}
	if matched == nil {
		matched = []EventView{}
	}

	resp := EventsResponse{
		Events:   matched,
		Total:    total,
		Level:    level,
		Category: category,
		Levels:   []string{"warning", "error"},
		Categories: []string{
			logging.CategoryUnits,
			logging.CategoryConvert,
			logging.CategoryConfig,
			logging.CategoryGuard,
			logging.CategoryProbe,
			logging.CategorySystem,
		},
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.Jobs()
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultEventsLimit
	}
	return min(n, MaxEventsLimit)
}

// formatMetadata converts event metadata to readable text.
// Example: {"path":"/length","error":"timeout"} -> "error: timeout, path: /length"
func formatMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}

	// Sort keys for consistent output order
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+metadata[key])
	}
	return strings.Join(parts, ", ")
}
