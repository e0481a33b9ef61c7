// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging builds the application logger and keeps recent warnings and
// errors in memory so they can be inspected without shell access.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Event categories.
const (
	CategoryUnits   = "units"
	CategoryConvert = "convert"
	CategoryConfig  = "config"
	CategoryGuard   = "guard"
	CategoryProbe   = "probe"
	CategorySystem  = "system"
)

// DefaultCapacity is the number of events kept by NewEventLogHandler.
const DefaultCapacity = 200

// Event is one log record kept by the EventLogHandler.
type Event struct {
	Time     time.Time         `json:"time"`
	Level    string            `json:"level"`
	Category string            `json:"category"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// eventRing is a fixed-size ring shared by a handler and its derivatives.
type eventRing struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

func newEventRing(capacity int) *eventRing {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &eventRing{events: make([]Event, capacity)}
}

func (r *eventRing) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = e
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns the events newest first.
func (r *eventRing) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.events)
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.events)) % len(r.events)
		out = append(out, r.events[idx])
	}
	return out
}

// EventLogHandler is a slog.Handler that wraps another handler and also keeps
// WARN and ERROR records in a bounded in-memory event log.
type EventLogHandler struct {
	inner  slog.Handler
	ring   *eventRing
	level  slog.Level // Minimum level to keep (default: WARN)
	attrs  []slog.Attr
	prefix string // Group prefix for attribute keys
}

// NewEventLogHandler creates an EventLogHandler keeping DefaultCapacity events at WARN and above.
func NewEventLogHandler(inner slog.Handler) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, slog.LevelWarn, DefaultCapacity)
}

// NewEventLogHandlerWithLevel creates an EventLogHandler with a custom minimum level and capacity.
func NewEventLogHandlerWithLevel(inner slog.Handler, level slog.Level, capacity int) *EventLogHandler {
	return &EventLogHandler{
		inner: inner,
		ring:  newEventRing(capacity),
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.inner.Enabled(ctx, r.Level) {
		err = h.inner.Handle(ctx, r)
	}

	if r.Level >= h.level {
		h.ring.add(h.toEvent(r))
	}

	return err
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		merged = append(merged, a)
	}
	return &EventLogHandler{
		inner:  h.inner.WithAttrs(attrs),
		ring:   h.ring,
		level:  h.level,
		attrs:  merged,
		prefix: h.prefix,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &EventLogHandler{
		inner:  h.inner.WithGroup(name),
		ring:   h.ring,
		level:  h.level,
		attrs:  h.attrs,
		prefix: h.prefix + name + ".",
	}
}

// Events returns the kept events, newest first.
func (h *EventLogHandler) Events() []Event {
	return h.ring.snapshot()
}

func (h *EventLogHandler) toEvent(r slog.Record) Event {
	metadata := make(map[string]string)
	category := ""

	collect := func(a slog.Attr) {
		if a.Key == "category" || strings.HasSuffix(a.Key, ".category") {
			category = a.Value.String()
			return
		}
		metadata[a.Key] = a.Value.String()
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		a.Key = h.prefix + a.Key
		collect(a)
		return true
	})

	if category == "" {
		category = inferCategory(r.Message)
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return Event{
		Time:     r.Time,
		Level:    levelName(r.Level),
		Category: category,
		Message:  r.Message,
		Metadata: metadata,
	}
}

// inferCategory guesses a category from common words in the message.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "unit"):
		return CategoryUnits
	case strings.Contains(msg, "conver"):
		return CategoryConvert
	case strings.Contains(msg, "config") || strings.Contains(msg, "setting"):
		return CategoryConfig
	case strings.Contains(msg, "guard") || strings.Contains(msg, "redis"):
		return CategoryGuard
	case strings.Contains(msg, "probe") || strings.Contains(msg, "not ready"):
		return CategoryProbe
	default:
		return CategorySystem
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	default:
		return "info"
	}
}

// ParseLevel maps a config string to a slog level. Unknown values give info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the application logger writing to w: text in development,
// JSON otherwise. The returned handler exposes the recent event log.
func New(w io.Writer, level string, isDev bool) (*slog.Logger, *EventLogHandler) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var inner slog.Handler
	if isDev {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}

	events := NewEventLogHandler(inner)
	return slog.New(events), events
}
