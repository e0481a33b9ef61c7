// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package controller

import (
	"context"
	"sync"
)

// Stable identifiers of the converter form controls.
const (
	FromSelectID = "from_unit"
	ToSelectID   = "to_unit"
	SubmitID     = "convert_btn"
	ValueFieldID = "value"
)

// Option is one entry of a unit selection. Value and Label are both the unit name.
type Option struct {
	Value string
	Label string
}

// Select is an ordered option list with one selected value.
// The first option added to an empty select becomes selected.
type Select struct {
	ID       string
	options  []Option
	selected string
}

// NewSelect creates an empty select with the given identifier.
func NewSelect(id string) *Select {
	return &Select{ID: id}
}

// Clear removes every option and the selection.
func (s *Select) Clear() {
	s.options = nil
	s.selected = ""
}

// Add appends an option.
func (s *Select) Add(o Option) {
	s.options = append(s.options, o)
	if s.selected == "" {
		s.selected = o.Value
	}
}

// Options returns a copy of the options in order.
func (s *Select) Options() []Option {
	out := make([]Option, len(s.options))
	copy(out, s.options)
	return out
}

// Len returns the number of options.
func (s *Select) Len() int {
	return len(s.options)
}

// Has reports whether value is one of the options.
func (s *Select) Has(value string) bool {
	for _, o := range s.options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Choose selects value if it is one of the options.
func (s *Select) Choose(value string) bool {
	if !s.Has(value) {
		return false
	}
	s.selected = value
	return true
}

// Selected returns the selected value, or "" for an empty select.
func (s *Select) Selected() string {
	return s.selected
}

// IsSelected reports whether value is the current selection.
func (s *Select) IsSelected(value string) bool {
	return s.selected == value
}

// Input is the form state read when the submit control is activated.
type Input struct {
	Value string
	From  string
	To    string
}

// SubmitFunc handles activation of the submit control.
type SubmitFunc func(ctx context.Context, in Input) error

// Button is the submit control. Until a handler is registered activation does
// nothing, and while a handler runs the button is disabled.
type Button struct {
	ID string

	mu      sync.Mutex
	handler SubmitFunc
	pending bool
}

// NewButton creates a button with the given identifier.
func NewButton(id string) *Button {
	return &Button{ID: id}
}

// Register installs the activation handler.
func (b *Button) Register(fn SubmitFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = fn
}

// Registered reports whether a handler is installed.
func (b *Button) Registered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler != nil
}

// Disabled reports whether activation would be refused or ignored.
func (b *Button) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler == nil || b.pending
}

// Activate runs the handler. It returns nil without doing anything when no
// handler is registered and ErrSubmitPending while a previous run is in flight.
func (b *Button) Activate(ctx context.Context, in Input) error {
	b.mu.Lock()
	if b.handler == nil {
		b.mu.Unlock()
		return nil
	}
	if b.pending {
		b.mu.Unlock()
		return ErrSubmitPending
	}
	b.pending = true
	handler := b.handler
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.pending = false
		b.mu.Unlock()
	}()

	return handler(ctx, in)
}

// Result is a conversion shown to the user.
type Result struct {
	Value    float64
	Input    string
	From     string
	To       string
	Category string
}

// Page is the page-lifetime state of one converter form.
// A nil select or button means the control is absent from the page.
type Page struct {
	From   *Select
	To     *Select
	Submit *Button

	ClientID string
	Category string
	Value    string
	Result   *Result

	// Err is the last initialization or submit failure shown to the user.
	Err error
	// Retry is set when reloading the page may fix Err.
	Retry bool
}

// NewPage creates a page with every converter control present.
func NewPage() *Page {
	return &Page{
		From:   NewSelect(FromSelectID),
		To:     NewSelect(ToSelectID),
		Submit: NewButton(SubmitID),
	}
}
