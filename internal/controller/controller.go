// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package controller drives the converter form: it resolves the unit category
// from the navigation path, loads the unit list from the conversion service
// into both selections and submits conversion requests.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/unitconv/internal/guard"
	"github.com/olegiv/unitconv/internal/model"
)

// DefaultCategory is used when the navigation path is empty.
const DefaultCategory = "length"

// DefaultSubmitTTL bounds how long a client's submit lease may be held.
const DefaultSubmitTTL = 30 * time.Second

var (
	// ErrControlsMissing is returned when the page lacks a unit selection.
	ErrControlsMissing = errors.New("converter controls missing")
	// ErrUnknownCategory is returned for a path outside the known categories.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrLoadUnits wraps every failure to load the unit list.
	ErrLoadUnits = errors.New("failed to load units")
	// ErrInvalidValue is returned when the value field is not a finite number.
	ErrInvalidValue = errors.New("value is not a number")
	// ErrUnknownUnit is returned when a selection is not in the loaded list.
	ErrUnknownUnit = errors.New("unit is not in the loaded list")
	// ErrSubmitPending is returned while a conversion for the client is in flight.
	ErrSubmitPending = errors.New("a conversion is already in progress")
	// ErrConvert wraps every failure reported by the conversion call.
	ErrConvert = errors.New("conversion failed")
)

// Backend is the conversion service as seen by the controller.
type Backend interface {
	Units(ctx context.Context, category string) ([]string, error)
	Convert(ctx context.Context, category string, req model.ConvertRequest) (model.ConvertResponse, error)
}

// Options configures a Controller.
type Options struct {
	// Categories is the set of categories a path may name.
	Categories []string

	// Aliases maps alternative path names to one of Categories.
	Aliases map[string]string

	// DefaultCategory replaces an empty path. Defaults to "length".
	DefaultCategory string

	// Guard serialises submits per client across requests. Optional.
	Guard guard.Guard

	// SubmitTTL bounds a submit lease. Defaults to DefaultSubmitTTL.
	SubmitTTL time.Duration

	Logger *slog.Logger
}

// Controller wires converter pages to the conversion service.
type Controller struct {
	backend         Backend
	known           map[string]bool
	aliases         map[string]string
	categories      []string
	defaultCategory string
	guard           guard.Guard
	submitTTL       time.Duration
	logger          *slog.Logger
}

// New creates a controller.
func New(backend Backend, opts Options) *Controller {
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = DefaultCategory
	}
	if opts.SubmitTTL <= 0 {
		opts.SubmitTTL = DefaultSubmitTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	known := make(map[string]bool, len(opts.Categories)+1)
	for _, c := range opts.Categories {
		known[c] = true
	}
	known[opts.DefaultCategory] = true

	aliases := make(map[string]string, len(opts.Aliases))
	for alias, category := range opts.Aliases {
		if known[category] {
			aliases[alias] = category
		}
	}

	return &Controller{
		backend:         backend,
		known:           known,
		aliases:         aliases,
		categories:      append([]string(nil), opts.Categories...),
		defaultCategory: opts.DefaultCategory,
		guard:           opts.Guard,
		submitTTL:       opts.SubmitTTL,
		logger:          opts.Logger,
	}
}

// Categories returns the categories a page may be opened for.
func (c *Controller) Categories() []string {
	return append([]string(nil), c.categories...)
}

// ResolveCategory derives the category from a navigation path. An empty path
// gives the default category; otherwise the path must name a known category
// or an alias of one, which resolves to that category.
func (c *Controller) ResolveCategory(path string) (string, error) {
	p := strings.Trim(path, "/")
	if p == "" {
		return c.defaultCategory, nil
	}
	if category, ok := c.aliases[p]; ok {
		return category, nil
	}
	if !c.known[p] {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, p)
	}
	return p, nil
}

// Init prepares page for path: it loads the units into both selections and
// registers the submit handler. On any failure the handler stays unregistered.
func (c *Controller) Init(ctx context.Context, page *Page, path string) error {
	if page.From == nil || page.To == nil {
		c.logger.Warn("converter controls missing",
			"from_present", page.From != nil,
			"to_present", page.To != nil)
		page.Err = ErrControlsMissing
		return ErrControlsMissing
	}

	category, err := c.ResolveCategory(path)
	if err != nil {
		c.logger.Info("rejected converter category", "path", path)
		page.Err = err
		return err
	}
	page.Category = category

	if err := c.Load(ctx, page); err != nil {
		return err
	}

	if page.Submit != nil {
		page.Submit.Register(c.submitHandler(page))
	}
	return nil
}

// Load fetches the unit list for page.Category and replaces the options of
// both selections with it.
func (c *Controller) Load(ctx context.Context, page *Page) error {
	names, err := c.backend.Units(ctx, page.Category)
	if err != nil {
		c.logger.Warn("failed to load units", "category", page.Category, "error", err)
		page.Err = fmt.Errorf("%w: %w", ErrLoadUnits, err)
		page.Retry = true
		return page.Err
	}

	page.From.Clear()
	page.To.Clear()
	for _, name := range names {
		page.From.Add(Option{Value: name, Label: name})
		page.To.Add(Option{Value: name, Label: name})
	}

	page.Err = nil
	page.Retry = false
	c.logger.Debug("units loaded", "category", page.Category, "count", len(names))
	return nil
}

// submitHandler returns the activation handler bound to page.
func (c *Controller) submitHandler(page *Page) SubmitFunc {
	return func(ctx context.Context, in Input) error {
		err := c.submit(ctx, page, in)
		page.Err = err
		return err
	}
}

func (c *Controller) submit(ctx context.Context, page *Page, in Input) error {
	value := strings.TrimSpace(in.Value)
	page.Value = value
	page.Result = nil

	// Keep the user's choices on the page even when they are rejected below
	fromOK := page.From.Choose(in.From)
	toOK := page.To.Choose(in.To)

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrInvalidValue
	}
	if !fromOK {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, in.From)
	}
	if !toOK {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, in.To)
	}

	release, err := c.lease(ctx, page.ClientID)
	if err != nil {
		return err
	}
	defer release()

	resp, err := c.backend.Convert(ctx, page.Category, model.ConvertRequest{
		Value: value,
		From:  in.From,
		To:    in.To,
	})
	if err != nil {
		c.logger.Warn("conversion failed",
			"category", page.Category,
			"from", in.From,
			"to", in.To,
			"error", err)
		return fmt.Errorf("%w: %w", ErrConvert, err)
	}

	page.Result = &Result{
		Value:    resp.Result,
		Input:    value,
		From:     in.From,
		To:       in.To,
		Category: page.Category,
	}
	return nil
}

// lease takes the per-client submit lease. A guard outage does not block
// conversions; it only loses the cross-request protection.
func (c *Controller) lease(ctx context.Context, clientID string) (func(), error) {
	noop := func() {}
	if c.guard == nil || clientID == "" {
		return noop, nil
	}

	key := "submit:" + clientID
	token, err := c.guard.Acquire(ctx, key, c.submitTTL)
	if errors.Is(err, guard.ErrBusy) {
		return nil, ErrSubmitPending
	}
	if err != nil {
		c.logger.Warn("submit guard unavailable", "error", err)
		return noop, nil
	}

	return func() {
		// The request context may already be done; the release must still happen
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := c.guard.Release(rctx, key, token); err != nil {
			c.logger.Warn("failed to release submit guard", "error", err)
		}
	}, nil
}
