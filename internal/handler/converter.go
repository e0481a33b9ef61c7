// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/unitconv/internal/controller"
	"github.com/olegiv/unitconv/internal/i18n"
	"github.com/olegiv/unitconv/internal/middleware"
	"github.com/olegiv/unitconv/internal/render"
	"github.com/olegiv/unitconv/internal/session"
)

// Template names.
const (
	templateConverter = "converter"
	templateError     = "error"
)

// BackendStatus reports the health of the conversion service.
type BackendStatus interface {
	Down() bool
}

// ConverterHandler serves the converter pages.
type ConverterHandler struct {
	ctrl       *controller.Controller
	renderer   *render.Renderer
	sm         *scs.SessionManager
	backend    BackendStatus
	backendURL string
	logger     *slog.Logger
}

// ConverterOptions configures a ConverterHandler.
type ConverterOptions struct {
	Controller *controller.Controller
	Renderer   *render.Renderer
	Sessions   *scs.SessionManager
	// Backend feeds the "service not responding" banner. Optional.
	Backend BackendStatus
	// BackendURL is shown in the page footer.
	BackendURL string
	Logger     *slog.Logger
}

// NewConverterHandler creates a new ConverterHandler.
func NewConverterHandler(opts ConverterOptions) *ConverterHandler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ConverterHandler{
		ctrl:       opts.Controller,
		renderer:   opts.Renderer,
		sm:         opts.Sessions,
		backend:    opts.Backend,
		backendURL: opts.BackendURL,
		logger:     opts.Logger,
	}
}

// OptionView is one rendered entry of a unit selection.
type OptionView struct {
	Value    string
	Label    string
	Selected bool
}

// ConverterView holds data for the converter and error templates.
type ConverterView struct {
	Categories  []string
	Category    string
	BackendDown bool
	BackendURL  string

	Error string
	Retry bool

	Value     string
	Controls  bool
	From      []OptionView
	To        []OptionView
	CanSubmit bool
	Result    *controller.Result
}

// Home handles GET / - the converter for the default category.
func (h *ConverterHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, "")
}

// Category handles GET /{category}.
func (h *ConverterHandler) Category(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, chi.URLParam(r, URLParamCategory))
}

// Convert handles POST /{category}/convert - the converter form submit.
// The page is rendered again with the result or the error, keeping the
// user's value and unit choices.
func (h *ConverterHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, i18n.T(middleware.GetLanguage(r), "error.invalid_value"))
		return
	}

	page := h.newPage(r)
	in := controller.Input{
		Value: r.PostFormValue(fieldValue),
		From:  r.PostFormValue(fieldFromUnit),
		To:    r.PostFormValue(fieldToUnit),
	}

	if err := h.ctrl.Init(r.Context(), page, chi.URLParam(r, URLParamCategory)); err != nil {
		page.Value = in.Value
		h.renderPage(w, r, page)
		return
	}

	if err := page.Submit.Activate(r.Context(), in); err != nil {
		h.logger.Info("conversion not completed",
			"category", page.Category,
			"client_id", page.ClientID,
			"error", err)
	}
	h.renderPage(w, r, page)
}

// RateLimited renders the page answered when a client posts too often.
func (h *ConverterHandler) RateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	h.renderError(w, r, http.StatusTooManyRequests, i18n.T(middleware.GetLanguage(r), "error.rate_limit"))
}

// CSRFFailed renders the page answered when a form post fails the CSRF check.
func (h *ConverterHandler) CSRFFailed(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusForbidden, i18n.T(middleware.GetLanguage(r), "error.csrf"))
}

// NotFound renders the page answered for unknown paths.
func (h *ConverterHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "")
}

func (h *ConverterHandler) show(w http.ResponseWriter, r *http.Request, path string) {
	page := h.newPage(r)
	_ = h.ctrl.Init(r.Context(), page, path)
	h.renderPage(w, r, page)
}

func (h *ConverterHandler) newPage(r *http.Request) *controller.Page {
	page := controller.NewPage()
	if h.sm != nil {
		page.ClientID = session.ClientID(r.Context(), h.sm)
	}
	return page
}

// renderPage renders page, or the not found page for an unknown category.
func (h *ConverterHandler) renderPage(w http.ResponseWriter, r *http.Request, page *controller.Page) {
	if errors.Is(page.Err, controller.ErrUnknownCategory) {
		h.NotFound(w, r)
		return
	}

	lang := middleware.GetLanguage(r)
	view := h.baseView(page.Category)
	view.Value = page.Value
	view.Error = pageMessage(lang, page.Err)
	view.Retry = page.Retry
	view.Result = page.Result
	view.Controls = page.From != nil && page.To != nil
	if view.Controls {
		view.From = optionViews(page.From)
		view.To = optionViews(page.To)
	}
	view.CanSubmit = page.Submit != nil && !page.Submit.Disabled() && len(view.From) > 0

	data := render.TemplateData{
		Title: i18n.T(lang, "category."+page.Category),
		Lang:  lang,
		Data:  view,
	}
	// Language links must not point at the POST-only convert route
	if page.Category != "" {
		data.Path = "/" + page.Category
	}
	if err := h.renderer.Render(w, r, pageStatus(page.Err), templateConverter, data); err != nil {
		logAndInternalError(w, "failed to render converter", "error", err)
	}
}

func (h *ConverterHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	lang := middleware.GetLanguage(r)
	view := h.baseView("")
	view.Error = message

	title := http.StatusText(status)
	if status == http.StatusNotFound {
		title = i18n.T(lang, "error.not_found")
	}

	if err := h.renderer.Render(w, r, status, templateError, render.TemplateData{
		Title: title,
		Lang:  lang,
		Data:  view,
	}); err != nil {
		logAndHTTPError(w, title, status, "failed to render error page", "error", err)
	}
}

func (h *ConverterHandler) baseView(category string) ConverterView {
	return ConverterView{
		Categories:  h.ctrl.Categories(),
		Category:    category,
		BackendDown: h.backend != nil && h.backend.Down(),
		BackendURL:  h.backendURL,
	}
}

func optionViews(s *controller.Select) []OptionView {
	opts := s.Options()
	views := make([]OptionView, len(opts))
	for i, o := range opts {
		views[i] = OptionView{
			Value:    o.Value,
			Label:    o.Label,
			Selected: s.IsSelected(o.Value),
		}
	}
	return views
}
