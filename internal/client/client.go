// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package client talks to the conversion service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/olegiv/unitconv/internal/model"
)

// Defaults for the service client.
const (
	DefaultBaseURL   = "http://127.0.0.1:9742"
	DefaultTimeout   = 8 * time.Second
	DefaultUserAgent = "unitconv/1.0"
	MaxResponseLen   = 64 * 1024 // Maximum response body read from the service
)

// Service endpoints.
const (
	pathUnits   = "/units"
	pathConvert = "/convert"
	pathLive    = "/health/live"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the absolute http(s) address of the conversion service.
	BaseURL string

	// Timeout bounds every request. Zero means DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// HTTPClient overrides the transport (tests). Its own Timeout is ignored.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is a conversion service client. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// New creates a client for the service at opts.BaseURL.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		base:      base,
		http:      httpClient,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
	}, nil
}

// ParseBaseURL validates a service base address.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("service URL must use http or https scheme: %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("service URL must have a host: %q", raw)
	}
	return u, nil
}

// BaseURL returns the configured service address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Units fetches the unit names of a category, in service order.
// Empty or duplicate names make the response malformed.
func (c *Client) Units(ctx context.Context, category string) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, pathUnits, url.Values{"type": {category}}, nil)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if names == nil {
		return nil, fmt.Errorf("%w: expected a JSON array of unit names", ErrMalformedResponse)
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: empty unit name", ErrMalformedResponse)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate unit %q", ErrMalformedResponse, name)
		}
		seen[name] = struct{}{}
	}

	return names, nil
}

// Convert posts a conversion request for category.
// The service may answer with a result object or a bare JSON number.
func (c *Client) Convert(ctx context.Context, category string, req model.ConvertRequest) (model.ConvertResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return model.ConvertResponse{}, fmt.Errorf("encoding conversion request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, pathConvert, url.Values{"type": {category}}, payload)
	if err != nil {
		return model.ConvertResponse{}, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var bare float64
		if string(trimmed) == "null" {
			return model.ConvertResponse{}, fmt.Errorf("%w: missing result", ErrMalformedResponse)
		}
		if err := json.Unmarshal(trimmed, &bare); err != nil {
			return model.ConvertResponse{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return model.ConvertResponse{Result: bare, From: req.From, To: req.To, Type: category}, nil
	}

	var resp struct {
		Result *float64 `json:"result"`
		Value  float64  `json:"value"`
		From   string   `json:"from"`
		To     string   `json:"to"`
		Type   string   `json:"type"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.ConvertResponse{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if resp.Result == nil {
		return model.ConvertResponse{}, fmt.Errorf("%w: missing result", ErrMalformedResponse)
	}

	out := model.ConvertResponse{
		Result: *resp.Result,
		Value:  resp.Value,
		From:   resp.From,
		To:     resp.To,
		Type:   resp.Type,
	}
	if out.From == "" {
		out.From = req.From
	}
	if out.To == "" {
		out.To = req.To
	}
	if out.Type == "" {
		out.Type = category
	}
	return out, nil
}

// Ping checks the service liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, pathLive, nil, nil)
	return err
}

// WaitReady pings the service until it answers or attempts run out.
func (c *Client) WaitReady(ctx context.Context, attempts uint, delay time.Duration) error {
	return retry.Do(
		func() error {
			return c.Ping(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("conversion service not ready", "attempt", n+1, "url", c.BaseURL(), "error", err)
		}),
	)
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID(ctx))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}

	c.logger.Debug("conversion service call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// statusError builds a StatusError from a JSON envelope or a plain text body.
func statusError(code int, body []byte) *StatusError {
	se := &StatusError{StatusCode: code}

	var envelope model.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		se.Code = envelope.Error.Code
		se.Message = envelope.Error.Message
		return se
	}

	se.Message = strings.TrimSpace(string(body))
	return se
}

func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
