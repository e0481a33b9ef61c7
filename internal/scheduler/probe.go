// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 5 * time.Second

// Pinger is the conversion service as seen by the prober.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeStatus is the outcome of the latest backend probe.
type ProbeStatus struct {
	Checked   bool          `json:"checked"`
	Healthy   bool          `json:"healthy"`
	CheckedAt time.Time     `json:"checked_at,omitzero"`
	Latency   time.Duration `json:"latency_ns"`
	Error     string        `json:"error,omitempty"`
	Failures  int           `json:"consecutive_failures"`
}

// Prober periodically pings the conversion service and remembers the result.
type Prober struct {
	pinger  Pinger
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	status ProbeStatus
}

// NewProber creates a prober. A zero timeout means DefaultProbeTimeout.
func NewProber(pinger Pinger, timeout time.Duration, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		pinger:  pinger,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Probe pings the service once and records the result.
func (p *Prober) Probe(ctx context.Context) ProbeStatus {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := p.now()
	err := p.pinger.Ping(ctx)
	latency := p.now().Sub(start)

	p.mu.Lock()
	defer p.mu.Unlock()

	wasHealthy := p.status.Healthy || !p.status.Checked
	p.status.Checked = true
	p.status.CheckedAt = start
	p.status.Latency = latency

	if err != nil {
		p.status.Healthy = false
		p.status.Error = err.Error()
		p.status.Failures++
		if wasHealthy {
			p.logger.Warn("backend probe failed", "error", err)
		}
		return p.status
	}

	if !wasHealthy {
		p.logger.Info("backend probe recovered", "failures", p.status.Failures)
	}
	p.status.Healthy = true
	p.status.Error = ""
	p.status.Failures = 0
	return p.status
}

// Status returns the latest probe result.
func (p *Prober) Status() ProbeStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Healthy reports whether the latest probe succeeded.
func (p *Prober) Healthy() bool {
	s := p.Status()
	return s.Checked && s.Healthy
}

// Down reports whether the latest probe failed. Before the first probe the
// service is not considered down.
func (p *Prober) Down() bool {
	s := p.Status()
	return s.Checked && !s.Healthy
}

// Register adds the probe job to s.
func (p *Prober) Register(s *Scheduler, schedule string) error {
	return s.Add("backend-probe", schedule, func() {
		p.Probe(context.Background())
	})
}
