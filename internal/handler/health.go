// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/unitconv/internal/scheduler"
)

// BackendProbe reports the latest conversion service probe.
type BackendProbe interface {
	Status() scheduler.ProbeStatus
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	probe       BackendProbe
	version     string
	showDetails bool
	startTime   time.Time
}

// NewHealthHandler creates a new health handler. Details such as uptime and
// check results are only reported when showDetails is set.
func NewHealthHandler(probe BackendProbe, version string, showDetails bool) *HealthHandler {
	return &HealthHandler{
		probe:       probe,
		version:     version,
		showDetails: showDetails,
		startTime:   time.Now(),
	}
}

// StartTime returns when the handler (and application) was started.
func (h *HealthHandler) StartTime() time.Time {
	return h.startTime
}

// HealthStatusPublic is the minimal health response.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Latency   string `json:"latency,omitempty"`
	CheckedAt string `json:"checked_at,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	backendCheck := h.checkBackend()

	overallStatus := "healthy"
	statusCode := http.StatusOK
	if backendCheck.Status == "unhealthy" {
		overallStatus = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	if !h.showDetails {
		writeJSON(w, statusCode, HealthStatusPublic{Status: overallStatus})
		return
	}

	status := HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks: map[string]Check{
			"backend": backendCheck,
		},
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = getSystemInfo()
	}

	writeJSON(w, statusCode, status)
}

// Liveness handles GET /health/live - simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness handles GET /health/ready. The service is ready once the latest
// backend probe succeeded.
func (h *HealthHandler) Readiness(w http.ResponseWriter, _ *http.Request) {
	backendCheck := h.checkBackend()
	if backendCheck.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
		})
		return
	}

	resp := map[string]string{
		"status": "not_ready",
	}
	if h.showDetails && backendCheck.Message != "" {
		resp["message"] = backendCheck.Message
	}
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

// checkBackend reports the latest conversion service probe as a check.
func (h *HealthHandler) checkBackend() Check {
	if h.probe == nil {
		return Check{Status: "unknown", Message: "Backend probe not configured"}
	}

	s := h.probe.Status()
	if !s.Checked {
		return Check{Status: "unknown", Message: "Backend not probed yet"}
	}

	check := Check{
		Latency:   s.Latency.String(),
		CheckedAt: s.CheckedAt.UTC().Format(time.RFC3339),
	}
	if s.Healthy {
		check.Status = "healthy"
		check.Message = "Reachable"
		return check
	}

	check.Status = "unhealthy"
	check.Message = fmt.Sprintf("%s (%d consecutive failures)", s.Error, s.Failures)
	return check
}

// getSystemInfo returns system-level metrics.
func getSystemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
