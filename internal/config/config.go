// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ServerHost string `env:"UNITCONV_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"UNITCONV_SERVER_PORT" envDefault:"9742"`
	Env        string `env:"UNITCONV_ENV" envDefault:"development"`
	LogLevel   string `env:"UNITCONV_LOG_LEVEL" envDefault:"info"`

	// Conversion service
	BackendURL     string        `env:"UNITCONV_BACKEND_URL" envDefault:"http://127.0.0.1:9742"`
	BackendTimeout time.Duration `env:"UNITCONV_BACKEND_TIMEOUT" envDefault:"8s"`

	// Sessions and CSRF. Generated in development when empty.
	SessionSecret string `env:"UNITCONV_SESSION_SECRET"`

	// Submit guard
	RedisURL    string `env:"UNITCONV_REDIS_URL"`                           // Optional Redis URL for the distributed submit guard
	RedisPrefix string `env:"UNITCONV_REDIS_PREFIX" envDefault:"unitconv:"` // Redis key prefix

	// Rate limiting of conversion requests per client IP
	RateLimitRPS   float64 `env:"UNITCONV_RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"UNITCONV_RATE_LIMIT_BURST" envDefault:"10"`

	ProbeSchedule   string `env:"UNITCONV_PROBE_SCHEDULE" envDefault:"@every 30s"`
	DefaultLanguage string `env:"UNITCONV_DEFAULT_LANGUAGE" envDefault:"en"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedis returns true if the Redis submit guard is configured.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
// The CSRF key is derived from it and needs 32 bytes.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("UNITCONV_SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}

	if err := validateBackendURL(c.BackendURL); err != nil {
		return err
	}

	if c.BackendTimeout <= 0 {
		return errors.New("UNITCONV_BACKEND_TIMEOUT must be positive")
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("UNITCONV_RATE_LIMIT_RPS and UNITCONV_RATE_LIMIT_BURST must be positive, got %v and %d",
			c.RateLimitRPS, c.RateLimitBurst)
	}

	if strings.TrimSpace(c.ProbeSchedule) == "" {
		return errors.New("UNITCONV_PROBE_SCHEDULE must not be empty")
	}

	return c.validateSessionSecret()
}

// validateBackendURL requires an absolute http(s) URL with a host.
func validateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("UNITCONV_BACKEND_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("UNITCONV_BACKEND_URL must use http or https scheme, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("UNITCONV_BACKEND_URL must include a host, got %q", raw)
	}
	return nil
}

func (c *Config) validateSessionSecret() error {
	if c.SessionSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("UNITCONV_SESSION_SECRET is required outside development; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
		secret, err := generateSecret()
		if err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		c.SessionSecret = secret
		slog.Info("UNITCONV_SESSION_SECRET not set, using a generated development secret")
		return nil
	}

	// Validate session secret length
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("UNITCONV_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("UNITCONV_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(c.SessionSecret) {
		slog.Warn("UNITCONV_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, MinSessionSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
