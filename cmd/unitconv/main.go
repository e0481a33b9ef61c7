// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/unitconv/internal/client"
	"github.com/olegiv/unitconv/internal/config"
	"github.com/olegiv/unitconv/internal/controller"
	"github.com/olegiv/unitconv/internal/guard"
	"github.com/olegiv/unitconv/internal/handler"
	"github.com/olegiv/unitconv/internal/i18n"
	"github.com/olegiv/unitconv/internal/logging"
	"github.com/olegiv/unitconv/internal/middleware"
	"github.com/olegiv/unitconv/internal/render"
	"github.com/olegiv/unitconv/internal/scheduler"
	"github.com/olegiv/unitconv/internal/session"
	"github.com/olegiv/unitconv/internal/units"
	"github.com/olegiv/unitconv/internal/version"
	"github.com/olegiv/unitconv/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const (
	// apiTimeout bounds a conversion API request.
	apiTimeout = 10 * time.Second
	// staticMaxAge is the cache lifetime of embedded assets in production.
	staticMaxAge = 86400
	// limiterCleanupSchedule clears the per-IP limiter cache.
	limiterCleanupSchedule = "@every 10m"
	// Startup wait for the conversion service.
	backendWaitAttempts = 10
	backendWaitDelay    = 500 * time.Millisecond
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "unitconv - length, weight and temperature converter\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_SERVER_HOST       Listen host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_SERVER_PORT       Listen port (default: 9742)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_LOG_LEVEL         debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_BACKEND_URL       Conversion service URL (default: http://127.0.0.1:9742)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_BACKEND_TIMEOUT   Conversion service timeout (default: 8s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_SESSION_SECRET    Session key (required in production, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_REDIS_URL         Redis URL for the shared submit guard (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_RATE_LIMIT_RPS    Conversions per second per client (default: 5)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_RATE_LIMIT_BURST  Conversion burst per client (default: 10)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_PROBE_SCHEDULE    Backend probe schedule (default: @every 30s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  UNITCONV_DEFAULT_LANGUAGE  Page language fallback (default: en)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, eventLog := logging.New(os.Stdout, cfg.LogLevel, cfg.IsDevelopment())
	slog.SetDefault(logger)

	if err := scheduler.ValidateSchedule(cfg.ProbeSchedule); err != nil {
		return fmt.Errorf("invalid probe schedule: %w", err)
	}

	if err := i18n.Init(logger, cfg.DefaultLanguage); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n system initialized", "languages", i18n.GetSupportedLanguages(), "default", i18n.DefaultLanguage())

	backend, err := client.New(client.Options{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.BackendTimeout,
		UserAgent: "unitconv/" + versionInfo.Version,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating conversion service client: %w", err)
	}

	ctx := context.Background()
	submitGuard, err := guard.New(ctx, guard.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.RedisPrefix,
		FallbackToMemory: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating submit guard: %w", err)
	}
	defer func() {
		if err := submitGuard.Close(); err != nil {
			slog.Error("error closing submit guard", "error", err)
		}
	}()

	ctrl := controller.New(backend, controller.Options{
		Categories: units.Categories(),
		Aliases:    units.Aliases(),
		Guard:      submitGuard,
		Logger:     logger,
	})

	sessionManager := session.New(cfg.IsDevelopment())
	slog.Info("session manager initialized")

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS: templatesFS,
		IsDev:       cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	// Scheduled jobs
	sched := scheduler.New(logger)
	prober := scheduler.NewProber(backend, 0, logger)
	if err := prober.Register(sched, cfg.ProbeSchedule); err != nil {
		return fmt.Errorf("registering backend probe: %w", err)
	}

	rateLimiter := middleware.NewGlobalRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	// The pages call the conversion API of this process over loopback
	rateLimiter.SkipLoopback()
	if err := sched.Add("rate-limiter-cleanup", limiterCleanupSchedule, rateLimiter.Cleanup); err != nil {
		return fmt.Errorf("registering rate limiter cleanup: %w", err)
	}

	// Handlers
	apiHandler := handler.NewAPIHandler(logger)
	healthHandler := handler.NewHealthHandler(prober, versionInfo.Version, cfg.IsDevelopment())
	eventsHandler := handler.NewEventsHandler(eventLog, sched)
	converterHandler := handler.NewConverterHandler(handler.ConverterOptions{
		Controller: ctrl,
		Renderer:   renderer,
		Sessions:   sessionManager,
		Backend:    prober,
		BackendURL: backend.BaseURL(),
		Logger:     logger,
	})
	rateLimiter.SetHTMLDenyHandler(http.HandlerFunc(converterHandler.RateLimited))

	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.ServerPort, cfg.IsDevelopment())
	csrfConfig.ErrorHandler = http.HandlerFunc(converterHandler.CSRFFailed)
	csrfMiddleware := middleware.CSRF(csrfConfig)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.PeerAddr)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5)) // Gzip compression with level 5
	r.Use(chimw.GetHead)     // Handle HEAD requests for uptime monitoring
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	// Health checks
	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealthLive, healthHandler.Liveness)
	r.Get(handler.RouteHealthReady, healthHandler.Readiness)

	// Conversion service
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(apiTimeout, middleware.APITimeoutHandler))
		r.Use(middleware.MaxBodySize(handler.MaxConvertBodySize))

		r.Get(handler.RouteUnits, apiHandler.Units)
		r.Get(handler.RouteCategories, apiHandler.Categories)
		r.With(rateLimiter.Middleware()).Post(handler.RouteConvert, apiHandler.Convert)
	})

	// Diagnostic channel
	if cfg.IsDevelopment() {
		r.Get(handler.RouteDebugEvents, eventsHandler.List)
	}

	// Embedded static assets
	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	maxAge := staticMaxAge
	if cfg.IsDevelopment() {
		maxAge = 0
	}
	staticHandler := middleware.StaticCache(maxAge)(http.StripPrefix(handler.RouteStatic+"/", http.FileServer(http.FS(staticFS))))
	r.Handle(handler.RouteStatic+"/*", staticHandler)

	// Converter pages. A page load may call the service twice.
	pageTimeout := 2*cfg.BackendTimeout + 5*time.Second
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(pageTimeout, nil))
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.Language())

		r.Get(handler.RouteRoot, converterHandler.Home)
		r.Get(handler.RouteCategory, converterHandler.Category)

		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.HTMLMiddleware())
			r.Use(csrfMiddleware)
			r.Post(handler.RouteCategoryConvert, converterHandler.Convert)
		})
	})

	r.NotFound(converterHandler.NotFound)

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      pageTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second, // Reduced from 120s to mitigate slowloris attacks
		MaxHeaderBytes:    1 << 20,          // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "backend", backend.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// The conversion service is usually this process, so wait only after listening
	go func() {
		if err := backend.WaitReady(ctx, backendWaitAttempts, backendWaitDelay); err != nil {
			slog.Warn("conversion service not reachable at startup", "url", backend.BaseURL(), "error", err)
		}
		prober.Probe(ctx)
	}()

	sched.Start()
	slog.Info("scheduler started", "jobs", len(sched.Jobs()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	sched.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
