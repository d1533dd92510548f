// Package main runs the service: an HTTP pipeline that scopes an error
// tracking context to every request.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/reqsentry/internal/adapters/http"
	"github.com/jsamuelsen/reqsentry/internal/adapters/http/handlers"
	"github.com/jsamuelsen/reqsentry/internal/platform/config"
	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
	"github.com/jsamuelsen/reqsentry/internal/platform/telemetry"
	"github.com/jsamuelsen/reqsentry/internal/ports"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	tracing, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		Insecure:     cfg.Telemetry.Insecure,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	// Without a DSN the service refuses to start.
	feature, err := errortracking.Install(
		errorTrackingOptions(cfg.App, cfg.Sentry),
		logger,
		func(o *errortracking.Options) { o.Registerer = prometheus.DefaultRegisterer },
	)
	if err != nil {
		return errors.Join(
			fmt.Errorf("installing error tracking: %w", err),
			tracing.Shutdown(context.Background()),
		)
	}

	server, err := newServer(cfg, logger, feature, tracing)
	if err != nil {
		feature.Close()
		return errors.Join(err, tracing.Shutdown(context.Background()))
	}

	return serve(ctx, logger, server, cfg.Server.ShutdownTimeout)
}

func newLogger(cfg *config.Config) *slog.Logger {
	file := cfg.Log.File

	return logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    file.Enabled,
			Path:       file.Path,
			MaxSizeMB:  file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAgeDays: file.MaxAgeDays,
			Compress:   file.Compress,
		},
		Middleware: logMiddleware(cfg.Sentry),
	})
}

// logMiddleware mirrors log lines written with a request's ctx into that
// request's error tracking breadcrumbs.
func logMiddleware(s config.SentryConfig) []logging.HandlerMiddleware {
	if s.LogBreadcrumbs == "" {
		return nil
	}

	return []logging.HandlerMiddleware{
		errortracking.LogBreadcrumbs(logging.ParseLevel(s.LogBreadcrumbs)),
	}
}

// newServer wires health checks, handlers and routes. On shutdown, error
// events are flushed before traces.
func newServer(
	cfg *config.Config,
	logger *slog.Logger,
	feature *errortracking.Feature,
	tracing *telemetry.Provider,
) (*http.Server, error) {
	checks := ports.NewHealthRegistry()
	if err := checks.Register(feature); err != nil {
		return nil, fmt.Errorf("registering error tracking health check: %w", err)
	}
	if tracing.Enabled() {
		if err := checks.Register(tracing); err != nil {
			return nil, fmt.Errorf("registering tracing health check: %w", err)
		}
	}

	health := handlers.NewHealthHandler(checks, handlers.NewBuildInfo(Version, Commit, BuildTime))

	var diagnostics *handlers.DiagnosticsHandler
	if cfg.Diagnostics.Enabled {
		var err error
		diagnostics, err = handlers.NewDiagnosticsHandler(cfg.Diagnostics.RecentEvents)
		if err != nil {
			return nil, fmt.Errorf("creating diagnostics handler: %w", err)
		}
	}

	server := http.New(&cfg.Server, logger)
	server.OnShutdown(
		http.CloseHook("error-tracking", feature.Close),
		http.ShutdownHook{Name: "telemetry", Fn: tracing.Shutdown},
	)

	routes := http.NewDefaultRouterConfig(logger, &cfg.App, feature, health, diagnostics)
	routes.Metrics = telemetry.NewHTTPMetrics(prometheus.DefaultRegisterer)
	http.SetupRouter(server.Engine(), routes)

	return server, nil
}

// serve runs server until ctx is canceled by a signal or the server fails,
// then drains it within shutdownTimeout.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server, shutdownTimeout time.Duration) error {
	var serveErr error

	select {
	case err := <-server.Start():
		if err != nil {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	logger.Info("initiating graceful shutdown", slog.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hooks run even after a serve failure so buffered events are flushed.
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("server shutdown: %w", err))
	}

	logger.Info("shutdown complete")

	return serveErr
}
