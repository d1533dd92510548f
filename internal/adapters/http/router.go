package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/reqsentry/internal/adapters/http/handlers"
	"github.com/jsamuelsen/reqsentry/internal/adapters/http/middleware"
	"github.com/jsamuelsen/reqsentry/internal/platform/config"
	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
	"github.com/jsamuelsen/reqsentry/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// AppConfig contains application configuration.
	AppConfig *config.AppConfig

	// ErrorTracking scopes an error tracking context to every request.
	// Nil disables request-scoped error tracking.
	ErrorTracking *errortracking.Feature

	// HealthHandler handles health check endpoints.
	HealthHandler *handlers.HealthHandler

	// DiagnosticsHandler serves /api/v1/diagnostics. Nil leaves it unrouted.
	DiagnosticsHandler *handlers.DiagnosticsHandler

	// Metrics records per-request HTTP metrics. Nil records nothing.
	Metrics *telemetry.HTTPMetrics

	// Timeout is the default request timeout.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Request ID - generate/extract request ID
//  2. Correlation ID - handle distributed tracing correlation
//  3. Error tracking - open the request's context, close it when the chain returns
//  4. Recovery - report and answer panics while the context is still open
//  5. OpenTelemetry - tracing, trace ID response header, request metrics
//  6. Logging - request logging and breadcrumbs (skips health endpoints)
//  7. Timeout - request deadline on /api/v1
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.ErrorTracking(cfg.ErrorTracking),
		middleware.Recovery(cfg.Logger),
		telemetry.Middleware(cfg.AppConfig.Name),
		telemetry.TraceIDHeader(),
		telemetry.RequestMetrics(cfg.Metrics),
		middleware.Logging(cfg.Logger),
	)

	engine.NoRoute(noRoute)
	engine.NoMethod(noMethod)

	// Probes get no timeout.
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine.Group("/-"))
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.DiagnosticsHandler != nil {
		cfg.DiagnosticsHandler.RegisterDiagnosticsRoutes(apiV1)
	}
}

// SetupMinimalRouter sets up a minimal router with just health endpoints.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
	)

	if healthHandler != nil {
		healthHandler.RegisterHealthRoutes(engine.Group("/-"))
	}
}

// NewDefaultRouterConfig creates a RouterConfig with sensible defaults.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	feature *errortracking.Feature,
	healthHandler *handlers.HealthHandler,
	diagnosticsHandler *handlers.DiagnosticsHandler,
) RouterConfig {
	return RouterConfig{
		Logger:             logger,
		AppConfig:          appCfg,
		ErrorTracking:      feature,
		HealthHandler:      healthHandler,
		DiagnosticsHandler: diagnosticsHandler,
		Timeout:            DefaultRequestTimeout,
	}
}
