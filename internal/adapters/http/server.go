// Package http is the HTTP adapter: server lifecycle, routing and the gin
// middleware that scopes error tracking to each request.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/reqsentry/internal/platform/config"
)

// ShutdownHook releases a resource once the server has stopped accepting
// requests, such as flushing buffered error events.
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// CloseHook adapts a close function that cannot fail.
func CloseHook(name string, closeFn func()) ShutdownHook {
	return ShutdownHook{Name: name, Fn: func(context.Context) error {
		closeFn()
		return nil
	}}
}

// Server runs the gin engine behind an http.Server and drains it on
// shutdown before running the shutdown hooks.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig
	logger     *slog.Logger
	hooks      []ShutdownHook
}

// New builds a server listening on cfg.Host:cfg.Port. Request bodies are
// capped at cfg.MaxRequestSize.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(limitBody(cfg.MaxRequestSize))

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		config: cfg,
		logger: logger,
	}
}

// Engine returns the gin engine routes are registered on.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Config returns the server configuration.
func (s *Server) Config() *config.ServerConfig { return s.config }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// OnShutdown appends hooks. Shutdown runs them in registration order.
func (s *Server) OnShutdown(hooks ...ShutdownHook) {
	s.hooks = append(s.hooks, hooks...)
}

// Start serves in the background. The returned channel receives a serve
// failure, if any, and is closed once the server stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		s.logger.Info("starting HTTP server",
			slog.String("addr", s.Addr()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
		)

		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	return errCh
}

// Shutdown drains in-flight requests, then runs every hook even when an
// earlier step failed. All failures are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	} else {
		s.logger.Info("HTTP server stopped")
	}

	for _, hook := range s.hooks {
		err := hook.Fn(ctx)
		if err == nil {
			continue
		}

		s.logger.Error("shutdown hook failed", slog.String("hook", hook.Name), slog.Any("error", err))
		errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
	}

	return errors.Join(errs...)
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
