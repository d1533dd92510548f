package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/reqsentry/internal/adapters/http/dto"
	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
	"github.com/jsamuelsen/reqsentry/internal/platform/telemetry"
)

// Timeout returns middleware that sets a request deadline.
// The handler runs on the request goroutine, so the error tracking Context
// bound to the request stays reachable; handlers must check ctx.Done()
// themselves. When the deadline passes and the handler has not written a
// response, it:
//   - Logs the timeout as a warning
//   - Returns 504 Gateway Timeout with error envelope
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return TimeoutWithSkipPaths(timeout, nil)
}

// TimeoutWithSkipPaths returns timeout middleware that skips certain paths.
// Useful for long-running endpoints like file uploads or streaming.
func TimeoutWithSkipPaths(timeout time.Duration, skipPaths []string) gin.HandlerFunc {
	skipMap := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skipMap[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, skip := skipMap[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			handleTimeout(c, timeout)
		}
	}
}

// handleTimeout logs the timeout and responds with an error if the handler
// has not written anything yet.
func handleTimeout(c *gin.Context, timeout time.Duration) {
	ctx := c.Request.Context()
	traceID := telemetry.TraceIDFromContext(ctx)

	logging.FromContext(ctx).WarnContext(ctx, "request timeout",
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.Duration("timeout", timeout),
		slog.String("trace_id", traceID),
	)

	if c.Writer.Written() {
		return
	}

	errResp := dto.NewErrorResponse(
		dto.ErrorCodeTimeout,
		"request timeout exceeded",
	)
	if traceID != "" {
		errResp.TraceID = traceID
	}

	c.AbortWithStatusJSON(http.StatusGatewayTimeout, errResp)
}
