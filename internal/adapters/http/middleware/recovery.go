package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/reqsentry/internal/adapters/http/dto"
	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
	"github.com/jsamuelsen/reqsentry/internal/platform/telemetry"
)

// Recovery returns middleware that recovers from panics.
// On panic, it:
//   - Reports the panic to error tracking with the request's Context,
//     unless the uncaught handler is disabled
//   - Logs the error with full stack trace at ERROR level
//   - Returns a 500 Internal Server Error with standard error envelope
//
// It must run after ErrorTracking: the request's Context is removed only
// once this middleware has finished reporting.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()
			ctxLogger := logging.FromContext(ctx)
			traceID := telemetry.TraceIDFromContext(ctx)

			attrs := []any{
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			}

			if client, ok := errortracking.ClientFromContext(ctx); ok && client.Options().UncaughtHandlerEnabled {
				id, err := client.Recover(ctx, r)
				switch {
				case err != nil:
					logger.Error("reporting panic failed", slog.Any("error", err))
				case id != nil:
					attrs = append(attrs, slog.String("event_id", string(*id)))
				}
			}

			ctxLogger.Error("panic recovered", attrs...)

			errResp := dto.NewErrorResponse(
				dto.ErrorCodeInternal,
				"an internal error occurred",
			)
			if traceID != "" {
				errResp.TraceID = traceID
			}

			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
			} else {
				c.Abort()
			}
		}()

		c.Next()
	}
}
