package telemetry

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// HeaderTraceID is the response header carrying the trace ID.
const HeaderTraceID = "X-Trace-ID"

// Middleware returns the otelgin tracing middleware.
// The span it starts is stored in the request context, so handlers and the
// error tracking client further down the chain can read the trace ID.
func Middleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceIDHeader returns middleware that echoes the active trace ID in the
// X-Trace-ID response header. It must run after Middleware.
func TraceIDHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := TraceIDFromContext(c.Request.Context()); traceID != "" {
			c.Header(HeaderTraceID, traceID)
		}

		c.Next()
	}
}

// TraceIDFromContext returns the trace ID of the span in ctx, or "" when
// there is none.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}
