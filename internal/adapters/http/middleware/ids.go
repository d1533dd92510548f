// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import (
	"context"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
)

const (
	// HeaderRequestID carries the per-request identifier.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID carries the identifier of the business transaction
	// a request belongs to, propagated across services.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin.Context key of the request ID. The error
	// tracking feature reads it as the call id and as an MDC tag.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin.Context key of the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

// maxIDLength bounds inbound ID headers. IDs end up in logs, response
// headers and error tracking events.
const maxIDLength = 128

type idCtxKey int

const (
	ctxKeyRequestID idCtxKey = iota
	ctxKeyCorrelationID
)

// idKind describes one identifier propagated through a request.
type idKind struct {
	header string
	ginKey string
	ctxKey idCtxKey
	logAs  func(ctx context.Context, id string) context.Context
}

var (
	requestIDKind = idKind{
		header: HeaderRequestID,
		ginKey: ContextKeyRequestID,
		ctxKey: ctxKeyRequestID,
		logAs:  logging.WithRequestID,
	}
	correlationIDKind = idKind{
		header: HeaderCorrelationID,
		ginKey: ContextKeyCorrelationID,
		ctxKey: ctxKeyCorrelationID,
		logAs:  logging.WithCorrelationID,
	}
)

// middleware takes the ID from the inbound header, or generates a UUID v4
// when it is missing or malformed. The ID is echoed in the response header
// and stored in the gin.Context, the request's context.Context and its logger.
func (k idKind) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(k.header)
		if !validID(id) {
			id = uuid.New().String()
		}

		c.Set(k.ginKey, id)
		c.Header(k.header, id)

		ctx := k.logAs(k.store(c.Request.Context(), id), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func (k idKind) store(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, k.ctxKey, id)
}

func (k idKind) fromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(k.ctxKey).(string)

	return id
}

func (k idKind) fromGin(c *gin.Context) string {
	return c.GetString(k.ginKey)
}

func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}

	for _, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// RequestID returns middleware that extracts or generates the request ID.
// It must run before ErrorTracking, which uses the ID as the call id.
func RequestID() gin.HandlerFunc {
	return requestIDKind.middleware()
}

// CorrelationID returns middleware that propagates the correlation ID. A
// request without one starts a new transaction.
func CorrelationID() gin.HandlerFunc {
	return correlationIDKind.middleware()
}

// GetRequestID returns the request ID, or "" outside the RequestID middleware.
func GetRequestID(c *gin.Context) string {
	return requestIDKind.fromGin(c)
}

// MustGetRequestID returns the request ID, or "unknown" when none was set.
func MustGetRequestID(c *gin.Context) string {
	return orUnknown(GetRequestID(c))
}

// GetCorrelationID returns the correlation ID, or "" when none was set.
func GetCorrelationID(c *gin.Context) string {
	return correlationIDKind.fromGin(c)
}

// MustGetCorrelationID returns the correlation ID, or "unknown" when none was set.
func MustGetCorrelationID(c *gin.Context) string {
	return orUnknown(GetCorrelationID(c))
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	return requestIDKind.fromContext(ctx)
}

// CorrelationIDFromContext returns the correlation ID stored in ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return correlationIDKind.fromContext(ctx)
}

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return requestIDKind.store(ctx, id)
}

// ContextWithCorrelationID stores a correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return correlationIDKind.store(ctx, id)
}

func orUnknown(id string) string {
	if id == "" {
		return "unknown"
	}

	return id
}
