// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/reqsentry/internal/domain"
	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
	"github.com/jsamuelsen/reqsentry/internal/platform/telemetry"
)

// HeaderRequestID is consulted by GetTraceID when no trace is active.
const HeaderRequestID = "X-Request-ID"

// ErrorResponse is the standard error envelope for all error responses.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
	EventID string      `json:"eventId,omitempty"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	// Code is a machine-readable error code (e.g., "VALIDATION_ERROR").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details holds field-level messages for validation errors.
	Details map[string]string `json:"details,omitempty"`
}

// Error codes for machine-readable error identification.
const (
	ErrorCodeNotFound         = "NOT_FOUND"
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrorCodeValidation       = "VALIDATION_ERROR"
	ErrorCodeBadRequest       = "BAD_REQUEST"
	ErrorCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrorCodeInternal         = "INTERNAL_ERROR"
	ErrorCodeTimeout          = "TIMEOUT"
)

// NewErrorResponse creates a new error response with the given code and message.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithDetails creates an error response with additional details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithTraceID adds a trace ID to the error response.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode maps error codes to HTTP status codes.
func HTTPStatusFromCode(code string) int {
	switch code {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorCodeValidation, ErrorCodeBadRequest:
		return http.StatusBadRequest
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromError maps err to a status code and error envelope. Domain errors and
// request binding failures keep their message; anything else becomes a
// generic 500 so internals do not leak.
func FromError(err error) (int, *ErrorResponse) {
	switch {
	case errors.Is(err, ErrBinding):
		return http.StatusBadRequest, NewErrorResponse(ErrorCodeBadRequest, "malformed request body")

	case errors.Is(err, ErrValidation) && IsValidationError(err):
		return http.StatusBadRequest, NewErrorResponseWithDetails(
			ErrorCodeValidation,
			"request validation failed",
			ValidationErrors(err),
		)

	case errors.Is(err, ErrValidation), domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			resp.Error.Details = ve.Details()
		}

		return http.StatusBadRequest, resp

	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, err.Error())

	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
	}
}

// GetTraceID returns the active OpenTelemetry trace ID of the request,
// falling back to the inbound X-Request-ID header.
func GetTraceID(c *gin.Context) string {
	if traceID := telemetry.TraceIDFromContext(c.Request.Context()); traceID != "" {
		return traceID
	}

	return c.GetHeader(HeaderRequestID)
}

// HandleError writes the error envelope for err. Server errors are logged
// and reported through the request's error tracking client; the event ID is
// returned to the caller so support can find it. Client errors are logged at
// debug level with the request context, so they can show up as breadcrumbs
// on a later event of the same request.
func HandleError(c *gin.Context, err error) {
	status, resp := FromError(err)
	resp.TraceID = GetTraceID(c)

	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)

	if status < http.StatusInternalServerError {
		logger.DebugContext(ctx, "request rejected",
			slog.Int("status", status),
			slog.String("code", resp.Error.Code),
			slog.Any("error", err),
		)
	} else {
		if client, ok := errortracking.ClientFromContext(ctx); ok {
			id, sendErr := client.CaptureException(ctx, err)
			if sendErr != nil {
				logger.WarnContext(ctx, "error not reported", slog.Any("error", sendErr))
			} else if id != nil {
				resp.EventID = string(*id)
			}
		}

		logger.ErrorContext(ctx, "internal error",
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID),
			slog.String("event_id", resp.EventID),
		)
	}

	c.JSON(status, resp)
}
