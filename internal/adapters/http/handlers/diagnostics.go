package handlers

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jsamuelsen/reqsentry/internal/adapters/http/dto"
	"github.com/jsamuelsen/reqsentry/internal/adapters/http/middleware"
	"github.com/jsamuelsen/reqsentry/internal/domain"
	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
)

// DiagnosticsHandler exposes the request's error tracking context over HTTP
// and keeps a bounded log of the events it captured.
type DiagnosticsHandler struct {
	seq    atomic.Uint64
	recent *lru.Cache[uint64, dto.RecentEvent]
}

// NewDiagnosticsHandler creates a handler remembering up to recentEvents
// captured events.
func NewDiagnosticsHandler(recentEvents int) (*DiagnosticsHandler, error) {
	recent, err := lru.New[uint64, dto.RecentEvent](recentEvents)
	if err != nil {
		return nil, fmt.Errorf("creating recent events log: %w", err)
	}

	return &DiagnosticsHandler{recent: recent}, nil
}

// RegisterDiagnosticsRoutes registers the diagnostics routes on rg.
func (h *DiagnosticsHandler) RegisterDiagnosticsRoutes(rg *gin.RouterGroup) {
	diag := rg.Group("/diagnostics")
	diag.GET("/context", h.GetContext)
	diag.DELETE("/context", h.ResetContext)
	diag.POST("/events", h.CaptureEvent)
	diag.GET("/events", h.ListEvents)
}

// GetContext handles GET /api/v1/diagnostics/context
// Returns the error tracking context of the current request.
//
// @Summary Show the request's error tracking context
// @Tags diagnostics
// @Produce json
// @Success 200 {object} dto.ContextSnapshot
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/diagnostics/context [get]
func (h *DiagnosticsHandler) GetContext(c *gin.Context) {
	client, ok := requestClient(c)
	if !ok {
		return
	}

	h.respondWithSnapshot(c, client)
}

// ResetContext handles DELETE /api/v1/diagnostics/context
// Replaces the request's context with a fresh one and returns it.
//
// @Summary Reset the request's error tracking context
// @Tags diagnostics
// @Produce json
// @Success 200 {object} dto.ContextSnapshot
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/diagnostics/context [delete]
func (h *DiagnosticsHandler) ResetContext(c *gin.Context) {
	client, ok := requestClient(c)
	if !ok {
		return
	}

	if err := client.ClearContext(c.Request.Context()); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.respondWithSnapshot(c, client)
}

// CaptureEvent handles POST /api/v1/diagnostics/events
// Adds the supplied tags, extras and breadcrumbs to the request's context
// and reports a message or exception through it.
//
// @Summary Capture an event
// @Tags diagnostics
// @Accept json
// @Produce json
// @Param event body dto.CaptureEventRequest true "Event"
// @Success 202 {object} dto.CaptureEventResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/diagnostics/events [post]
func (h *DiagnosticsHandler) CaptureEvent(c *gin.Context) {
	client, ok := requestClient(c)
	if !ok {
		return
	}

	var req dto.CaptureEventRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()

	rc, err := client.Context(ctx)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	for name, value := range req.Tags {
		rc.AddTag(name, value)
	}
	for key, value := range req.Extra {
		rc.AddExtra(key, value)
	}
	for _, b := range req.Breadcrumbs {
		rc.RecordBreadcrumb(b.ToBreadcrumb())
	}

	var id *sentry.EventID
	if req.EventKind() == dto.KindException {
		id, err = client.Send(ctx, exceptionEvent(req.Message, req.SentryLevel()))
	} else {
		id, err = client.CaptureMessage(ctx, req.Message, req.SentryLevel())
	}
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	event := dto.RecentEvent{
		Sequence:   h.seq.Add(1),
		Sent:       id != nil,
		Kind:       req.EventKind(),
		Level:      string(req.SentryLevel()),
		Message:    req.Message,
		RequestID:  middleware.RequestIDFromContext(ctx),
		CapturedAt: time.Now().UTC(),
	}
	if id != nil {
		event.EventID = string(*id)
	}
	h.recent.Add(event.Sequence, event)

	c.JSON(http.StatusAccepted, dto.CaptureEventResponse{
		Sequence: event.Sequence,
		EventID:  event.EventID,
		Sent:     event.Sent,
	})
}

// ListEvents handles GET /api/v1/diagnostics/events
// Pages through recently captured events, newest first.
//
// @Summary List recently captured events
// @Tags diagnostics
// @Produce json
// @Param cursor query string false "Cursor from a previous page"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} dto.Page[dto.RecentEvent]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/diagnostics/events [get]
func (h *DiagnosticsHandler) ListEvents(c *gin.Context) {
	var page dto.PageRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		dto.HandleError(c, err)
		return
	}

	before, err := page.Before()
	if err != nil {
		dto.HandleError(c, domain.NewValidationError("cursor", err.Error()))
		return
	}

	limit := page.PageSize()
	items := make([]dto.RecentEvent, 0, limit+1)

	// Keys are ordered oldest to newest, which is sequence order.
	keys := h.recent.Keys()
	for i := len(keys) - 1; i >= 0 && len(items) <= limit; i-- {
		seq := keys[i]
		if before != 0 && seq >= before {
			continue
		}
		if e, ok := h.recent.Peek(seq); ok {
			items = append(items, e)
		}
	}

	c.JSON(http.StatusOK, dto.NewPage(items, limit, dto.RecentEventSequence))
}

func (h *DiagnosticsHandler) respondWithSnapshot(c *gin.Context, client *errortracking.Client) {
	ctx := c.Request.Context()

	rc, err := client.Context(ctx)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	snapshot := dto.NewContextSnapshot(rc)
	snapshot.CorrelationID = middleware.CorrelationIDFromContext(ctx)

	c.JSON(http.StatusOK, snapshot)
}

// requestClient returns the request-scoped client, or writes a 503 when the
// pipeline runs without error tracking.
func requestClient(c *gin.Context) (*errortracking.Client, bool) {
	if _, ok := middleware.GetErrorTrackingRequest(c); !ok {
		dto.HandleError(c, domain.NewUnavailableError("error tracking", "not installed for this request"))
		return nil, false
	}

	_, client := middleware.ErrorTrackingClient(c)

	return client, true
}

func exceptionEvent(message string, level sentry.Level) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = level
	event.Exception = []sentry.Exception{{
		Type:       "ReportedError",
		Value:      message,
		Stacktrace: sentry.NewStacktrace(),
	}}

	return event
}
