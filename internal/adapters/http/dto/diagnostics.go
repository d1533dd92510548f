package dto

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/jsamuelsen/reqsentry/internal/domain"
	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
)

// Event kinds accepted by CaptureEventRequest.
const (
	KindMessage   = "message"
	KindException = "exception"
)

// ContextSnapshot is the JSON view of a request's error tracking context.
type ContextSnapshot struct {
	RequestID     string            `json:"requestId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Path          string            `json:"path"`
	Tags          map[string]string `json:"tags"`
	Extra         map[string]any    `json:"extra"`
	Breadcrumbs   []BreadcrumbView  `json:"breadcrumbs"`
}

// NewContextSnapshot copies the current state of rc.
func NewContextSnapshot(rc *errortracking.Context) *ContextSnapshot {
	s := &ContextSnapshot{
		Tags:        rc.Tags(),
		Extra:       rc.Extra(),
		Breadcrumbs: []BreadcrumbView{},
	}

	if req := rc.Request(); req != nil {
		s.RequestID = req.CallID()
		s.Path = req.Path()
	}

	for _, b := range rc.Breadcrumbs() {
		s.Breadcrumbs = append(s.Breadcrumbs, NewBreadcrumbView(b))
	}

	return s
}

// BreadcrumbView is the JSON view of a breadcrumb.
type BreadcrumbView struct {
	Type      string         `json:"type,omitempty"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     string         `json:"level,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewBreadcrumbView converts a sentry breadcrumb.
func NewBreadcrumbView(b sentry.Breadcrumb) BreadcrumbView {
	return BreadcrumbView{
		Type:      b.Type,
		Category:  b.Category,
		Message:   b.Message,
		Level:     string(b.Level),
		Data:      b.Data,
		Timestamp: b.Timestamp,
	}
}

// BreadcrumbRequest is a breadcrumb supplied by a client.
type BreadcrumbRequest struct {
	Category string         `json:"category" validate:"required,notempty,max=64"`
	Message  string         `json:"message" validate:"required,max=1024"`
	Level    string         `json:"level" validate:"omitempty,oneof=debug info warning error fatal"`
	Data     map[string]any `json:"data" validate:"omitempty,max=20"`
}

// ToBreadcrumb converts the request into a sentry breadcrumb.
func (b BreadcrumbRequest) ToBreadcrumb() sentry.Breadcrumb {
	level := sentry.LevelInfo
	if b.Level != "" {
		level = sentry.Level(b.Level)
	}

	return sentry.Breadcrumb{
		Type:     "default",
		Category: b.Category,
		Message:  b.Message,
		Level:    level,
		Data:     b.Data,
	}
}

// CaptureEventRequest asks the service to report an event through the
// request's error tracking context. Tags, extras and breadcrumbs are added
// to the context before the event is sent.
type CaptureEventRequest struct {
	Message     string              `json:"message" validate:"required,notempty,max=8192"`
	Kind        string              `json:"kind" validate:"omitempty,oneof=message exception"`
	Level       string              `json:"level" validate:"omitempty,oneof=debug info warning error fatal"`
	Tags        map[string]string   `json:"tags" validate:"omitempty,max=50,dive,keys,tagkey,endkeys,max=200"`
	Extra       map[string]any      `json:"extra" validate:"omitempty,max=50"`
	Breadcrumbs []BreadcrumbRequest `json:"breadcrumbs" validate:"omitempty,max=100,dive"`
}

// Validate rejects extras that would overwrite request enrichment.
func (r *CaptureEventRequest) Validate() error {
	for _, reserved := range []string{errortracking.ExtraCallID, errortracking.ExtraRequestPath} {
		if _, ok := r.Extra[reserved]; ok {
			return domain.NewValidationErrorWithValue("extra", "key is reserved", reserved)
		}
	}

	return nil
}

// EventKind returns the requested kind, defaulting to a message.
func (r *CaptureEventRequest) EventKind() string {
	if r.Kind == "" {
		return KindMessage
	}

	return r.Kind
}

// SentryLevel returns the requested level. Messages default to info and
// exceptions to error.
func (r *CaptureEventRequest) SentryLevel() sentry.Level {
	if r.Level != "" {
		return sentry.Level(r.Level)
	}

	if r.EventKind() == KindException {
		return sentry.LevelError
	}

	return sentry.LevelInfo
}

// CaptureEventResponse reports the outcome of a capture. Sent is false when
// the event was dropped by sampling or filtering.
type CaptureEventResponse struct {
	Sequence uint64 `json:"sequence"`
	EventID  string `json:"eventId,omitempty"`
	Sent     bool   `json:"sent"`
}

// RecentEvent is an entry in the log of events captured by this instance.
type RecentEvent struct {
	Sequence   uint64    `json:"sequence"`
	EventID    string    `json:"eventId,omitempty"`
	Sent       bool      `json:"sent"`
	Kind       string    `json:"kind"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	RequestID  string    `json:"requestId,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// RecentEventSequence orders recent events in a Page.
func RecentEventSequence(e RecentEvent) uint64 {
	return e.Sequence
}
