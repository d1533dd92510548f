package errortracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/jsamuelsen/reqsentry/internal/platform/telemetry"
)

// maxErrorDepth bounds how many wrapped errors become exceptions.
const maxErrorDepth = 10

// Client sends events enriched with the Context its ContextManager resolves.
// A Client without an underlying sentry client accepts and discards events.
type Client struct {
	sentry  *sentry.Client
	manager ContextManager
	opts    Options
	dsn     string
	metrics *Metrics
	logger  *slog.Logger
}

// ContextManager returns the manager the client resolves contexts with.
func (c *Client) ContextManager() ContextManager {
	return c.manager
}

// Options returns the options the client was built from.
func (c *Client) Options() Options {
	return c.opts
}

// DSN returns the DSN including serialized options.
func (c *Client) DSN() string {
	return c.dsn
}

// Context returns the Context for the request bound to ctx.
func (c *Client) Context(ctx context.Context) (*Context, error) {
	return c.manager.CurrentContext(ctx)
}

// AddTag adds a tag to the current Context.
func (c *Client) AddTag(ctx context.Context, name, value string) error {
	rc, err := c.Context(ctx)
	if err != nil {
		return err
	}

	rc.AddTag(name, value)

	return nil
}

// AddExtra adds an extra entry to the current Context.
func (c *Client) AddExtra(ctx context.Context, key string, value any) error {
	rc, err := c.Context(ctx)
	if err != nil {
		return err
	}

	rc.AddExtra(key, value)

	return nil
}

// RecordBreadcrumb appends a breadcrumb to the current Context.
func (c *Client) RecordBreadcrumb(ctx context.Context, b sentry.Breadcrumb) error {
	rc, err := c.Context(ctx)
	if err != nil {
		return err
	}

	rc.RecordBreadcrumb(b)

	return nil
}

// ClearContext replaces the current Context with an empty one.
func (c *Client) ClearContext(ctx context.Context) error {
	return c.manager.Clear(ctx)
}

// Send delivers event with the current Context applied. It fails with
// ErrNoActiveContext when ctx does not resolve to a Context; nothing is sent
// in that case. A nil ID with a nil error means the event was dropped
// (sampling, BeforeSend, or no backend configured).
func (c *Client) Send(ctx context.Context, event *sentry.Event) (*sentry.EventID, error) {
	return c.send(ctx, event, nil)
}

// CaptureException reports err and the errors it wraps.
func (c *Client) CaptureException(ctx context.Context, err error) (*sentry.EventID, error) {
	return c.send(ctx, eventFromError(err, sentry.LevelError), &sentry.EventHint{OriginalException: err})
}

// CaptureMessage reports a plain message.
func (c *Client) CaptureMessage(ctx context.Context, message string, level sentry.Level) (*sentry.EventID, error) {
	return c.send(ctx, eventFromMessage(message, level), nil)
}

// Recover reports a value obtained from recover(). A nil value is ignored.
func (c *Client) Recover(ctx context.Context, recovered any) (*sentry.EventID, error) {
	if recovered == nil {
		return nil, nil
	}

	var event *sentry.Event
	if err, ok := recovered.(error); ok {
		event = eventFromError(err, sentry.LevelFatal)
	} else {
		event = eventFromMessage(fmt.Sprint(recovered), sentry.LevelFatal)
	}

	return c.send(ctx, event, &sentry.EventHint{RecoveredException: recovered})
}

// Flush waits up to timeout for buffered events to be delivered.
func (c *Client) Flush(timeout time.Duration) bool {
	if c.sentry == nil {
		return true
	}

	return c.sentry.Flush(timeout)
}

// Close flushes pending events when graceful shutdown is enabled.
func (c *Client) Close() {
	if !c.opts.Async.GracefulShutdown {
		return
	}

	if !c.Flush(c.opts.Async.ShutdownTimeout) {
		c.logger.Warn("error tracking events not flushed before shutdown",
			slog.Duration("timeout", c.opts.Async.ShutdownTimeout),
		)
	}
}

func (c *Client) send(ctx context.Context, event *sentry.Event, hint *sentry.EventHint) (*sentry.EventID, error) {
	rc, err := c.manager.CurrentContext(ctx)
	if err != nil {
		c.metrics.event(outcomeFailed)
		return nil, fmt.Errorf("sending event: %w", err)
	}

	scope := rc.scope()
	c.applyRequestTags(ctx, rc, scope)

	if c.sentry == nil {
		c.metrics.event(outcomeDropped)
		return nil, nil
	}

	id := c.sentry.CaptureEvent(event, hint, scope)
	if id == nil {
		c.metrics.event(outcomeDropped)
		return nil, nil
	}

	c.metrics.event(outcomeSent)

	return id, nil
}

// applyRequestTags copies configured request attributes and the active
// trace ID onto the event scope.
func (c *Client) applyRequestTags(ctx context.Context, rc *Context, scope *sentry.Scope) {
	if req := rc.Request(); req != nil && req.Attributes() != nil {
		for _, name := range c.opts.MDCTags {
			v, ok := req.Attributes().Get(name)
			if !ok {
				continue
			}
			if s, ok := v.(string); ok && s != "" {
				scope.SetTag(name, s)
			}
		}
	}

	if traceID := telemetry.TraceIDFromContext(ctx); traceID != "" {
		scope.SetTag("trace_id", traceID)
	}
}

func eventFromMessage(message string, level sentry.Level) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = level
	event.Message = message

	return event
}

func eventFromError(err error, level sentry.Level) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = level

	for i := 0; err != nil && i < maxErrorDepth; i++ {
		event.Exception = append(event.Exception, sentry.Exception{
			Type:       reflect.TypeOf(err).String(),
			Value:      err.Error(),
			Stacktrace: sentry.ExtractStacktrace(err),
		})
		err = errors.Unwrap(err)
	}

	if len(event.Exception) > 0 && event.Exception[0].Stacktrace == nil {
		event.Exception[0].Stacktrace = sentry.NewStacktrace()
	}

	// Innermost error first.
	slices.Reverse(event.Exception)

	return event
}

// chainBeforeSend applies option-driven event processing, then next.
func chainBeforeSend(
	opts Options,
	next func(*sentry.Event, *sentry.EventHint) *sentry.Event,
) func(*sentry.Event, *sentry.EventHint) *sentry.Event {
	return func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
		applyDefaults(event, opts)
		truncateMessage(event, opts.MaxMessageLength)
		markInApp(event, opts.StacktraceAppPackages, opts.StacktraceHideCommon)

		if next != nil {
			return next(event, hint)
		}

		return event
	}
}

// applyDefaults adds configured tags and extras the event does not carry yet.
func applyDefaults(event *sentry.Event, opts Options) {
	if len(opts.Tags) > 0 && event.Tags == nil {
		event.Tags = make(map[string]string, len(opts.Tags))
	}
	for k, v := range opts.Tags {
		if _, ok := event.Tags[k]; !ok {
			event.Tags[k] = v
		}
	}

	if len(opts.Extra) > 0 && event.Extra == nil {
		event.Extra = make(map[string]any, len(opts.Extra))
	}
	for k, v := range opts.Extra {
		if _, ok := event.Extra[k]; !ok {
			event.Extra[k] = v
		}
	}
}

func truncateMessage(event *sentry.Event, limit int) {
	if limit <= 0 {
		return
	}

	if runes := []rune(event.Message); len(runes) > limit {
		event.Message = string(runes[:limit])
	}
}

// markInApp flags frames from the application packages. With hideCommon,
// frames outside them are dropped as long as at least one in-app frame remains.
func markInApp(event *sentry.Event, packages []string, hideCommon bool) {
	if len(packages) == 0 {
		return
	}

	for i := range event.Exception {
		st := event.Exception[i].Stacktrace
		if st == nil {
			continue
		}

		inApp := make([]sentry.Frame, 0, len(st.Frames))
		for j := range st.Frames {
			st.Frames[j].InApp = hasAnyPrefix(st.Frames[j].Module, packages)
			if st.Frames[j].InApp {
				inApp = append(inApp, st.Frames[j])
			}
		}

		if hideCommon && len(inApp) > 0 {
			st.Frames = inApp
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}
