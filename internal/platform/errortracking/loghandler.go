package errortracking

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
)

// BreadcrumbCategoryLog is the category of breadcrumbs recorded from log lines.
const BreadcrumbCategoryLog = "log"

// LogHandler records log lines emitted with a request's ctx as breadcrumbs on
// that request's Context, then hands every record to next. Records logged
// without a primed ctx only reach next.
type LogHandler struct {
	next   slog.Handler
	level  slog.Leveler
	group  string
	redact func([]string, slog.Attr) slog.Attr
}

// NewLogHandler wraps next. Records below level are not recorded as
// breadcrumbs. Attribute values pass through the logging redaction rules
// before they are attached.
func NewLogHandler(next slog.Handler, level slog.Leveler) *LogHandler {
	if level == nil {
		level = slog.LevelWarn
	}

	return &LogHandler{
		next:   next,
		level:  level,
		redact: logging.NewReplaceAttr(),
	}
}

// LogBreadcrumbs returns a logging middleware installing a LogHandler.
func LogBreadcrumbs(level slog.Leveler) logging.HandlerMiddleware {
	return func(next slog.Handler) slog.Handler {
		return NewLogHandler(next, level)
	}
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.next.Enabled(ctx, level) {
		return true
	}

	return level >= h.level.Level() && activeContext(ctx) != nil
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	if r.Level >= h.level.Level() {
		if rc := activeContext(ctx); rc != nil {
			rc.RecordBreadcrumb(h.breadcrumb(r))
		}
	}

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}

	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler. Logger-level attributes such as the
// request id already reach events as tags and are not copied to breadcrumbs.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)

	return &clone
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.group = joinKey(h.group, name)

	return &clone
}

func (h *LogHandler) breadcrumb(r slog.Record) sentry.Breadcrumb { //nolint:gocritic // record is passed by value throughout slog
	var data map[string]any
	if r.NumAttrs() > 0 {
		data = make(map[string]any, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			h.flatten(data, h.group, nil, a)
			return true
		})
	}

	return sentry.Breadcrumb{
		Type:      "default",
		Category:  BreadcrumbCategoryLog,
		Message:   r.Message,
		Level:     sentryLevel(r.Level),
		Data:      data,
		Timestamp: r.Time,
	}
}

// flatten writes a into dst with group names joined by dots.
func (h *LogHandler) flatten(dst map[string]any, prefix string, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup {
		a = h.redact(groups, a)
	}

	if a.Equal(slog.Attr{}) {
		return
	}

	key := joinKey(prefix, a.Key)

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			groups = append(groups, a.Key)
		}
		for _, ga := range a.Value.Group() {
			h.flatten(dst, key, groups, ga)
		}
		return
	}

	dst[key] = a.Value.Any()
}

// activeContext returns the Context of the request primed into ctx, or nil.
func activeContext(ctx context.Context) *Context {
	b, ok := bindingFromContext(ctx)
	if !ok || b.request == nil || b.request.Attributes() == nil {
		return nil
	}

	rc, err := b.request.contexts().get()
	if err != nil {
		return nil
	}

	return rc
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func sentryLevel(level slog.Level) sentry.Level {
	switch {
	case level < slog.LevelInfo:
		return sentry.LevelDebug
	case level < slog.LevelWarn:
		return sentry.LevelInfo
	case level < slog.LevelError:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}
