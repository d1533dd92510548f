package errortracking

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogHandlerFixture(t *testing.T, level slog.Level) (*slog.Logger, *bytes.Buffer, context.Context, *Context) {
	t.Helper()

	f, _ := newTestFeature(t)
	ctx := f.Init(context.Background(), NewRequest(NewMapStore(), "call-1", "/orders"))

	rc, err := f.Client().Context(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	next := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	return slog.New(NewLogHandler(next, level)), &buf, ctx, rc
}

func TestLogHandler_RecordsBreadcrumbs(t *testing.T) {
	logger, buf, ctx, rc := newLogHandlerFixture(t, slog.LevelWarn)

	logger.InfoContext(ctx, "below threshold")
	logger.WarnContext(ctx, "payment retry", slog.String("provider", "acme"), slog.Int("attempt", 2))

	crumbs := rc.Breadcrumbs()
	require.Len(t, crumbs, 1)
	assert.Equal(t, BreadcrumbCategoryLog, crumbs[0].Category)
	assert.Equal(t, "payment retry", crumbs[0].Message)
	assert.Equal(t, sentry.LevelWarning, crumbs[0].Level)
	assert.Equal(t, "acme", crumbs[0].Data["provider"])
	assert.Equal(t, int64(2), crumbs[0].Data["attempt"])

	assert.Contains(t, buf.String(), "below threshold")
	assert.Contains(t, buf.String(), "payment retry")
}

func TestLogHandler_BelowSinkLevel(t *testing.T) {
	logger, buf, ctx, rc := newLogHandlerFixture(t, slog.LevelDebug)

	logger.DebugContext(ctx, "cache miss")

	require.Len(t, rc.Breadcrumbs(), 1)
	assert.Equal(t, sentry.LevelDebug, rc.Breadcrumbs()[0].Level)
	assert.Empty(t, buf.String())
}

func TestLogHandler_WithoutPrimedContext(t *testing.T) {
	logger, buf, _, rc := newLogHandlerFixture(t, slog.LevelDebug)

	logger.Error("outside request")

	assert.Empty(t, rc.Breadcrumbs())
	assert.Contains(t, buf.String(), "outside request")
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestLogHandler_GroupsAndRedaction(t *testing.T) {
	logger, _, ctx, rc := newLogHandlerFixture(t, slog.LevelInfo)

	logger.WithGroup("upstream").With(slog.String("ignored", "x")).InfoContext(ctx, "called",
		slog.Group("http", slog.Int("status", 502)),
		slog.String("password", "hunter2"),
	)

	crumbs := rc.Breadcrumbs()
	require.Len(t, crumbs, 1)
	assert.Equal(t, int64(502), crumbs[0].Data["upstream.http.status"])
	assert.NotEqual(t, "hunter2", crumbs[0].Data["upstream.password"])
	assert.NotContains(t, crumbs[0].Data, "upstream.ignored")
}

func TestLogHandler_AfterCleanup(t *testing.T) {
	f, _ := newTestFeature(t)
	req := NewRequest(NewMapStore(), "", "/")
	ctx := f.Init(context.Background(), req)
	f.Cleanup(req)

	logger := slog.New(NewLogHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo))

	assert.NotPanics(t, func() { logger.ErrorContext(ctx, "late") })
}

func TestLogBreadcrumbs(t *testing.T) {
	wrapped := LogBreadcrumbs(slog.LevelError)(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h, ok := wrapped.(*LogHandler)
	require.True(t, ok)
	assert.Equal(t, slog.LevelError, h.level.Level())
}

func TestSentryLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  sentry.Level
	}{
		{slog.LevelDebug, sentry.LevelDebug},
		{slog.LevelInfo, sentry.LevelInfo},
		{slog.LevelWarn, sentry.LevelWarning},
		{slog.LevelError, sentry.LevelError},
		{slog.LevelError + 4, sentry.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, sentryLevel(tt.level))
		})
	}
}
