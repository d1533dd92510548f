package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
)

const testDSN = "https://public@sentry.example.com/1"

// eventSink collects events handed to BeforeSend and drops them.
type eventSink struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (s *eventSink) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	return nil
}

func (s *eventSink) all() []*sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*sentry.Event(nil), s.events...)
}

func newTestFeature(t *testing.T, overrides ...func(*errortracking.Options)) (*errortracking.Feature, *eventSink) {
	t.Helper()

	sink := &eventSink{}

	opts := errortracking.DefaultOptions()
	opts.DSN = testDSN
	opts.Async.Enabled = false
	opts.BeforeSend = sink.beforeSend
	opts.Registerer = prometheus.NewRegistry()

	feature, err := errortracking.Install(opts, slog.New(slog.NewTextHandler(io.Discard, nil)), overrides...)
	require.NoError(t, err)

	return feature, sink
}

func TestErrorTracking_InitAndCleanup(t *testing.T) {
	feature, _ := newTestFeature(t)

	var (
		captured *errortracking.Context
		req      *errortracking.Request
	)

	router := gin.New()
	router.Use(RequestID(), ErrorTracking(feature))
	router.GET("/orders/:id", func(c *gin.Context) {
		var ok bool
		req, ok = GetErrorTrackingRequest(c)
		require.True(t, ok)

		ctx, client := ErrorTrackingClient(c)

		var err error
		captured, err = client.Context(ctx)
		require.NoError(t, err)

		c.Status(http.StatusOK)
	})

	httpReq := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	httpReq.Header.Set(HeaderRequestID, "req-1")
	router.ServeHTTP(httptest.NewRecorder(), httpReq)

	require.NotNil(t, captured)
	assert.Equal(t, "req-1", captured.Extra()[errortracking.ExtraCallID])
	assert.Equal(t, "/orders/42", captured.Extra()[errortracking.ExtraRequestPath])

	// Cleanup cleared the Context from the request's store.
	stored, _ := req.Attributes().Get(errortracking.ContextAttributeKey)
	assert.Nil(t, stored)
}

func TestErrorTracking_ContextsAreIsolated(t *testing.T) {
	feature, sink := newTestFeature(t)

	router := gin.New()
	router.Use(RequestID(), ErrorTracking(feature))
	router.GET("/tag/:value", func(c *gin.Context) {
		ctx, client := ErrorTrackingClient(c)
		require.NoError(t, client.AddTag(ctx, "tenant", c.Param("value")))

		_, err := client.CaptureMessage(ctx, "tagged", sentry.LevelInfo)
		require.NoError(t, err)

		c.Status(http.StatusOK)
	})

	for _, v := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tag/"+v, nil))
	}

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Tags["tenant"])
	assert.Equal(t, "b", events[1].Tags["tenant"])
}

func TestErrorTracking_NilFeaturePassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(ErrorTracking(nil))
	router.GET("/test", func(c *gin.Context) {
		_, ok := GetErrorTrackingRequest(c)
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGinAttributes(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	attrs := ginAttributes{c: c}

	_, ok := attrs.Get("k")
	assert.False(t, ok)

	attrs.Set("k", "v")
	v, ok := attrs.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	attrs.Delete("k")
	v, _ = attrs.Get("k")
	assert.Nil(t, v)

	attrs.Delete("missing")
	v, _ = attrs.Get("missing")
	assert.Nil(t, v)
}

func TestGinAttributes_DeleteWhileReading(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	attrs := ginAttributes{c: c}
	attrs.Set("k", "v")

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				attrs.Get("k")
			}
		}()
	}

	for range 100 {
		attrs.Delete("k")
	}
	wg.Wait()

	v, _ := attrs.Get("k")
	assert.Nil(t, v)
}

func TestRecovery_ReportsPanic(t *testing.T) {
	feature, sink := newTestFeature(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(RequestID(), ErrorTracking(feature), Recovery(logger))
	router.GET("/boom", func(c *gin.Context) {
		ctx, client := ErrorTrackingClient(c)
		require.NoError(t, client.AddTag(ctx, "stage", "before-panic"))
		panic(errors.New("boom"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, sentry.LevelFatal, events[0].Level)
	assert.Equal(t, "before-panic", events[0].Tags["stage"])
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "boom", events[0].Exception[len(events[0].Exception)-1].Value)
}

func TestRecovery_UncaughtHandlerDisabled(t *testing.T) {
	feature, sink := newTestFeature(t, func(o *errortracking.Options) {
		o.UncaughtHandlerEnabled = false
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(ErrorTracking(feature), Recovery(logger))
	router.GET("/boom", func(*gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, sink.all())
}

func TestLogging_RecordsBreadcrumb(t *testing.T) {
	feature, sink := newTestFeature(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(ErrorTracking(feature), Logging(logger))
	router.GET("/api/items", func(c *gin.Context) {
		ctx, client := ErrorTrackingClient(c)
		_, err := client.CaptureMessage(ctx, "listing", sentry.LevelInfo)
		require.NoError(t, err)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items?page=2", nil))

	events := sink.all()
	require.Len(t, events, 1)
	require.Len(t, events[0].Breadcrumbs, 1)
	assert.Equal(t, "GET /api/items?page=2", events[0].Breadcrumbs[0].Message)
	assert.Equal(t, "http", events[0].Breadcrumbs[0].Type)
}

func TestErrorTrackingClient_FallsBackOutsidePipeline(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

	ctx, client := ErrorTrackingClient(c)
	require.NotNil(t, client)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), errortracking.ErrFeatureNotInstalled.Error())

	// The default client shares one Context regardless of request.
	rc, err := client.Context(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rc)
}

func TestTimeout_RecordedAsLogBreadcrumb(t *testing.T) {
	feature, _ := newTestFeature(t)
	logger := slog.New(errortracking.NewLogHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelWarn))

	var crumbs []sentry.Breadcrumb

	router := gin.New()
	router.Use(RequestID(), ErrorTracking(feature))
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()

		ctx, client := ErrorTrackingClient(c)
		rc, err := client.Context(ctx)
		require.NoError(t, err)
		crumbs = rc.Breadcrumbs()
	})
	router.Use(Timeout(10 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.Len(t, crumbs, 1)
	assert.Equal(t, errortracking.BreadcrumbCategoryLog, crumbs[0].Category)
	assert.Equal(t, "request timeout", crumbs[0].Message)
	assert.Equal(t, sentry.LevelWarning, crumbs[0].Level)
}
