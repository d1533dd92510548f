package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func spanContext(t *testing.T) oteltrace.SpanContext {
	t.Helper()

	traceID, err := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	return oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: oteltrace.FlagsSampled,
	})
}

func TestTraceIDFromContext(t *testing.T) {
	t.Run("nil context", func(t *testing.T) {
		assert.Empty(t, TraceIDFromContext(nil)) //nolint:staticcheck // testing nil guard
	})

	t.Run("no span", func(t *testing.T) {
		assert.Empty(t, TraceIDFromContext(context.Background()))
	})

	t.Run("with span", func(t *testing.T) {
		ctx := oteltrace.ContextWithSpanContext(context.Background(), spanContext(t))
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", TraceIDFromContext(ctx))
	})
}

func TestTraceIDHeader(t *testing.T) {
	sc := spanContext(t)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.Query("traced") == "1" {
			c.Request = c.Request.WithContext(oteltrace.ContextWithSpanContext(c.Request.Context(), sc))
		}
		c.Next()
	})
	router.Use(TraceIDHeader())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	t.Run("sets header when traced", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?traced=1", nil))

		assert.Equal(t, sc.TraceID().String(), w.Header().Get(HeaderTraceID))
	})

	t.Run("omits header without span", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, w.Header().Get(HeaderTraceID))
	})
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_Disabled(t *testing.T) {
	var p *Provider
	assert.False(t, p.Enabled())
	assert.False(t, (&Provider{}).Enabled())

	assert.Equal(t, "tracing", (&Provider{}).Name())
	assert.NoError(t, (&Provider{}).Check(context.Background()))
}

func TestProvider_CheckAfterShutdown(t *testing.T) {
	p := &Provider{tp: sdktrace.NewTracerProvider()}
	ctx := context.Background()

	require.True(t, p.Enabled())
	require.NoError(t, p.Check(ctx))

	require.NoError(t, p.Shutdown(ctx))
	require.NoError(t, p.Shutdown(ctx))
	assert.ErrorIs(t, p.Check(ctx), ErrShutdown)
}

func TestProvider_CheckCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, (&Provider{}).Check(ctx), context.Canceled)
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions(&Config{Endpoint: "collector:4317"}), 1)
	assert.Len(t, exporterOptions(&Config{Endpoint: "collector:4317", Insecure: true}), 2)
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want sdktrace.SamplingDecision
	}{
		{rate: 1, want: sdktrace.RecordAndSample},
		{rate: 2, want: sdktrace.RecordAndSample},
		{rate: 0, want: sdktrace.Drop},
		{rate: -1, want: sdktrace.Drop},
	}

	traceID := spanContext(t).TraceID()

	for _, tt := range tests {
		result := newSampler(tt.rate).ShouldSample(sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			TraceID:       traceID,
			Name:          "root",
		})
		assert.Equal(t, tt.want, result.Decision, "rate %v", tt.rate)
	}

	assert.Contains(t, newSampler(0.5).Description(), "TraceIDRatioBased")
}

func TestRequestMetrics(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	var inFlight float64

	router := gin.New()
	router.Use(RequestMetrics(m))
	router.GET("/items/:id", func(c *gin.Context) {
		inFlight = testutil.ToFloat64(m.activeRequests.WithLabelValues(http.MethodGet, "/items/:id"))
		c.Status(http.StatusCreated)
	})

	for range 2 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.InDelta(t, 1, inFlight, 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.activeRequests.WithLabelValues(http.MethodGet, "/items/:id")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodGet, "/items/:id", "201")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodGet, "", "404")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestRequestMetrics_Nil(t *testing.T) {
	router := gin.New()
	router.Use(RequestMetrics(nil))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
