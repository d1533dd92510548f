package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type idCase struct {
	name       string
	header     string
	middleware func() gin.HandlerFunc
	fromGin    func(*gin.Context) string
	fromCtx    func(context.Context) string
}

var idCases = []idCase{
	{
		name:       "request id",
		header:     HeaderRequestID,
		middleware: RequestID,
		fromGin:    GetRequestID,
		fromCtx:    RequestIDFromContext,
	},
	{
		name:       "correlation id",
		header:     HeaderCorrelationID,
		middleware: CorrelationID,
		fromGin:    GetCorrelationID,
		fromCtx:    CorrelationIDFromContext,
	},
}

// serveID runs a single request through the ID middleware and returns the
// ID seen by the handler through gin and through the request context.
func serveID(t *testing.T, tc idCase, inbound string) (w *httptest.ResponseRecorder, ginID, ctxID string) {
	t.Helper()

	router := gin.New()
	router.Use(tc.middleware())
	router.GET("/orders", func(c *gin.Context) {
		ginID = tc.fromGin(c)
		ctxID = tc.fromCtx(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	if inbound != "" {
		req.Header.Set(tc.header, inbound)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, ginID, ctxID
}

func TestIDMiddleware_PropagatesInboundID(t *testing.T) {
	t.Parallel()

	for _, tc := range idCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w, ginID, ctxID := serveID(t, tc, "upstream-42")

			assert.Equal(t, "upstream-42", w.Header().Get(tc.header))
			assert.Equal(t, "upstream-42", ginID)
			assert.Equal(t, "upstream-42", ctxID)
		})
	}
}

func TestIDMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	inbound := []struct {
		name  string
		value string
	}{
		{name: "missing", value: ""},
		{name: "too long", value: strings.Repeat("a", maxIDLength+1)},
		{name: "whitespace", value: "has space"},
		{name: "control character", value: "id\x00"},
	}

	for _, tc := range idCases {
		for _, in := range inbound {
			t.Run(tc.name+"/"+in.name, func(t *testing.T) {
				t.Parallel()

				w, ginID, ctxID := serveID(t, tc, in.value)

				_, err := uuid.Parse(ginID)
				require.NoError(t, err)
				assert.Equal(t, ginID, ctxID)
				assert.Equal(t, ginID, w.Header().Get(tc.header))
			})
		}
	}
}

func TestIDMiddleware_UniquePerRequest(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 20 {
		_, id, _ := serveID(t, idCases[0], "")
		seen[id] = struct{}{}
	}

	assert.Len(t, seen, 20)
}

func TestMustGetIDs(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "unknown", MustGetRequestID(c))
	assert.Equal(t, "unknown", MustGetCorrelationID(c))
	assert.Empty(t, GetRequestID(c))

	c.Set(ContextKeyRequestID, "req-1")
	c.Set(ContextKeyCorrelationID, "corr-1")
	assert.Equal(t, "req-1", MustGetRequestID(c))
	assert.Equal(t, "corr-1", MustGetCorrelationID(c))
}

func TestIDsFromContext(t *testing.T) {
	t.Parallel()

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestValidID(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"":                                     false,
		"req-1":                                true,
		"550e8400-e29b-41d4-a716-446655440000": true,
		"tab\tinside":                          false,
		strings.Repeat("x", maxIDLength):       true,
		strings.Repeat("x", maxIDLength+1):     false,
	}

	for id, want := range tests {
		assert.Equal(t, want, validID(id), "id %q", id)
	}
}
