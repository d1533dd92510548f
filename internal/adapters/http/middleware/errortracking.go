package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
)

// ContextKeyErrorTracking is the gin.Context key holding the request's
// error tracking handle.
const ContextKeyErrorTracking = "error_tracking_request"

// ginAttributes exposes gin.Context keys as the request attribute store, so
// the error tracking Context lives and dies with the gin request.
type ginAttributes struct {
	c *gin.Context
}

func (a ginAttributes) Set(key string, value any) {
	a.c.Set(key, value)
}

func (a ginAttributes) Get(key string) (any, bool) {
	return a.c.Get(key)
}

// Delete clears key under gin's lock. gin has no delete, so the key stays
// with a nil value, which the error tracking store reads as absent.
func (a ginAttributes) Delete(key string) {
	a.c.Set(key, nil)
}

// ErrorTracking returns middleware that scopes an error tracking Context to
// each request. It must run after RequestID and before Recovery so that
// panics are reported with the request's tags and breadcrumbs. A nil
// feature turns the middleware into a pass-through.
func ErrorTracking(feature *errortracking.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		if feature == nil {
			c.Next()
			return
		}

		req := errortracking.NewRequest(ginAttributes{c: c}, GetRequestID(c), c.Request.URL.Path)
		c.Set(ContextKeyErrorTracking, req)

		c.Request = c.Request.WithContext(feature.Init(c.Request.Context(), req))
		defer feature.Cleanup(req)

		c.Next()
	}
}

// GetErrorTrackingRequest returns the error tracking handle of the request.
func GetErrorTrackingRequest(c *gin.Context) (*errortracking.Request, bool) {
	v, ok := c.Get(ContextKeyErrorTracking)
	if !ok {
		return nil, false
	}

	req, ok := v.(*errortracking.Request)

	return req, ok && req != nil
}

// ErrorTrackingClient returns the client for the current request along with
// the context to report through. Outside the ErrorTracking middleware it
// logs a warning and falls back to the default client.
func ErrorTrackingClient(c *gin.Context) (context.Context, *errortracking.Client) {
	ctx := c.Request.Context()

	return ctx, errortracking.CurrentClient(ctx)
}
