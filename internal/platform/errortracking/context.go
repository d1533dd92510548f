package errortracking

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Context is the diagnostic data collected for exactly one request.
// It is created by the feature's init hook and dropped at cleanup.
type Context struct {
	request        *Request
	maxBreadcrumbs int

	mu          sync.Mutex
	tags        map[string]string
	extra       map[string]any
	breadcrumbs []sentry.Breadcrumb
}

// NewContext creates an empty Context owned by req. A non-positive
// maxBreadcrumbs falls back to DefaultMaxBreadcrumbs.
func NewContext(req *Request, maxBreadcrumbs int) *Context {
	if maxBreadcrumbs <= 0 {
		maxBreadcrumbs = DefaultMaxBreadcrumbs
	}

	return &Context{
		request:        req,
		maxBreadcrumbs: maxBreadcrumbs,
		tags:           make(map[string]string),
		extra:          make(map[string]any),
	}
}

// Request returns the request this Context belongs to. It is nil for the
// process-wide context of the default client.
func (c *Context) Request() *Request {
	return c.request
}

// AddTag sets a tag, replacing any previous value.
func (c *Context) AddTag(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tags[name] = value
}

// AddExtra sets an extra entry, replacing any previous value.
func (c *Context) AddExtra(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.extra[key] = value
}

// RecordBreadcrumb appends a breadcrumb, dropping the oldest one once the
// limit is reached.
func (c *Context) RecordBreadcrumb(b sentry.Breadcrumb) {
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.breadcrumbs = append(c.breadcrumbs, b)
	if over := len(c.breadcrumbs) - c.maxBreadcrumbs; over > 0 {
		c.breadcrumbs = slices.Delete(c.breadcrumbs, 0, over)
	}
}

// Tags returns a copy of the tags.
func (c *Context) Tags() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.tags)
}

// Extra returns a copy of the extra entries.
func (c *Context) Extra() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.extra)
}

// Breadcrumbs returns a copy of the breadcrumbs, oldest first.
func (c *Context) Breadcrumbs() []sentry.Breadcrumb {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.breadcrumbs)
}

// Reset returns a fresh, empty Context bound to the same request.
// The receiver is left untouched; callers replace their reference.
func (c *Context) Reset() *Context {
	return NewContext(c.request, c.maxBreadcrumbs)
}

// scope converts the Context into a sentry scope for a single event.
func (c *Context) scope() *sentry.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := sentry.NewScope()
	s.SetTags(c.tags)
	s.SetExtras(c.extra)

	for i := range c.breadcrumbs {
		b := c.breadcrumbs[i]
		s.AddBreadcrumb(&b, c.maxBreadcrumbs)
	}

	return s
}
