package errortracking

import (
	"context"
	"sync"
)

// ContextManager resolves the Context that applies to a call.
// The client consults it for every event instead of holding global state.
type ContextManager interface {
	// CurrentContext returns the Context for the request bound to ctx.
	CurrentContext(ctx context.Context) (*Context, error)

	// Clear replaces the Context for the request bound to ctx with a fresh one.
	Clear(ctx context.Context) error
}

type bindingKey struct{}

// binding is what priming stores in a context.Context.
type binding struct {
	feature *Feature
	request *Request
}

func withBinding(ctx context.Context, b binding) context.Context {
	return context.WithValue(ctx, bindingKey{}, b)
}

func bindingFromContext(ctx context.Context) (binding, bool) {
	if ctx == nil {
		return binding{}, false
	}

	b, ok := ctx.Value(bindingKey{}).(binding)

	return b, ok
}

// RequestFromContext returns the request handle primed into ctx.
func RequestFromContext(ctx context.Context) (*Request, bool) {
	b, ok := bindingFromContext(ctx)
	if !ok {
		return nil, false
	}

	return b.request, true
}

// requestContextManager resolves through the request bound to ctx. The
// request's attribute store stays the source of truth, so a Context removed
// at cleanup or replaced by Clear is never returned.
type requestContextManager struct {
	feature *Feature
}

func (m *requestContextManager) CurrentContext(ctx context.Context) (*Context, error) {
	b, ok := bindingFromContext(ctx)
	if !ok || b.request == nil {
		return nil, ErrNoActiveContext
	}

	return b.request.contexts().get()
}

func (m *requestContextManager) Clear(ctx context.Context) error {
	b, ok := bindingFromContext(ctx)
	if !ok || b.request == nil {
		return ErrNoActiveContext
	}

	_, err := m.feature.Reset(b.request)

	return err
}

// staticContextManager holds a single process-wide Context. It is what the
// default client uses when no request is involved.
type staticContextManager struct {
	mu      sync.Mutex
	current *Context
}

func newStaticContextManager(maxBreadcrumbs int) *staticContextManager {
	return &staticContextManager{current: NewContext(nil, maxBreadcrumbs)}
}

func (m *staticContextManager) CurrentContext(context.Context) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current, nil
}

func (m *staticContextManager) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = m.current.Reset()

	return nil
}
