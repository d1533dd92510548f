package errortracking

import "sync"

// ContextAttributeKey is the attribute key holding a request's Context.
const ContextAttributeKey = "errortracking.context"

// AttributeStore is the per-request key/value store supplied by the host
// pipeline. Each request owns its own store.
type AttributeStore interface {
	Set(key string, value any)
	Get(key string) (any, bool)
	Delete(key string)
}

// contextStore gives typed access to the Context slot of an AttributeStore.
type contextStore struct {
	attrs AttributeStore
}

func (s contextStore) put(c *Context) {
	s.attrs.Set(ContextAttributeKey, c)
}

func (s contextStore) get() (*Context, error) {
	v, ok := s.attrs.Get(ContextAttributeKey)
	if !ok {
		return nil, ErrNoActiveContext
	}

	c, ok := v.(*Context)
	if !ok || c == nil {
		return nil, ErrNoActiveContext
	}

	return c, nil
}

// held reports whether a Context is stored. Stores that clear a key by
// setting it to nil count as empty.
func (s contextStore) held() bool {
	_, err := s.get()
	return err == nil
}

func (s contextStore) remove() bool {
	ok := s.held()
	s.attrs.Delete(ContextAttributeKey)

	return ok
}

// MapStore is an in-memory AttributeStore for pipelines without one.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{values: make(map[string]any)}
}

// Set stores value under key.
func (m *MapStore) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
}

// Get returns the value stored under key.
func (m *MapStore) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]

	return v, ok
}

// Delete removes key.
func (m *MapStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
}
