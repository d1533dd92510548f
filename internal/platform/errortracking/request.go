package errortracking

// Request is the handle for one in-flight request. Its identity is the
// pointer itself; the Context created for it keeps a reference back to it.
type Request struct {
	attrs  AttributeStore
	callID string
	path   string
}

// NewRequest creates a request handle backed by the pipeline's per-request
// attribute store. callID may be empty when the pipeline assigned none.
func NewRequest(attrs AttributeStore, callID, path string) *Request {
	return &Request{
		attrs:  attrs,
		callID: callID,
		path:   path,
	}
}

// CallID returns the identifier the pipeline assigned to the request.
func (r *Request) CallID() string {
	return r.callID
}

// Path returns the request path.
func (r *Request) Path() string {
	return r.path
}

// Attributes returns the request's attribute store.
func (r *Request) Attributes() AttributeStore {
	return r.attrs
}

func (r *Request) contexts() contextStore {
	return contextStore{attrs: r.attrs}
}
