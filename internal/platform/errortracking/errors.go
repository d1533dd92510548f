package errortracking

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNoActiveContext indicates no request context is reachable from the
	// caller's context.Context, or the request's context was already removed.
	ErrNoActiveContext = errors.New("no active error tracking context")

	// ErrMissingDSN indicates no DSN was configured and the environment
	// fallback was empty too.
	ErrMissingDSN = errors.New("error tracking DSN is not configured")

	// ErrFeatureNotInstalled indicates the request pipeline has no error
	// tracking feature; callers degrade to the process-wide default client.
	ErrFeatureNotInstalled = errors.New("error tracking feature not installed")
)

// ConfigurationError reports an invalid or missing option at installation time.
type ConfigurationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("error tracking configuration: %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying cause for errors.Is() support.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
