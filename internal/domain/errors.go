// Package domain holds the service-level error kinds. Adapters map them to
// responses; nothing here knows about HTTP.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable matches every *UnavailableError.
	ErrUnavailable = errors.New("unavailable")
)

// ValidationError rejects a request. Field is empty when the request as a
// whole is invalid. Value, when set, is the rejected input.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return ErrValidation.Error() + ": " + e.Message
	}

	return fmt.Sprintf("%s for %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Details returns the field to message map carried in error envelopes, or
// nil when no field is named.
func (e *ValidationError) Details() map[string]string {
	if e.Field == "" {
		return nil
	}

	return map[string]string{e.Field: e.Message}
}

// NewValidationError rejects field with message.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue is NewValidationError recording the rejected value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError reports a component the request needs but cannot use,
// such as error tracking on a request that was never primed.
type UnavailableError struct {
	Component string
	Reason    string
}

func (e *UnavailableError) Error() string {
	msg := e.Component + " " + ErrUnavailable.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// NewUnavailableError reports component as unavailable for reason.
func NewUnavailableError(component, reason string) error {
	return &UnavailableError{Component: component, Reason: reason}
}

// IsValidation reports whether err wraps a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsUnavailable reports whether err wraps an unavailable component.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
