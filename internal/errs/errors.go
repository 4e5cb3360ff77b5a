// Package errs provides the error type shared by the storage backends and
// the relay service.
//
// Backends wrap provider-native failures into *errs.Error so that callers
// can branch on a small set of kinds without importing a provider package:
//
//	if errs.IsNotFound(err) {
//	    // the object does not exist remotely
//	}
//
// The HTTP layer currently maps every remote kind to the same 500 response;
// the kinds exist so that can change without touching the backends.
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises a failure without exposing provider-specific codes.
type ErrKind int

const (
	ErrKindUnknown      ErrKind = iota
	ErrKindNotFound             // no such object or path
	ErrKindUnauthorized         // bad, expired or insufficient credential
	ErrKindRateLimited          // provider asked us to slow down
	ErrKindTransport            // network failure, 5xx, cancelled context
	ErrKindInvalidInput         // rejected locally before reaching the provider
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindUnauthorized:
		return "unauthorized"
	case ErrKindRateLimited:
		return "rate_limited"
	case ErrKindTransport:
		return "transport"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the storage backends.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // provider-level error, kept for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message and underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsNotFound reports whether err represents a missing remote object.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsUnauthorized reports whether the provider refused the credential.
func IsUnauthorized(err error) bool {
	return KindOf(err) == ErrKindUnauthorized
}

// IsRateLimited reports whether the provider throttled the call.
func IsRateLimited(err error) bool {
	return KindOf(err) == ErrKindRateLimited
}

// IsTransport reports whether err is a connectivity, server-side or
// cancellation failure.
func IsTransport(err error) bool {
	return KindOf(err) == ErrKindTransport
}

// IsInvalidInput reports whether err was raised by local validation.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// KindOf extracts the ErrKind from the first *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
