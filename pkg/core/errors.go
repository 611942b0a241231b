package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Callers branch with errors.Is; LockConflict and
// VersionConflict are retryable, the rest are terminal for the operation.
var (
	// ErrInvalidParameter is returned for malformed query or write input.
	ErrInvalidParameter = errors.New("marl: invalid parameter")

	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("marl: record not found")

	// ErrLockConflict is returned when a container is already locked.
	// The core never waits; retry with backoff is the caller's call.
	ErrLockConflict = errors.New("marl: container already locked")

	// ErrVersionConflict is returned when a write presents a stale version
	// token, i.e. the collection was modified concurrently.
	ErrVersionConflict = errors.New("marl: version token is stale")

	// ErrBackend is returned for connector-level failures.
	ErrBackend = errors.New("marl: backend failure")

	// ErrReadOnly is returned when a write is attempted on a read-only client.
	ErrReadOnly = errors.New("marl: client is read-only")
)

// Error is a structured operation failure carrying the HTTP-ish status code
// surfaced in result envelopes.
type Error struct {
	Kind       error
	Cause      error
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is(err, core.ErrNotFound) etc. work through wrapping.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// StatusOf returns the status code for an error, defaulting unknown errors
// to 502 (backend passthrough).
func StatusOf(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	switch {
	case errors.Is(err, ErrInvalidParameter), errors.Is(err, ErrReadOnly):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, ErrLockConflict):
		return http.StatusLocked
	default:
		return http.StatusBadGateway
	}
}

// Invalid builds an invalid-parameter error.
func Invalid(format string, args ...any) *Error {
	return &Error{
		Kind:       ErrInvalidParameter,
		StatusCode: http.StatusBadRequest,
		Message:    fmt.Sprintf(format, args...),
	}
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{
		Kind:       ErrNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf(format, args...),
	}
}

// LockConflict builds a lock-conflict error for a container.
func LockConflict(container string) *Error {
	return &Error{
		Kind:       ErrLockConflict,
		StatusCode: http.StatusLocked,
		Message:    fmt.Sprintf("container %s is locked by another writer", container),
	}
}

// VersionConflict builds a stale-token error for a container.
func VersionConflict(container string) *Error {
	return &Error{
		Kind:       ErrVersionConflict,
		StatusCode: http.StatusConflict,
		Message:    fmt.Sprintf("collection %s was modified concurrently", container),
	}
}

// Backend wraps a connector failure, keeping the cause in the chain.
func Backend(cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{
		Kind:       ErrBackend,
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
		Message:    msg,
	}
}
