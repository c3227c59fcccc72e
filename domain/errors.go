package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by storage lookups when the record does not exist.
var ErrNotFound = errors.New("not found")

// ErrTooLarge is returned when a record does not fit in the document store.
var ErrTooLarge = errors.New("record too large to store")

// ConfigurationError reports a caller setting that must be filled in before
// the requested board or model operation can run. It is never retried.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is not configured; add it in Settings", e.Setting)
}

// MissingSetting builds a ConfigurationError for the named setting.
func MissingSetting(setting string) error {
	return &ConfigurationError{Setting: setting}
}

// RemoteServiceError wraps a failed board API call. Message carries the
// remote error text verbatim.
type RemoteServiceError struct {
	Status  int
	Method  string
	Path    string
	Message string
	Err     error
}

func (e *RemoteServiceError) Error() string {
	switch {
	case e.Status > 0:
		return fmt.Sprintf("board API error %d for %s %s: %s", e.Status, e.Method, e.Path, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("board API unreachable for %s %s: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("board API error for %s %s: %s", e.Method, e.Path, e.Message)
	}
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// CallerFault reports whether the remote service rejected the request
// because of something the caller supplied (bad id, bad credentials).
func (e *RemoteServiceError) CallerFault() bool {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// AmbiguousInputError is returned when a query cannot be classified or a
// name cannot be matched with confidence.
type AmbiguousInputError struct {
	Message string
}

func (e *AmbiguousInputError) Error() string {
	if e.Message == "" {
		return "could not understand the request; please be more specific"
	}
	return e.Message
}

// Ambiguous builds an AmbiguousInputError with a formatted message.
func Ambiguous(format string, args ...any) error {
	return &AmbiguousInputError{Message: fmt.Sprintf(format, args...)}
}

// ModelUnavailableError wraps a failed language model call.
type ModelUnavailableError struct {
	Err error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("language model unavailable: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// IsModelUnavailable reports whether err originates from a failed model call.
func IsModelUnavailable(err error) bool {
	var mErr *ModelUnavailableError
	return errors.As(err, &mErr)
}
