// Package errors defines the structured error taxonomy the synchronization
// engine uses to propagate failures without hiding their upstream kind.
package errors

import "fmt"

// Kind categorizes an error for policy decisions (retry, skip, abort, fatal).
type Kind string

const (
	// Upstream (ObjectSource) kinds.
	KindBadRequest      Kind = "bad_request"
	KindConnection      Kind = "connection"
	KindInternalServer  Kind = "internal_server"
	KindUnauthorized    Kind = "unauthorized"
	KindAccessForbidden Kind = "access_forbidden"
	KindNotFound        Kind = "not_found"
	KindUnprocessable   Kind = "unprocessable"
	KindFailed          Kind = "failed"

	// Local kinds.
	KindCorruptState Kind = "corrupt_state"
	KindIOError      Kind = "io_error"
	KindPublishError Kind = "publish_error"
	KindConfigError  Kind = "config_error"
)

// SyncError is a structured error carrying the taxonomy kind plus context.
type SyncError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// New creates a SyncError with no wrapped cause.
func New(kind Kind, message string) *SyncError {
	return &SyncError{Kind: kind, Message: message}
}

// Wrap creates a SyncError wrapping an existing error.
func Wrap(kind Kind, message string, err error) *SyncError {
	return &SyncError{Kind: kind, Message: message, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*SyncError)
	if !ok {
		return false
	}
	return se.Kind == kind
}

// Retryable reports whether a later tick is worth retrying this kind of
// failure. NotFound is the one upstream kind that is tolerated by skipping
// the affected child instead of retried.
func Retryable(err error) bool {
	se, ok := err.(*SyncError)
	if !ok {
		return false
	}
	switch se.Kind {
	case KindNotFound:
		return false
	case KindBadRequest, KindConfigError, KindCorruptState:
		return false
	default:
		return true
	}
}
