// Package hosterr holds the runtime's error taxonomy in its own package
// so that pkg/rpc, pkg/txn, pkg/page, pkg/resend, pkg/hostsession and
// pkg/singleshot can all report it without importing the root hostsdk
// package — which itself wires those packages together and would
// otherwise form an import cycle. Root package hostsdk re-exports these
// as type/const aliases so external callers see them as hostsdk.Error,
// hostsdk.ErrTimeout, and so on.
package hosterr

import "fmt"

// ErrorKind enumerates the error taxonomy of spec.md §7. These are kinds,
// not Go types, so callers switch on Kind rather than using errors.As
// against a family of structs.
type ErrorKind string

const (
	ErrTimeout           ErrorKind = "TIMEOUT"
	ErrNotConnected      ErrorKind = "NOT_CONNECTED"
	ErrRenderError       ErrorKind = "RENDER_ERROR"
	ErrCanceled          ErrorKind = "CANCELED"
	ErrTransactionClosed ErrorKind = "TRANSACTION_CLOSED"
	ErrSchemaInvalid     ErrorKind = "SCHEMA_INVALID"
	ErrMethodUnknown     ErrorKind = "METHOD_UNKNOWN"
	ErrMaxRetries        ErrorKind = "MAX_RETRIES"
	ErrFatal             ErrorKind = "FATAL"
)

// Error is the runtime's error type: a Kind plus a human message and an
// optional wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an *Error, optionally wrapping cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// IsKind reports whether err (or something it wraps) is a *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
