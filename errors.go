package hostsdk

import "github.com/chronicals/sdk/pkg/hosterr"

// ErrorKind enumerates the error taxonomy of spec.md §7. Aliased from
// pkg/hosterr, which the runtime's internal packages report against
// directly to avoid importing this package (see pkg/hosterr's doc
// comment for why).
type ErrorKind = hosterr.ErrorKind

const (
	ErrTimeout           = hosterr.ErrTimeout
	ErrNotConnected      = hosterr.ErrNotConnected
	ErrRenderError       = hosterr.ErrRenderError
	ErrCanceled          = hosterr.ErrCanceled
	ErrTransactionClosed = hosterr.ErrTransactionClosed
	ErrSchemaInvalid     = hosterr.ErrSchemaInvalid
	ErrMethodUnknown     = hosterr.ErrMethodUnknown
	ErrMaxRetries        = hosterr.ErrMaxRetries
	ErrFatal             = hosterr.ErrFatal
)

// Error is the runtime's error type: a Kind plus a human message and an
// optional wrapped cause.
type Error = hosterr.Error

// NewError builds an *Error, optionally wrapping cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return hosterr.NewError(kind, message, cause)
}

// IsKind reports whether err (or something it wraps) is a *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	return hosterr.IsKind(err, kind)
}
