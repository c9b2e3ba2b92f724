package directory

import (
	"errors"
	"fmt"
)

// RemoteError reports a failed call against the facility directory:
// a transport error, a 5xx response, or an undecodable body.
//
// It is always recoverable from the caller's point of view; the
// authentication layer degrades it to an "unknown" verdict instead of
// propagating it as a login failure.
type RemoteError struct {
	Op         string // operation tag, e.g. "get_user"
	StatusCode int    // HTTP status, 0 for transport errors
	Err        error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("directory %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err is (or wraps) a directory RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
