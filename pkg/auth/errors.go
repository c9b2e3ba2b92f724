package auth

import "errors"

var (
	// ErrReadOnlyContext: checkPassword was asked to handle an unknown
	// local user in a read-only context. Account creation needs write
	// access; calling it read-only is a programming error, not a
	// remote failure.
	ErrReadOnlyContext = errors.New("account creation requires a read-write context")

	// ErrPasswordChangeNotSupported: credentials live in the external
	// directory; this subsystem never writes them back.
	ErrPasswordChangeNotSupported = errors.New("password changes are managed by the external directory")
)
