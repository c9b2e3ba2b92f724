package provision

import "errors"

// Lifecycle precondition errors. They abort a single create or sync
// attempt; the provider layer catches them and defers to the next
// provider in the chain.
var (
	// ErrAccountExists: createAccount was called for a login that
	// already has a local account.
	ErrAccountExists = errors.New("local account already exists")

	// ErrNotFoundUpstream: the external directory has no active
	// identity for the login.
	ErrNotFoundUpstream = errors.New("identity not found in external directory")

	// ErrNotFoundLocally: synchronizeAccount was called for a login
	// without a local account.
	ErrNotFoundLocally = errors.New("local account not found")

	// ErrNoGroupResolved: the new-user group resolver produced no
	// groups, so the account would have no primary group.
	ErrNoGroupResolved = errors.New("no group resolved for new account")
)
