package account

import "context"

// Store is the host account store consumed by provisioning and
// authentication.
//
// FindAccountByLogin returns ErrAccountNotFound for unknown logins.
// Membership mutations are expected to run inside the host's transaction
// boundary; implementations keep each call atomic.
type Store interface {
	// FindAccountByLogin returns the account with its ordered group
	// memberships (first = default group).
	FindAccountByLogin(ctx context.Context, login string) (*Account, error)

	// CreateAccount persists a new account with the given primary group
	// and secondary memberships, in that order. Returns the new account
	// id, or ErrDuplicateAccount.
	CreateAccount(ctx context.Context, acct *Account, primaryGroupID string, otherGroupIDs []string) (string, error)

	// UpdateAttributes overwrites the synchronized attribute fields.
	UpdateAttributes(ctx context.Context, accountID string, attrs Attributes) error

	// AddGroups appends memberships; already-present groups are skipped.
	AddGroups(ctx context.Context, accountID string, groupIDs ...string) error

	// RemoveGroups drops memberships; absent groups are skipped.
	RemoveGroups(ctx context.Context, accountID string, groupIDs ...string) error

	// SetDefaultGroup makes groupID the account's primary group.
	// Returns ErrNotMember when the account does not belong to it.
	SetDefaultGroup(ctx context.Context, accountID, groupID string) error

	// CreateGroup creates a group or, when one of that name exists,
	// returns its id; with failOnDuplicate set, an existing name is
	// ErrDuplicateGroup instead.
	CreateGroup(ctx context.Context, name string, perms Permissions, failOnDuplicate bool) (string, error)

	// GetGroup returns a group by name, ErrGroupNotFound when absent.
	GetGroup(ctx context.Context, name string) (*Group, error)

	// GetGroupByID returns a group by id, ErrGroupNotFound when absent.
	GetGroupByID(ctx context.Context, id string) (*Group, error)

	// ListAccounts returns all accounts with memberships.
	ListAccounts(ctx context.Context) ([]*Account, error)

	// ListGroups returns all groups.
	ListGroups(ctx context.Context) ([]*Group, error)
}
