package account

import "errors"

// Sentinel errors returned by Store implementations.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrGroupNotFound    = errors.New("group not found")
	ErrDuplicateGroup   = errors.New("group already exists")
	ErrNotMember        = errors.New("account is not a member of group")
)
