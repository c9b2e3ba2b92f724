// Package account defines the local account store: the contract the
// provisioning and authentication layers mutate accounts through, and a
// GORM-backed reference implementation (SQLite or PostgreSQL).
package account

import (
	"time"
)

// Names of the two universal groups every deployment carries. They are
// seeded at startup and never added or removed by membership
// reconciliation.
const (
	// SystemGroupName holds root and service accounts.
	SystemGroupName = "system"

	// AuthenticatedGroupName is the group every real account belongs to.
	AuthenticatedGroupName = "users"
)

// DefaultProtectedAccounts are logins that must never be created,
// synchronized or authenticated through the external directory.
var DefaultProtectedAccounts = []string{"root", "guest"}

// Permissions is the visibility level attached to a group.
type Permissions string

const (
	// PermissionPrivate: members see only their own data.
	PermissionPrivate Permissions = "private"

	// PermissionGroupRead: members can read each other's data.
	PermissionGroupRead Permissions = "group-read"

	// PermissionGroupAnnotate: members can read and annotate each
	// other's data.
	PermissionGroupAnnotate Permissions = "group-annotate"
)

// Group is a local group.
type Group struct {
	ID          string      `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"uniqueIndex;not null" json:"name"`
	Permissions Permissions `gorm:"not null" json:"permissions"`

	// System marks the seeded universal groups, which reconciliation
	// never touches.
	System bool `json:"system"`

	CreatedAt time.Time `json:"created_at"`
}

// Account is a local user account.
//
// Groups is ordered; the first entry is the default (primary) group.
type Account struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Login       string `gorm:"uniqueIndex;not null" json:"login"`
	FirstName   string `json:"first_name,omitempty"`
	MiddleName  string `json:"middle_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Institution string `json:"institution,omitempty"`

	// Protected accounts are system-owned and excluded from external
	// provisioning.
	Protected bool `json:"protected"`

	Groups []Group `gorm:"-" json:"groups,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership is the ordered account-group join row.
// Position 0 is the default group.
type Membership struct {
	AccountID string `gorm:"primaryKey"`
	GroupID   string `gorm:"primaryKey"`
	Position  int    `gorm:"not null"`
}

// Attributes are the account fields synchronized from the external
// directory. Empty strings mean "no value"; the sync layer never writes
// an empty value over an existing one.
type Attributes struct {
	FirstName   string
	MiddleName  string
	LastName    string
	Email       string
	Institution string
}

// GroupIDs returns the ordered group ids of the account.
func (a *Account) GroupIDs() []string {
	ids := make([]string, len(a.Groups))
	for i, g := range a.Groups {
		ids[i] = g.ID
	}
	return ids
}

// DefaultGroup returns the primary group, or nil when the account has no
// memberships.
func (a *Account) DefaultGroup() *Group {
	if len(a.Groups) == 0 {
		return nil
	}
	return &a.Groups[0]
}

// MemberOf reports whether the account is a member of the given group id.
func (a *Account) MemberOf(groupID string) bool {
	for _, g := range a.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}
