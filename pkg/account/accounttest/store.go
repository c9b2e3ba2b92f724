// Package accounttest provides an in-memory account.Store for tests.
package accounttest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openlabtools/labauth/pkg/account"
)

// Store is an in-memory account.Store. It is safe for concurrent use
// and seeds the universal groups and protected accounts the same way
// the database-backed store does.
type Store struct {
	mu       sync.Mutex
	nextID   int
	accounts map[string]*account.Account // by id
	groups   map[string]*account.Group   // by id
	members  map[string][]string         // account id -> ordered group ids

	// Err, when set, is returned by every method. Useful for testing
	// host-failure paths.
	Err error
}

var _ account.Store = (*Store)(nil)

// New returns a seeded in-memory store.
func New() *Store {
	s := &Store{
		accounts: make(map[string]*account.Account),
		groups:   make(map[string]*account.Group),
		members:  make(map[string][]string),
	}
	systemID := s.addGroup(account.SystemGroupName, account.PermissionPrivate, true)
	usersID := s.addGroup(account.AuthenticatedGroupName, account.PermissionPrivate, true)
	s.addAccount(&account.Account{Login: "root", Protected: true}, systemID)
	s.addAccount(&account.Account{Login: "guest", Protected: true}, usersID)
	return s
}

func (s *Store) newID() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *Store) addGroup(name string, perms account.Permissions, system bool) string {
	g := &account.Group{
		ID:          s.newID(),
		Name:        name,
		Permissions: perms,
		System:      system,
		CreatedAt:   time.Now(),
	}
	s.groups[g.ID] = g
	return g.ID
}

func (s *Store) addAccount(acct *account.Account, groupIDs ...string) string {
	acct.ID = s.newID()
	s.accounts[acct.ID] = acct
	s.members[acct.ID] = append([]string(nil), groupIDs...)
	return acct.ID
}

func (s *Store) FindAccountByLogin(ctx context.Context, login string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, acct := range s.accounts {
		if acct.Login == login {
			return s.snapshot(acct), nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (s *Store) CreateAccount(ctx context.Context, acct *account.Account, primaryGroupID string, otherGroupIDs []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	for _, existing := range s.accounts {
		if existing.Login == acct.Login {
			return "", account.ErrDuplicateAccount
		}
	}
	clone := *acct
	clone.Groups = nil
	// Mirrors the GORM store: repeated ids collapse to their first
	// occurrence.
	var ids []string
	seen := make(map[string]bool)
	for _, id := range append([]string{primaryGroupID}, otherGroupIDs...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return s.addAccount(&clone, ids...), nil
}

func (s *Store) UpdateAttributes(ctx context.Context, accountID string, attrs account.Attributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	acct, ok := s.accounts[accountID]
	if !ok {
		return account.ErrAccountNotFound
	}
	acct.FirstName = attrs.FirstName
	acct.MiddleName = attrs.MiddleName
	acct.LastName = attrs.LastName
	acct.Email = attrs.Email
	acct.Institution = attrs.Institution
	return nil
}

func (s *Store) AddGroups(ctx context.Context, accountID string, groupIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.accounts[accountID]; !ok {
		return account.ErrAccountNotFound
	}
	current := s.members[accountID]
	for _, id := range groupIDs {
		if containsID(current, id) {
			continue
		}
		current = append(current, id)
	}
	s.members[accountID] = current
	return nil
}

func (s *Store) RemoveGroups(ctx context.Context, accountID string, groupIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.accounts[accountID]; !ok {
		return account.ErrAccountNotFound
	}
	kept := s.members[accountID][:0]
	for _, id := range s.members[accountID] {
		if containsID(groupIDs, id) {
			continue
		}
		kept = append(kept, id)
	}
	s.members[accountID] = kept
	return nil
}

func (s *Store) SetDefaultGroup(ctx context.Context, accountID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	current := s.members[accountID]
	if !containsID(current, groupID) {
		return account.ErrNotMember
	}
	ordered := []string{groupID}
	for _, id := range current {
		if id != groupID {
			ordered = append(ordered, id)
		}
	}
	s.members[accountID] = ordered
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, name string, perms account.Permissions, failOnDuplicate bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	for _, g := range s.groups {
		if g.Name == name {
			if failOnDuplicate {
				return "", account.ErrDuplicateGroup
			}
			return g.ID, nil
		}
	}
	return s.addGroup(name, perms, false), nil
}

func (s *Store) GetGroup(ctx context.Context, name string) (*account.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, g := range s.groups {
		if g.Name == name {
			clone := *g
			return &clone, nil
		}
	}
	return nil, account.ErrGroupNotFound
}

func (s *Store) GetGroupByID(ctx context.Context, id string) (*account.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	g, ok := s.groups[id]
	if !ok {
		return nil, account.ErrGroupNotFound
	}
	clone := *g
	return &clone, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	accounts := make([]*account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		accounts = append(accounts, s.snapshot(acct))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Login < accounts[j].Login })
	return accounts, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*account.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	groups := make([]*account.Group, 0, len(s.groups))
	for _, g := range s.groups {
		clone := *g
		groups = append(groups, &clone)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

// GroupNamesOf returns the ordered membership names of a login. Handy
// for test assertions.
func (s *Store) GroupNamesOf(login string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.Login != login {
			continue
		}
		names := make([]string, 0, len(s.members[acct.ID]))
		for _, id := range s.members[acct.ID] {
			names = append(names, s.groups[id].Name)
		}
		return names
	}
	return nil
}

func (s *Store) snapshot(acct *account.Account) *account.Account {
	clone := *acct
	clone.Groups = make([]account.Group, 0, len(s.members[acct.ID]))
	for _, id := range s.members[acct.ID] {
		clone.Groups = append(clone.Groups, *s.groups[id])
	}
	return &clone
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
