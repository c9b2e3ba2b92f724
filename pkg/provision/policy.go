package provision

import (
	"context"
	"fmt"

	"github.com/openlabtools/labauth/internal/logger"
	"github.com/openlabtools/labauth/pkg/account"
)

// SyncPolicy reconciles an account's local memberships against the
// group ids the external directory currently grants.
type SyncPolicy interface {
	// Reconcile applies the policy. local and external are group id
	// lists; universal names ids the policy must never add or remove.
	Reconcile(ctx context.Context, store account.Store, acct *account.Account, local, external []string, universal *UniversalGroups) error
}

// Policy names accepted in configuration.
const (
	PolicyAdditive      = "additive"
	PolicyAuthoritative = "authoritative"
)

// PolicyByName returns the policy for a configured name.
func PolicyByName(name string) (SyncPolicy, error) {
	switch name {
	case PolicyAdditive, "":
		return AdditivePolicy{}, nil
	case PolicyAuthoritative:
		return AuthoritativePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown sync policy %q", name)
	}
}

// UniversalGroups holds the ids of the seeded groups membership
// reconciliation never touches.
type UniversalGroups struct {
	SystemID        string
	AuthenticatedID string
}

// LookupUniversalGroups reads the universal group ids from the store.
func LookupUniversalGroups(ctx context.Context, store account.Store) (*UniversalGroups, error) {
	system, err := store.GetGroup(ctx, account.SystemGroupName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s group: %w", account.SystemGroupName, err)
	}
	users, err := store.GetGroup(ctx, account.AuthenticatedGroupName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s group: %w", account.AuthenticatedGroupName, err)
	}
	return &UniversalGroups{SystemID: system.ID, AuthenticatedID: users.ID}, nil
}

func (u *UniversalGroups) contains(id string) bool {
	return id == u.SystemID || id == u.AuthenticatedID
}

// AdditivePolicy adds externally granted memberships and preserves
// local-only ones.
type AdditivePolicy struct{}

func (AdditivePolicy) Reconcile(ctx context.Context, store account.Store, acct *account.Account, local, external []string, universal *UniversalGroups) error {
	return modifyGroups(ctx, store, acct, external, local, true, universal)
}

// AuthoritativePolicy mirrors the external grants: local-only
// memberships are removed, new external grants are added.
type AuthoritativePolicy struct{}

func (AuthoritativePolicy) Reconcile(ctx context.Context, store account.Store, acct *account.Account, local, external []string, universal *UniversalGroups) error {
	if err := modifyGroups(ctx, store, acct, local, external, false, universal); err != nil {
		return err
	}
	return modifyGroups(ctx, store, acct, external, local, true, universal)
}

// modifyGroups computes base minus subtract, strips the universal
// groups, and applies the remainder as an add or remove. After an add,
// an account still defaulting to the authenticated-users group is
// repointed at its next membership.
func modifyGroups(ctx context.Context, store account.Store, acct *account.Account, base, subtract []string, add bool, universal *UniversalGroups) error {
	exclude := make(map[string]bool, len(subtract))
	for _, id := range subtract {
		exclude[id] = true
	}

	var ids []string
	for _, id := range base {
		if exclude[id] || universal.contains(id) {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	if !add {
		logger.Debug("removing memberships", logger.KeyLogin, acct.Login, "groups", len(ids))
		return store.RemoveGroups(ctx, acct.ID, ids...)
	}

	logger.Debug("adding memberships", logger.KeyLogin, acct.Login, "groups", len(ids))
	if err := store.AddGroups(ctx, acct.ID, ids...); err != nil {
		return err
	}
	return fixDefaultGroup(ctx, store, acct.Login, universal)
}

// fixDefaultGroup reassigns the default group when it is still the
// authenticated-users placeholder and a real membership exists.
func fixDefaultGroup(ctx context.Context, store account.Store, login string, universal *UniversalGroups) error {
	acct, err := store.FindAccountByLogin(ctx, login)
	if err != nil {
		return err
	}
	current := acct.DefaultGroup()
	if current == nil || current.ID != universal.AuthenticatedID || len(acct.Groups) < 2 {
		return nil
	}
	next := acct.Groups[1].ID
	logger.Info("reassigning default group", logger.KeyLogin, login, logger.KeyGroup, acct.Groups[1].Name)
	return store.SetDefaultGroup(ctx, acct.ID, next)
}
