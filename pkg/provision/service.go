// Package provision creates and synchronizes local accounts from the
// external lab directory. It sits between the authentication providers
// and the account store: providers confirm eligibility, this package
// performs the create/sync lifecycle.
package provision

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/openlabtools/labauth/internal/logger"
	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/directory"
	"github.com/openlabtools/labauth/pkg/groups"
)

// SyncConfig controls the provisioning lifecycle. It is copied at
// construction; later mutation of the caller's copy has no effect.
type SyncConfig struct {
	// Enabled turns external provisioning on. When false the
	// authentication provider defers every verdict.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Policy is the membership reconciliation policy: additive or
	// authoritative.
	Policy string `mapstructure:"policy" yaml:"policy"`

	// SyncGroups reconciles memberships on every successful login.
	SyncGroups bool `mapstructure:"sync_groups" yaml:"sync_groups"`

	// SyncAttributes copies directory attributes on every successful
	// login.
	SyncAttributes bool `mapstructure:"sync_attributes" yaml:"sync_attributes"`

	// DefaultGroupPattern enables default-group reassignment for
	// accounts whose current default group name matches the pattern.
	// Blank disables the step.
	DefaultGroupPattern string `mapstructure:"default_group_pattern" yaml:"default_group_pattern"`

	// ProtectedAccounts are logins never provisioned or synchronized.
	// Defaults to account.DefaultProtectedAccounts when empty.
	ProtectedAccounts []string `mapstructure:"protected_accounts" yaml:"protected_accounts"`
}

// syncesAnything reports whether any synchronization step is enabled.
func (c SyncConfig) syncesAnything() bool {
	return c.SyncGroups || c.SyncAttributes || c.DefaultGroupPattern != ""
}

// Directory is the directory surface the service consumes.
// *directory.Facade satisfies it.
type Directory interface {
	FindUserWithUnit(ctx context.Context, login string) (*directory.UserWithUnit, error)
	CheckAuthentication(ctx context.Context, login, password string) (bool, error)
}

// Resolvers are the group resolvers the service uses, bound once at
// startup.
type Resolvers struct {
	// NewUser produces the groups of a freshly created account. Its
	// first group becomes the primary group.
	NewUser groups.Resolver

	// Sync produces the externally granted groups reconciled on every
	// login.
	Sync groups.Resolver

	// DefaultGroup produces the group an eligible account is
	// re-defaulted to. Only its first group is used.
	DefaultGroup groups.Resolver
}

// Metrics records provisioning outcomes.
type Metrics interface {
	RecordCreate(ok bool)
	RecordSync(ok bool)
}

// Service implements the account provisioning lifecycle.
type Service struct {
	cfg       SyncConfig
	dir       Directory
	store     account.Store
	resolvers Resolvers
	policy    SyncPolicy
	universal *UniversalGroups
	pattern   *regexp.Regexp
	metrics   Metrics
}

// NewService builds the service. The default-group pattern is compiled
// here; an invalid pattern disables the default-group step with a
// warning instead of failing startup.
func NewService(ctx context.Context, cfg SyncConfig, dir Directory, store account.Store, resolvers Resolvers, metrics Metrics) (*Service, error) {
	policy, err := PolicyByName(cfg.Policy)
	if err != nil {
		return nil, err
	}
	universal, err := LookupUniversalGroups(ctx, store)
	if err != nil {
		return nil, err
	}
	if len(cfg.ProtectedAccounts) == 0 {
		cfg.ProtectedAccounts = account.DefaultProtectedAccounts
	}

	var pattern *regexp.Regexp
	if cfg.DefaultGroupPattern != "" {
		pattern, err = regexp.Compile(cfg.DefaultGroupPattern)
		if err != nil {
			logger.Warn("invalid default group pattern, step disabled",
				"pattern", cfg.DefaultGroupPattern, logger.KeyError, err)
			pattern = nil
		}
	}

	return &Service{
		cfg:       cfg,
		dir:       dir,
		store:     store,
		resolvers: resolvers,
		policy:    policy,
		universal: universal,
		pattern:   pattern,
		metrics:   metrics,
	}, nil
}

// Enabled reports whether external provisioning is on.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Protected reports whether a login is excluded from provisioning.
func (s *Service) Protected(login string) bool {
	for _, protected := range s.cfg.ProtectedAccounts {
		if protected == login {
			return true
		}
	}
	return false
}

// FindExternalIdentity returns the directory identity for a login, or
// nil when the directory has no record or the record is inactive.
func (s *Service) FindExternalIdentity(ctx context.Context, login string) (*directory.UserWithUnit, error) {
	identity, err := s.dir.FindUserWithUnit(ctx, login)
	if err != nil {
		return nil, err
	}
	if identity == nil || !identity.User.Active {
		return nil, nil
	}
	return identity, nil
}

// ValidatePassword checks the credentials against the directory.
func (s *Service) ValidatePassword(ctx context.Context, login, password string) (bool, error) {
	return s.dir.CheckAuthentication(ctx, login, password)
}

// CreateAccount provisions a local account for a directory identity.
// It returns false without creating anything when the password is
// rejected upstream.
func (s *Service) CreateAccount(ctx context.Context, login, password string) (bool, error) {
	ok, err := s.createAccount(ctx, login, password)
	if s.metrics != nil {
		s.metrics.RecordCreate(err == nil && ok)
	}
	return ok, err
}

func (s *Service) createAccount(ctx context.Context, login, password string) (bool, error) {
	if _, err := s.store.FindAccountByLogin(ctx, login); err == nil {
		return false, ErrAccountExists
	} else if !errors.Is(err, account.ErrAccountNotFound) {
		return false, err
	}

	identity, err := s.FindExternalIdentity(ctx, login)
	if err != nil {
		return false, err
	}
	if identity == nil {
		return false, ErrNotFoundUpstream
	}

	valid, err := s.dir.CheckAuthentication(ctx, login, password)
	if err != nil {
		return false, err
	}
	if !valid {
		logger.Info("password rejected upstream, account not created", logger.KeyLogin, login)
		return false, nil
	}

	ids, err := s.resolvers.NewUser.ResolveGroups(ctx, login)
	if err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, ErrNoGroupResolved
	}

	secondary := append([]string{}, ids[1:]...)
	if !containsID(ids, s.universal.AuthenticatedID) {
		secondary = append(secondary, s.universal.AuthenticatedID)
	}

	user := identity.User
	acct := &account.Account{
		Login:       login,
		FirstName:   user.FirstName,
		MiddleName:  user.MiddleName,
		LastName:    user.LastName,
		Email:       user.Email,
		Institution: user.Institution,
	}
	if _, err := s.store.CreateAccount(ctx, acct, ids[0], secondary); err != nil {
		if errors.Is(err, account.ErrDuplicateAccount) {
			return false, ErrAccountExists
		}
		return false, fmt.Errorf("failed to create account: %w", err)
	}

	logger.Info("account created from directory", logger.KeyLogin, login, "groups", len(ids))
	return true, nil
}

// SynchronizeAccount brings an existing local account in line with the
// directory. A locally-known but externally-absent login is left
// untouched.
func (s *Service) SynchronizeAccount(ctx context.Context, login string) error {
	err := s.synchronizeAccount(ctx, login)
	if s.metrics != nil {
		s.metrics.RecordSync(err == nil)
	}
	return err
}

func (s *Service) synchronizeAccount(ctx context.Context, login string) error {
	if !s.cfg.syncesAnything() {
		return nil
	}

	acct, err := s.store.FindAccountByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return ErrNotFoundLocally
		}
		return err
	}
	if acct.Protected || s.Protected(login) {
		return nil
	}

	identity, err := s.FindExternalIdentity(ctx, login)
	if err != nil {
		return err
	}
	if identity == nil {
		logger.Debug("login unknown to directory, skipping sync", logger.KeyLogin, login)
		return nil
	}

	if s.cfg.SyncGroups {
		if err := s.syncGroups(ctx, acct); err != nil {
			return err
		}
	}
	if s.pattern != nil {
		if err := s.syncDefaultGroup(ctx, login); err != nil {
			return err
		}
	}
	if s.cfg.SyncAttributes {
		if err := s.syncAttributes(ctx, acct, identity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) syncGroups(ctx context.Context, acct *account.Account) error {
	external, err := s.resolvers.Sync.ResolveGroups(ctx, acct.Login)
	if err != nil {
		return err
	}
	return s.policy.Reconcile(ctx, s.store, acct, acct.GroupIDs(), external, s.universal)
}

// syncDefaultGroup reassigns the default group when the current one
// matches the configured pattern. A non-matching default is an explicit
// user choice and is left alone.
func (s *Service) syncDefaultGroup(ctx context.Context, login string) error {
	// Group sync may have changed the memberships, fetch fresh.
	acct, err := s.store.FindAccountByLogin(ctx, login)
	if err != nil {
		return err
	}
	current := acct.DefaultGroup()
	if current == nil {
		return nil
	}
	if !s.pattern.MatchString(current.Name) {
		return nil
	}

	ids, err := s.resolvers.DefaultGroup.ResolveGroups(ctx, login)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	target := ids[0]
	if target == current.ID {
		return nil
	}

	if !acct.MemberOf(target) {
		if err := s.store.AddGroups(ctx, acct.ID, target); err != nil {
			return err
		}
	}
	logger.Info("default group reassigned", logger.KeyLogin, login, logger.KeyGroup, target)
	return s.store.SetDefaultGroup(ctx, acct.ID, target)
}

// syncAttributes copies directory attributes over the local ones. An
// empty directory value never erases an existing local value.
func (s *Service) syncAttributes(ctx context.Context, acct *account.Account, identity *directory.UserWithUnit) error {
	user := identity.User
	attrs := account.Attributes{
		FirstName:   pick(user.FirstName, acct.FirstName),
		MiddleName:  pick(user.MiddleName, acct.MiddleName),
		LastName:    pick(user.LastName, acct.LastName),
		Email:       pick(user.Email, acct.Email),
		Institution: pick(user.Institution, acct.Institution),
	}
	return s.store.UpdateAttributes(ctx, acct.ID, attrs)
}

// pick prefers the external value when present.
func pick(external, local string) string {
	if external != "" {
		return external
	}
	return local
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
