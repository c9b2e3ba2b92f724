package auth

import (
	"context"
	"errors"

	"github.com/openlabtools/labauth/internal/logger"
	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/provision"
)

// Provider is the authentication surface the host login pipeline
// consults. CheckPassword returns an error only for contract
// violations; remote failures degrade to VerdictUnknown.
type Provider interface {
	// HasPassword reports whether the provider owns credentials for
	// the login.
	HasPassword(ctx context.Context, login string) bool

	// CheckPassword validates the credentials. readOnly forbids side
	// effects such as on-the-fly account creation.
	CheckPassword(ctx context.Context, login, password string, readOnly bool) (Verdict, error)
}

// UsernameAware is implemented by providers that can answer ownership
// questions separately from password checks.
type UsernameAware interface {
	Provider

	// HasUsername reports whether the login belongs to this provider.
	// VerdictUnknown covers both "subsystem disabled" and "directory
	// unreachable".
	HasUsername(ctx context.Context, login string) Verdict
}

// Synchronizer is implemented by providers that mirror directory state
// into the local store after a successful login.
type Synchronizer interface {
	SynchronizeUser(ctx context.Context, login string) error
}

// Metrics records login verdicts per provider.
type Metrics interface {
	RecordVerdict(provider string, verdict Verdict)
}

// NopProvider answers Unknown for every login. It stands in for a
// host's primary provider when none is configured, letting a Chain run
// on its secondary alone.
type NopProvider struct{}

var _ Provider = NopProvider{}

func (NopProvider) HasPassword(ctx context.Context, login string) bool { return false }

func (NopProvider) CheckPassword(ctx context.Context, login, password string, readOnly bool) (Verdict, error) {
	return VerdictUnknown, nil
}

// DirectoryProvider authenticates against the external directory and
// provisions local accounts through the provisioning service.
type DirectoryProvider struct {
	svc     *provision.Service
	store   account.Store
	metrics Metrics
}

var (
	_ UsernameAware = (*DirectoryProvider)(nil)
	_ Synchronizer  = (*DirectoryProvider)(nil)
)

func NewDirectoryProvider(svc *provision.Service, store account.Store, metrics Metrics) *DirectoryProvider {
	return &DirectoryProvider{svc: svc, store: store, metrics: metrics}
}

// HasUsername answers ownership. Remote failures degrade to unknown so
// a higher layer decides policy; they never surface as a rejection.
func (p *DirectoryProvider) HasUsername(ctx context.Context, login string) Verdict {
	if !p.svc.Enabled() {
		return VerdictUnknown
	}
	if p.svc.Protected(login) {
		return VerdictNo
	}
	identity, err := p.svc.FindExternalIdentity(ctx, login)
	if err != nil {
		logger.Warn("directory unreachable during ownership check",
			logger.KeyLogin, login, logger.KeyError, err)
		return VerdictUnknown
	}
	return verdictOf(identity != nil)
}

// HasPassword is true only for logins the directory owns that also
// already exist locally. A purely-remote identity is not yet "owned".
func (p *DirectoryProvider) HasPassword(ctx context.Context, login string) bool {
	if !p.svc.Enabled() {
		return false
	}
	if p.HasUsername(ctx, login) != VerdictYes {
		return false
	}
	_, err := p.store.FindAccountByLogin(ctx, login)
	return err == nil
}

func (p *DirectoryProvider) CheckPassword(ctx context.Context, login, password string, readOnly bool) (Verdict, error) {
	verdict, err := p.checkPassword(ctx, login, password, readOnly)
	if p.metrics != nil {
		p.metrics.RecordVerdict("directory", verdict)
	}
	logger.Debug("password check finished",
		logger.KeyLogin, login,
		logger.KeyProvider, "directory",
		logger.KeyVerdict, verdict.String())
	return verdict, err
}

func (p *DirectoryProvider) checkPassword(ctx context.Context, login, password string, readOnly bool) (Verdict, error) {
	if !p.svc.Enabled() {
		return VerdictUnknown, nil
	}
	if password == "" {
		logger.Info("rejecting empty password", logger.KeyLogin, login)
		return VerdictNo, nil
	}
	if p.svc.Protected(login) {
		return VerdictUnknown, nil
	}

	_, err := p.store.FindAccountByLogin(ctx, login)
	switch {
	case errors.Is(err, account.ErrAccountNotFound):
		if readOnly {
			return VerdictUnknown, ErrReadOnlyContext
		}
		return p.createOnFirstLogin(ctx, login, password), nil
	case err != nil:
		logger.Warn("account store lookup failed", logger.KeyLogin, login, logger.KeyError, err)
		return VerdictUnknown, nil
	}

	return p.checkKnownUser(ctx, login, password), nil
}

// createOnFirstLogin provisions an account for a login the store has
// never seen. Every creation failure defers instead of denying so a
// later provider in a chain gets a chance.
func (p *DirectoryProvider) createOnFirstLogin(ctx context.Context, login, password string) Verdict {
	created, err := p.svc.CreateAccount(ctx, login, password)
	if err != nil {
		logger.Info("account creation deferred", logger.KeyLogin, login, logger.KeyError, err)
		return VerdictUnknown
	}
	if !created {
		return VerdictUnknown
	}
	return VerdictYes
}

func (p *DirectoryProvider) checkKnownUser(ctx context.Context, login, password string) Verdict {
	identity, err := p.svc.FindExternalIdentity(ctx, login)
	if err != nil {
		logger.Warn("directory unreachable during password check",
			logger.KeyLogin, login, logger.KeyError, err)
		return VerdictUnknown
	}
	if identity == nil {
		return VerdictUnknown
	}

	valid, err := p.svc.ValidatePassword(ctx, login, password)
	if err != nil {
		logger.Warn("directory unreachable during password validation",
			logger.KeyLogin, login, logger.KeyError, err)
		return VerdictUnknown
	}
	return verdictOf(valid)
}

// SynchronizeUser mirrors directory state into the local account.
func (p *DirectoryProvider) SynchronizeUser(ctx context.Context, login string) error {
	return p.svc.SynchronizeAccount(ctx, login)
}

// ChangePassword is always rejected.
func (p *DirectoryProvider) ChangePassword(ctx context.Context, login, oldPassword, newPassword string) error {
	return ErrPasswordChangeNotSupported
}
