package auth

import (
	"context"

	"github.com/openlabtools/labauth/internal/logger"
)

// SecondaryProvider is the synchronizing provider in the middle of a
// chain: it owns the account lifecycle and answers ownership questions.
type SecondaryProvider interface {
	UsernameAware
	Synchronizer
}

// Chain consults a primary provider first, falls back to the
// synchronizing secondary, and optionally hands off to a failover
// provider when the secondary is unreachable. A successful login
// triggers a best-effort account synchronization.
type Chain struct {
	primary   Provider
	secondary SecondaryProvider
	failover  Provider // optional
	metrics   Metrics
}

var _ Provider = (*Chain)(nil)

func NewChain(primary Provider, secondary SecondaryProvider, failover Provider, metrics Metrics) *Chain {
	return &Chain{primary: primary, secondary: secondary, failover: failover, metrics: metrics}
}

// HasPassword requires the secondary to definitively confirm ownership
// before either provider is consulted.
func (c *Chain) HasPassword(ctx context.Context, login string) bool {
	if c.secondary.HasUsername(ctx, login) != VerdictYes {
		return false
	}
	if c.primary.HasPassword(ctx, login) {
		return true
	}
	return c.secondary.HasPassword(ctx, login)
}

// CheckPassword runs the chain. readOnly must be false: the secondary
// may need to create an account mid-login.
func (c *Chain) CheckPassword(ctx context.Context, login, password string, readOnly bool) (Verdict, error) {
	if readOnly {
		return VerdictUnknown, ErrReadOnlyContext
	}

	verdict, err := c.checkPassword(ctx, login, password)
	if c.metrics != nil {
		c.metrics.RecordVerdict("chain", verdict)
	}
	logger.Debug("password check finished",
		logger.KeyLogin, login,
		logger.KeyProvider, "chain",
		logger.KeyVerdict, verdict.String())
	return verdict, err
}

func (c *Chain) checkPassword(ctx context.Context, login, password string) (Verdict, error) {
	switch c.secondary.HasUsername(ctx, login) {
	case VerdictNo:
		// Directory reachable, user absent: the chain does not own
		// this login and failover would be misleading.
		return VerdictUnknown, nil
	case VerdictUnknown:
		if c.failover != nil {
			logger.Warn("secondary provider unreachable, delegating to failover", logger.KeyLogin, login)
			return c.failover.CheckPassword(ctx, login, password, false)
		}
		return VerdictUnknown, nil
	}

	verdict, err := c.primary.CheckPassword(ctx, login, password, false)
	if err != nil {
		return VerdictUnknown, err
	}
	if !verdict.Definite() {
		verdict, err = c.secondary.CheckPassword(ctx, login, password, false)
		if err != nil {
			return VerdictUnknown, err
		}
	}

	if verdict == VerdictYes {
		// Best effort: a failed sync never turns a successful login
		// into a failure.
		if err := c.secondary.SynchronizeUser(ctx, login); err != nil {
			logger.Warn("post-login synchronization failed",
				logger.KeyLogin, login, logger.KeyError, err)
		}
	}
	return verdict, nil
}

// ChangePassword is always rejected: both sources are externally
// managed.
func (c *Chain) ChangePassword(ctx context.Context, login, oldPassword, newPassword string) error {
	return ErrPasswordChangeNotSupported
}
