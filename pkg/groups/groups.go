// Package groups turns a login into a set of local group ids, creating
// the groups on demand through the account store. Resolvers come in
// several flavors (static lists, unit affiliation, instrument grants)
// and can be chained through a composite.
package groups

import (
	"context"
	"strings"

	"github.com/openlabtools/labauth/internal/logger"
	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/directory"
)

// Permission level strings accepted in configuration.
const (
	LevelPrivate      = "private"
	LevelReadOnly     = "read-only"
	LevelReadAnnotate = "read-annotate"
)

// PermissionsFor maps a configured permission level to the group
// permissions created for resolved groups. Blank or unrecognized levels
// fall back to private.
func PermissionsFor(level string) account.Permissions {
	switch strings.TrimSpace(level) {
	case LevelReadOnly:
		return account.PermissionGroupRead
	case LevelReadAnnotate:
		return account.PermissionGroupAnnotate
	case LevelPrivate, "":
		return account.PermissionPrivate
	default:
		logger.Warn("unrecognized permission level, using private", "level", level)
		return account.PermissionPrivate
	}
}

// Creator creates groups on demand. account.Store satisfies it.
type Creator interface {
	CreateGroup(ctx context.Context, name string, perms account.Permissions, failOnDuplicate bool) (string, error)
}

// Directory is the read surface resolvers consult. *directory.Facade
// satisfies it.
type Directory interface {
	FindUserWithUnit(ctx context.Context, login string) (*directory.UserWithUnit, error)
	FindActiveSystems(ctx context.Context, login string) ([]directory.System, error)
	FindActiveSystemsWithAutonomy(ctx context.Context, login string) ([]directory.System, error)
}

// Config carries the settings shared by every resolver.
type Config struct {
	// ExcludedGroups are names never created or returned, whatever the
	// candidate source says.
	ExcludedGroups []string `mapstructure:"excluded_groups" yaml:"excluded_groups"`

	// FailOnDuplicate makes group creation fail on an existing name
	// instead of reusing it.
	FailOnDuplicate bool `mapstructure:"fail_on_duplicate" yaml:"fail_on_duplicate"`
}

func (c Config) excluded(name string) bool {
	for _, excluded := range c.ExcludedGroups {
		if excluded == name {
			return true
		}
	}
	return false
}

// Resolver maps a login to local group ids.
type Resolver interface {
	// ResolveGroups returns the group ids for the login, creating
	// groups that do not exist yet.
	ResolveGroups(ctx context.Context, login string) ([]string, error)

	// RequiresDirectory reports whether the resolver consults the
	// external directory. Static resolvers keep working when directory
	// integration is disabled.
	RequiresDirectory() bool
}

// source supplies candidate group names for a login. The shared
// resolution walk in resolveItems handles exclusion, creation and id
// collection for every variant.
type source interface {
	candidateNames(ctx context.Context, login string) ([]string, error)
	permissions() account.Permissions
}

// resolveItems runs the shared resolution walk: fetch candidates, skip
// excluded names, create each remaining group and collect its id.
// Duplicate names among the candidates are passed through to the
// creator as-is; idempotent creation is the creator's concern.
func resolveItems(ctx context.Context, src source, creator Creator, cfg Config, login string) ([]string, error) {
	names, err := src.candidateNames(ctx, login)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if cfg.excluded(name) {
			logger.Debug("skipping excluded group", logger.KeyLogin, login, logger.KeyGroup, name)
			continue
		}
		id, err := creator.CreateGroup(ctx, name, src.permissions(), cfg.FailOnDuplicate)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
