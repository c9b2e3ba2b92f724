package groups

import (
	"context"

	"github.com/openlabtools/labauth/pkg/account"
)

// UnitResolver resolves the login's affiliation unit into a single
// group, but only when the unit is active.
type UnitResolver struct {
	dir     Directory
	perms   account.Permissions
	creator Creator
	cfg     Config
}

var _ Resolver = (*UnitResolver)(nil)

func NewUnitResolver(dir Directory, creator Creator, cfg Config, level string) *UnitResolver {
	return &UnitResolver{
		dir:     dir,
		perms:   PermissionsFor(level),
		creator: creator,
		cfg:     cfg,
	}
}

func (r *UnitResolver) ResolveGroups(ctx context.Context, login string) ([]string, error) {
	return resolveItems(ctx, r, r.creator, r.cfg, login)
}

func (r *UnitResolver) RequiresDirectory() bool { return true }

func (r *UnitResolver) candidateNames(ctx context.Context, login string) ([]string, error) {
	identity, err := r.dir.FindUserWithUnit(ctx, login)
	if err != nil {
		return nil, err
	}
	if identity == nil || identity.Unit == nil || !identity.Unit.Active {
		return nil, nil
	}
	return []string{identity.Unit.Name}, nil
}

func (r *UnitResolver) permissions() account.Permissions { return r.perms }
