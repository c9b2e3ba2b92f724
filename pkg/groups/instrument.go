package groups

import (
	"context"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/directory"
)

// InstrumentResolver resolves one group per active instrument the login
// holds a grant on, restricted to the configured facility and type
// whitelists.
type InstrumentResolver struct {
	dir        Directory
	perms      account.Permissions
	creator    Creator
	cfg        Config
	facilities []int
	types      []string

	// autonomyOnly restricts the instrument list to grants the login
	// can exercise: autonomous or better on instruments that require
	// autonomy.
	autonomyOnly bool
}

var _ Resolver = (*InstrumentResolver)(nil)

// NewInstrumentResolver resolves all active instruments within the
// facility and type whitelists.
func NewInstrumentResolver(dir Directory, creator Creator, cfg Config, level string, facilities []int, types []string) *InstrumentResolver {
	return &InstrumentResolver{
		dir:        dir,
		perms:      PermissionsFor(level),
		creator:    creator,
		cfg:        cfg,
		facilities: facilities,
		types:      types,
	}
}

// NewAutonomyResolver is like NewInstrumentResolver but keeps only
// instruments the login is cleared to operate unsupervised.
func NewAutonomyResolver(dir Directory, creator Creator, cfg Config, level string, facilities []int, types []string) *InstrumentResolver {
	r := NewInstrumentResolver(dir, creator, cfg, level, facilities, types)
	r.autonomyOnly = true
	return r
}

func (r *InstrumentResolver) ResolveGroups(ctx context.Context, login string) ([]string, error) {
	return resolveItems(ctx, r, r.creator, r.cfg, login)
}

func (r *InstrumentResolver) RequiresDirectory() bool { return true }

func (r *InstrumentResolver) candidateNames(ctx context.Context, login string) ([]string, error) {
	var (
		systems []directory.System
		err     error
	)
	if r.autonomyOnly {
		systems, err = r.dir.FindActiveSystemsWithAutonomy(ctx, login)
	} else {
		systems, err = r.dir.FindActiveSystems(ctx, login)
	}
	if err != nil {
		return nil, err
	}

	systems = directory.FilterByFacilityAndType(systems, r.facilities, r.types)
	names := make([]string, 0, len(systems))
	for _, system := range systems {
		names = append(names, system.Name)
	}
	return names, nil
}

func (r *InstrumentResolver) permissions() account.Permissions { return r.perms }
