package config

import (
	"fmt"

	"github.com/openlabtools/labauth/pkg/groups"
	"github.com/openlabtools/labauth/pkg/provision"
)

// BuildResolvers constructs the group-resolver registry from
// configuration. Resolvers are built once here and passed by reference;
// nothing looks them up by name at login time.
func BuildResolvers(cfg GroupsConfig, dir groups.Directory, creator groups.Creator) (*groups.Registry, error) {
	registry := groups.NewRegistry()

	// Composites reference other resolvers, build them after their
	// members exist.
	var composites []string
	for name, rc := range cfg.Resolvers {
		if rc.Kind == "composite" {
			composites = append(composites, name)
			continue
		}
		resolver, err := buildLeafResolver(rc, cfg.Shared, dir, creator)
		if err != nil {
			return nil, fmt.Errorf("resolver %q: %w", name, err)
		}
		if err := registry.Register(name, resolver); err != nil {
			return nil, err
		}
	}

	// Composites may also reference each other; keep resolving until a
	// full pass makes no progress.
	for len(composites) > 0 {
		progressed := false
		var remaining []string
		for _, name := range composites {
			members, ok := lookupMembers(registry, cfg.Resolvers[name].Members)
			if !ok {
				remaining = append(remaining, name)
				continue
			}
			if err := registry.Register(name, groups.NewCompositeResolver(members...)); err != nil {
				return nil, err
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("composite resolver cycle involving %v", remaining)
		}
		composites = remaining
	}
	return registry, nil
}

func buildLeafResolver(rc ResolverConfig, shared groups.Config, dir groups.Directory, creator groups.Creator) (groups.Resolver, error) {
	switch rc.Kind {
	case "literal":
		return groups.NewLiteralResolver(creator, shared, rc.Groups, rc.Level), nil
	case "unit":
		return groups.NewUnitResolver(dir, creator, shared, rc.Level), nil
	case "instrument":
		return groups.NewInstrumentResolver(dir, creator, shared, rc.Level, rc.Facilities, rc.Types), nil
	case "autonomy":
		return groups.NewAutonomyResolver(dir, creator, shared, rc.Level, rc.Facilities, rc.Types), nil
	default:
		return nil, fmt.Errorf("unknown resolver kind %q", rc.Kind)
	}
}

func lookupMembers(registry *groups.Registry, names []string) ([]groups.Resolver, bool) {
	members := make([]groups.Resolver, 0, len(names))
	for _, name := range names {
		resolver, err := registry.Get(name)
		if err != nil {
			return nil, false
		}
		members = append(members, resolver)
	}
	return members, true
}

// BindResolvers picks the configured provisioning resolvers out of the
// registry. Unbound roles fall back to a resolver that yields nothing.
func BindResolvers(cfg GroupsConfig, registry *groups.Registry, creator groups.Creator) (provision.Resolvers, error) {
	empty := groups.NewLiteralResolver(creator, cfg.Shared, "", "private")
	bound := provision.Resolvers{NewUser: empty, Sync: empty, DefaultGroup: empty}

	var err error
	if cfg.NewUser != "" {
		if bound.NewUser, err = registry.Get(cfg.NewUser); err != nil {
			return bound, err
		}
	}
	if cfg.Sync != "" {
		if bound.Sync, err = registry.Get(cfg.Sync); err != nil {
			return bound, err
		}
	}
	if cfg.DefaultGroup != "" {
		if bound.DefaultGroup, err = registry.Get(cfg.DefaultGroup); err != nil {
			return bound, err
		}
	}
	return bound, nil
}
