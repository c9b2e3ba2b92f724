package groups

import (
	"context"
)

// LegacyGroupLookup is the group-lookup hook of the host's legacy
// directory-protocol integration. The hook hands over the raw protocol
// attributes captured during the bind.
type LegacyGroupLookup interface {
	Groups(ctx context.Context, login string, attributes map[string][]string) ([]string, error)
}

// LegacyAdapter exposes a Resolver through the legacy group-lookup
// hook. The protocol attributes carry nothing the resolvers need, so
// they are ignored.
type LegacyAdapter struct {
	resolver Resolver
}

var _ LegacyGroupLookup = (*LegacyAdapter)(nil)

func NewLegacyAdapter(resolver Resolver) *LegacyAdapter {
	return &LegacyAdapter{resolver: resolver}
}

func (a *LegacyAdapter) Groups(ctx context.Context, login string, _ map[string][]string) ([]string, error) {
	return a.resolver.ResolveGroups(ctx, login)
}
