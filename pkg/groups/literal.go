package groups

import (
	"context"
	"strings"

	"github.com/openlabtools/labauth/pkg/account"
)

// LiteralResolver resolves a fixed, comma-separated list of group names
// for every login. It never talks to the directory, so it stays usable
// when directory integration is disabled.
type LiteralResolver struct {
	names   []string
	perms   account.Permissions
	creator Creator
	cfg     Config
}

var _ Resolver = (*LiteralResolver)(nil)

// NewLiteralResolver parses a comma-separated list of group names.
// Blank entries are dropped.
func NewLiteralResolver(creator Creator, cfg Config, csv, level string) *LiteralResolver {
	var names []string
	for _, raw := range strings.Split(csv, ",") {
		if name := strings.TrimSpace(raw); name != "" {
			names = append(names, name)
		}
	}
	return &LiteralResolver{
		names:   names,
		perms:   PermissionsFor(level),
		creator: creator,
		cfg:     cfg,
	}
}

func (r *LiteralResolver) ResolveGroups(ctx context.Context, login string) ([]string, error) {
	return resolveItems(ctx, r, r.creator, r.cfg, login)
}

func (r *LiteralResolver) RequiresDirectory() bool { return false }

func (r *LiteralResolver) candidateNames(ctx context.Context, login string) ([]string, error) {
	return r.names, nil
}

func (r *LiteralResolver) permissions() account.Permissions { return r.perms }
