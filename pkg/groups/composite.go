package groups

import (
	"context"
)

// CompositeResolver runs an ordered list of resolvers and unions their
// ids, dropping duplicates while keeping first-seen order.
type CompositeResolver struct {
	resolvers []Resolver
}

var _ Resolver = (*CompositeResolver)(nil)

func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{resolvers: resolvers}
}

func (r *CompositeResolver) ResolveGroups(ctx context.Context, login string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, resolver := range r.resolvers {
		resolved, err := resolver.ResolveGroups(ctx, login)
		if err != nil {
			return nil, err
		}
		for _, id := range resolved {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// RequiresDirectory reports true when any member does.
func (r *CompositeResolver) RequiresDirectory() bool {
	for _, resolver := range r.resolvers {
		if resolver.RequiresDirectory() {
			return true
		}
	}
	return false
}
