package groups

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a named set of resolvers, built once at startup. Callers
// hold resolver references obtained here instead of looking names up at
// login time.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// Register adds a resolver under a unique name.
func (r *Registry) Register(name string, resolver Resolver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resolvers[name]; exists {
		return fmt.Errorf("group resolver %q already registered", name)
	}
	r.resolvers[name] = resolver
	return nil
}

// Get returns the resolver registered under name.
func (r *Registry) Get(name string) (Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resolver, ok := r.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown group resolver %q", name)
	}
	return resolver, nil
}

// Names returns the registered resolver names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.resolvers))
	for name := range r.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
