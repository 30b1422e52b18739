package pricing

import (
	"fmt"
	"sort"
)

// Registry holds the adapters of one pricing domain. One instance per
// domain is constructed at process start and injected into that domain's
// director; registries are read-mostly after boot and never mutated
// per-request.
type Registry struct {
	domain  string
	byKey   map[string]Adapter
	ordered []Adapter
}

// NewRegistry returns a registry for the named pricing domain.
func NewRegistry(domain string, adapters ...Adapter) *Registry {
	r := &Registry{
		domain: domain,
		byKey:  make(map[string]Adapter),
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Domain names the pricing domain this registry serves.
func (r *Registry) Domain() string { return r.domain }

// Register adds an adapter. Adapters sharing an OrderIndex keep their
// registration order (stable sort), so execution order is deterministic
// across calculation passes.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.byKey[a.Key()]; exists {
		panic(fmt.Sprintf("pricing: duplicate adapter key %q in %s registry", a.Key(), r.domain))
	}
	r.byKey[a.Key()] = a
	r.ordered = append(r.ordered, a)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].OrderIndex() < r.ordered[j].OrderIndex()
	})
}

// Get returns the adapter registered under key.
func (r *Registry) Get(key string) (Adapter, error) {
	a, ok := r.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%s adapter %q: %w", r.domain, key, ErrAdapterNotFound)
	}
	return a, nil
}

// Sorted returns the adapters in execution order.
func (r *Registry) Sorted() []Adapter {
	out := make([]Adapter, len(r.ordered))
	copy(out, r.ordered)
	return out
}
