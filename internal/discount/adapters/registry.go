// Package adapters hosts the discount adapter registry and the built-in
// discount adapters.
package adapters

import (
	"fmt"
	"sort"

	"github.com/cartforgelabs/cartforge/internal/discount/domain"
)

// Registry holds the process-wide discount adapters, populated once at
// startup and read-only afterwards.
type Registry struct {
	byKey   map[string]domain.Adapter
	ordered []domain.Adapter
}

func NewRegistry(adapters ...domain.Adapter) *Registry {
	r := &Registry{byKey: make(map[string]domain.Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter; equal OrderIndex keeps registration order.
func (r *Registry) Register(a domain.Adapter) {
	if _, exists := r.byKey[a.Key()]; exists {
		panic(fmt.Sprintf("discount: duplicate adapter key %q", a.Key()))
	}
	r.byKey[a.Key()] = a
	r.ordered = append(r.ordered, a)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].OrderIndex() < r.ordered[j].OrderIndex()
	})
}

// Get returns the adapter registered under key.
func (r *Registry) Get(key string) (domain.Adapter, error) {
	a, ok := r.byKey[key]
	if !ok {
		return nil, fmt.Errorf("discount adapter %q: %w", key, domain.ErrDiscountInvalid)
	}
	return a, nil
}

// Sorted returns the adapters in evaluation order.
func (r *Registry) Sorted() []domain.Adapter {
	out := make([]domain.Adapter, len(r.ordered))
	copy(out, r.ordered)
	return out
}
