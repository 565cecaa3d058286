package pipeline

import (
	"fmt"
	"sort"
)

// Router maps names to implementations with an optional fallback.
type Router[T any] struct {
	backends map[string]T
	fallback string
}

// NewRouter creates a router. An empty fallback makes unknown names an error.
func NewRouter[T any](backends map[string]T, fallback string) *Router[T] {
	return &Router[T]{backends: backends, fallback: fallback}
}

// Route returns the backend registered under name, or the fallback.
func (r *Router[T]) Route(name string) (T, error) {
	if backend, ok := r.backends[name]; ok {
		return backend, nil
	}
	if backend, ok := r.backends[r.fallback]; ok && r.fallback != "" {
		return backend, nil
	}
	var zero T
	return zero, fmt.Errorf("no backend named %q (have %v)", name, r.Names())
}

// Has reports whether a backend is registered under name.
func (r *Router[T]) Has(name string) bool {
	_, ok := r.backends[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Router[T]) Names() []string {
	names := make([]string, 0, len(r.backends))
	for k := range r.backends {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
