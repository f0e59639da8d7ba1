package simulation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a fresh, unconfigured simulation
type Factory func() Simulation

type entry struct {
	name    string
	factory Factory
}

// Registry maps simulation names to factories. Lookups ignore case and
// treat spaces, dashes and underscores alike, so "Descent Ensemble" is also
// found as "descent-ensemble".
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// NameKey folds a display name into its lookup form
func NameKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "-")
}

// Register adds a simulation under its display name
func (r *Registry) Register(name string, factory Factory) error {
	k := NameKey(name)
	if k == "" {
		return fmt.Errorf("simulation name is empty")
	}
	if factory == nil {
		return fmt.Errorf("simulation %s has no factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[k]; ok {
		return fmt.Errorf("simulation %s already registered as %q", name, prev.name)
	}
	r.entries[k] = entry{name: strings.TrimSpace(name), factory: factory}
	return nil
}

// Get returns a new instance of the named simulation
func (r *Registry) Get(name string) (Simulation, error) {
	r.mu.RLock()
	e, ok := r.entries[NameKey(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("simulation %s not found", name)
	}
	return e.factory(), nil
}

// Has reports whether name resolves to a registered simulation
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[NameKey(name)]
	return ok
}

// List returns the display names in alphabetical order
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the simulations built into the binary
var DefaultRegistry = NewRegistry()
