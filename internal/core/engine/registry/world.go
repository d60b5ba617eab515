// Package registry keeps the ordered set of compiled groups for a run and
// stamps control metadata onto them as they are added.
package registry

import (
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/rule"
)

// World is the ordered collection of top-level groups registered for a run.
// Insertion order is preserved and the same group may be added twice.
type World struct {
	provider rule.Provider
	order    Ordering
	groups   []*unit.Group
}

// Option configures a World.
type Option func(*World)

// WithOrdering sets the ordering strategy used by List.
func WithOrdering(o Ordering) Option {
	return func(w *World) {
		if o != nil {
			w.order = o
		}
	}
}

// New creates an empty World. A nil provider means rule.DefaultProvider.
func New(provider rule.Provider, opts ...Option) *World {
	if provider == nil {
		provider = rule.DefaultProvider{}
	}
	w := &World{provider: provider, order: Defined{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add stamps r's metadata onto g and its descendants, then appends g.
func (w *World) Add(g *unit.Group, r *rule.Rule) {
	Inject(g, r, w.provider)
	w.groups = append(w.groups, g)
}

// List returns the registered groups in the configured order. The returned
// slice is a copy; repeated calls without mutation return the same order.
func (w *World) List() []*unit.Group {
	return w.order.Order(append([]*unit.Group(nil), w.groups...))
}

// Len returns the number of registered groups.
func (w *World) Len() int {
	return len(w.groups)
}

// Reset discards every registered group.
func (w *World) Reset() {
	w.groups = nil
}
