package optimization

import (
	"errors"
)

// ErrUnknownObjective is returned when a name is not in the catalog.
var ErrUnknownObjective = errors.New("unknown objective")

// Registry is an immutable catalog of objectives keyed by name.
type Registry struct {
	objectives map[string]Objective
	order      []string
}

// NewRegistry builds a registry from objs. Later duplicates replace earlier
// ones but keep the original position.
func NewRegistry(objs ...Objective) *Registry {
	r := &Registry{
		objectives: make(map[string]Objective, len(objs)),
		order:      make([]string, 0, len(objs)),
	}
	for _, obj := range objs {
		if _, exists := r.objectives[obj.Name()]; !exists {
			r.order = append(r.order, obj.Name())
		}
		r.objectives[obj.Name()] = obj
	}
	return r
}

// DefaultRegistry returns the fixed three-entry catalog: the convex bowl,
// the curved valley and the multi-term function.
func DefaultRegistry() *Registry {
	return NewRegistry(NewQuadratic(), NewRosenbrock(), NewBeale())
}

// Get returns the objective registered under name.
func (r *Registry) Get(name string) (Objective, error) {
	obj, ok := r.objectives[name]
	if !ok {
		return nil, WrapErrorf(ErrUnknownObjective, "objective %q", name).
			WithOperation("get").
			WithComponent("registry")
	}
	return obj, nil
}

// Names returns the catalog keys in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns the objectives in registration order.
func (r *Registry) All() []Objective {
	out := make([]Objective, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.objectives[name])
	}
	return out
}

// Len returns the number of objectives.
func (r *Registry) Len() int {
	return len(r.order)
}
