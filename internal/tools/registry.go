package tools

import (
	"fmt"
	"sync"
)

// Registry holds the tool catalogue. Registration happens at startup; after
// that the registry is only read, and every method is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []*ToolSpec
	byID  map[ToolKind]*ToolSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[ToolKind]*ToolSpec),
	}
}

// Register compiles the spec's input schema and adds it to the catalogue.
func (r *Registry) Register(spec ToolSpec) error {
	spec.ID = normalizeID(string(spec.ID))
	if !spec.ID.Valid() {
		return fmt.Errorf("tool kind %q is not supported", spec.ID)
	}
	if spec.Class != "" && !spec.Class.Valid() {
		return fmt.Errorf("tool %s has invalid reasoning class %q", spec.ID, spec.Class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[spec.ID]; exists {
		return &DuplicateToolError{ID: spec.ID}
	}
	if err := spec.compile(); err != nil {
		return err
	}

	stored := spec
	r.order = append(r.order, &stored)
	r.byID[spec.ID] = &stored
	return nil
}

// Lookup returns a copy of the spec for id.
func (r *Registry) Lookup(id string) (*ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.byID[normalizeID(id)]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return spec.clone(), nil
}

// List returns copies of the specs in registration order.
func (r *Registry) List() []*ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ToolSpec, len(r.order))
	for i, spec := range r.order {
		out[i] = spec.clone()
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Validate looks up id and checks args against its schema.
func (r *Registry) Validate(id string, args map[string]any) (*ToolSpec, error) {
	spec, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(args); err != nil {
		return spec, err
	}
	return spec, nil
}
