package dispatcher

import (
	"fmt"
	"sync"

	"github.com/clerkmesh/clerkmesh/core"
)

// Registry is the explicit handler registry a Dispatcher is constructed with.
// Keeping it an object rather than an ambient collection means multiple
// dispatchers can coexist without interfering.
type Registry struct {
	mu         sync.RWMutex
	byCategory map[core.Category]core.Handler
	byName     map[string]core.Handler
	order      []core.Handler
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byCategory: make(map[core.Category]core.Handler),
		byName:     make(map[string]core.Handler),
	}
}

// Register adds a handler, rejecting duplicate categories and names.
func (r *Registry) Register(h core.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byCategory[h.Category()]; ok {
		return fmt.Errorf("category %s already handled by %s", h.Category(), existing.Name())
	}
	if _, ok := r.byName[h.Name()]; ok {
		return fmt.Errorf("handler name %s already registered", h.Name())
	}
	r.byCategory[h.Category()] = h
	r.byName[h.Name()] = h
	r.order = append(r.order, h)
	return nil
}

// Lookup resolves a handler by work item category.
func (r *Registry) Lookup(c core.Category) (core.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byCategory[c]
	return h, ok
}

// Find resolves a handler by name (the message addressing scheme).
func (r *Registry) Find(name string) (core.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byName[name]
	return h, ok
}

// Handlers returns all registered handlers in registration order.
func (r *Registry) Handlers() []core.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Handler, len(r.order))
	copy(out, r.order)
	return out
}
