package verbs

import (
	"fmt"
	"sync"
)

// Registry holds registered verbs in registration order. Registration
// is the sole extension point: a verb registered here automatically
// inherits preview, policy checks, confirmation, and backup.
type Registry struct {
	mu    sync.RWMutex
	verbs map[string]Verb
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{verbs: make(map[string]Verb)}
}

var globalRegistry = NewRegistry()

// Default returns the process-wide registry populated at startup.
func Default() *Registry {
	return globalRegistry
}

// Register adds a verb. Duplicate registration is an error.
func (r *Registry) Register(v Verb) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ActionID(v)
	if _, exists := r.verbs[id]; exists {
		return fmt.Errorf("verb %s already registered", id)
	}
	r.verbs[id] = v
	r.order = append(r.order, id)
	return nil
}

// MustRegister registers or panics. Used from init; a duplicate verb
// is a startup defect, not a runtime condition.
func MustRegister(v Verb) {
	if err := globalRegistry.Register(v); err != nil {
		panic(err)
	}
}

// Get looks up a verb by target and name.
func (r *Registry) Get(target, name string) (Verb, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verbs[target+":"+name]
	return v, ok
}

// All returns verbs in registration order.
func (r *Registry) All() []Verb {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Verb, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.verbs[id])
	}
	return out
}
