package schema

import (
	"fmt"
	"sync"
)

// Registry holds the declared models in registration order.
type Registry struct {
	mu     sync.RWMutex
	models []*Model
	byName map[string]*Model
}

// NewRegistry creates a registry holding models.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Model)}
	if err := r.Register(models...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register validates and adds models. Names and tables must be unique.
func (r *Registry) Register(models ...*Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range models {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := r.byName[m.Name]; dup {
			return fmt.Errorf("model %s already registered", m.Name)
		}
		for _, other := range r.models {
			if other.Table == m.Table {
				return fmt.Errorf("models %s and %s share table %q", other.Name, m.Name, m.Table)
			}
		}
		r.models = append(r.models, m)
		r.byName[m.Name] = m
	}
	return nil
}

// Model looks a model up by name, falling back to its table name.
func (r *Registry) Model(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.byName[name]; ok {
		return m, true
	}
	for _, m := range r.models {
		if m.Table == name {
			return m, true
		}
	}
	return nil, false
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Model(nil), r.models...)
}

// Len is the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
