package apphost

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hostncode/apphost-smoke/internal/models"
)

// TopologyFunc declares the resources of a topology on the builder.
type TopologyFunc func(b *PlanBuilder) error

// Registry maps topology descriptors to their definitions.
type Registry struct {
	lock       sync.RWMutex
	topologies map[models.Descriptor]TopologyFunc
}

func NewRegistry() *Registry {
	return &Registry{topologies: make(map[models.Descriptor]TopologyFunc)}
}

// Register adds a topology. Registering the same descriptor twice is an error.
func (r *Registry) Register(descriptor models.Descriptor, fn TopologyFunc) error {
	if descriptor == "" {
		return errors.New("topology descriptor cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("topology %q has no definition", descriptor)
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, found := r.topologies[descriptor]; found {
		return fmt.Errorf("topology %q already registered", descriptor)
	}
	r.topologies[descriptor] = fn
	return nil
}

// MustRegister is Register for package-level wiring.
func (r *Registry) MustRegister(descriptor models.Descriptor, fn TopologyFunc) {
	if err := r.Register(descriptor, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(descriptor models.Descriptor) (TopologyFunc, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	fn, ok := r.topologies[descriptor]
	return fn, ok
}

// Descriptors lists the registered topologies, sorted.
func (r *Registry) Descriptors() []models.Descriptor {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]models.Descriptor, 0, len(r.topologies))
	for d := range r.topologies {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
