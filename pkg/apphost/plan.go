package apphost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/models"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
	"github.com/hostncode/apphost-smoke/pkg/notifications"
	"github.com/hostncode/apphost-smoke/pkg/resilience"
)

const defaultHealthInterval = time.Second

// PlanBuilder collects resource declarations while a topology is defined.
type PlanBuilder struct {
	specs []ResourceSpec
	names map[string]struct{}
}

// AddResource declares a resource. Names must be unique within a topology.
func (b *PlanBuilder) AddResource(spec ResourceSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("resource name cannot be empty")
	}
	if spec.New == nil {
		return fmt.Errorf("resource %q has no constructor", spec.Name)
	}
	if _, found := b.names[spec.Name]; found {
		return fmt.Errorf("resource %q declared twice", spec.Name)
	}
	b.names[spec.Name] = struct{}{}
	b.specs = append(b.specs, spec)
	return nil
}

// Overrides is the cross-cutting configuration applied to a plan before it
// is built.
type Overrides struct {
	// HTTPClientPolicy is attached to every HTTP client the instance hands out.
	HTTPClientPolicy *resilience.Policy
	// HealthInterval, when set, replaces the per-resource health interval.
	HealthInterval time.Duration
	// DependencyTimeout bounds how long Start waits for each dependency to be
	// healthy. Zero means guard.DefaultTimeout.
	DependencyTimeout time.Duration
}

// LaunchPlan is the in-memory description of a topology ready to be built.
type LaunchPlan struct {
	descriptor models.Descriptor
	specs      []ResourceSpec

	lock      sync.Mutex
	overrides Overrides
	frozen    bool
}

// Create builds the launch plan of descriptor.
func (r *Registry) Create(descriptor models.Descriptor) (*LaunchPlan, error) {
	fn, found := r.lookup(descriptor)
	if !found {
		return nil, srvErrors.NewPlanConstructionError(descriptor.String(), fmt.Errorf("topology not registered"))
	}

	b := &PlanBuilder{names: make(map[string]struct{})}
	if err := fn(b); err != nil {
		return nil, srvErrors.NewPlanConstructionError(descriptor.String(), err)
	}
	if len(b.specs) == 0 {
		return nil, srvErrors.NewPlanConstructionError(descriptor.String(), fmt.Errorf("topology declares no resources"))
	}

	ordered, err := orderByDependencies(b.specs)
	if err != nil {
		return nil, srvErrors.NewPlanConstructionError(descriptor.String(), err)
	}

	policy := resilience.StandardPolicy()
	return &LaunchPlan{
		descriptor: descriptor,
		specs:      ordered,
		overrides:  Overrides{HTTPClientPolicy: &policy},
	}, nil
}

func (p *LaunchPlan) Descriptor() models.Descriptor { return p.descriptor }

// Resources returns the resource names in start order.
func (p *LaunchPlan) Resources() []string {
	names := make([]string, 0, len(p.specs))
	for _, s := range p.specs {
		names = append(names, s.Name)
	}
	return names
}

// Configure applies overrides. It must be called before Build.
func (p *LaunchPlan) Configure(o Overrides) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.frozen {
		return srvErrors.NewPlanConstructionError(p.descriptor.String(), fmt.Errorf("plan already built, overrides must be applied before build"))
	}
	if o.HTTPClientPolicy != nil {
		if err := o.HTTPClientPolicy.Validate(); err != nil {
			return srvErrors.NewPlanConstructionError(p.descriptor.String(), fmt.Errorf("invalid http client policy: %w", err))
		}
		policy := *o.HTTPClientPolicy
		p.overrides.HTTPClientPolicy = &policy
	}
	if o.HealthInterval > 0 {
		p.overrides.HealthInterval = o.HealthInterval
	}
	if o.DependencyTimeout > 0 {
		p.overrides.DependencyTimeout = o.DependencyTimeout
	}
	return nil
}

// Build materializes every resource of the plan without starting traffic. If
// a resource fails to build, the ones already built are stopped before the
// BuildError is returned.
func (p *LaunchPlan) Build(ctx context.Context) (*Instance, error) {
	p.lock.Lock()
	p.frozen = true
	overrides := p.overrides
	p.lock.Unlock()

	inst := &Instance{
		id:                uuid.New(),
		descriptor:        p.descriptor,
		policy:            *overrides.HTTPClientPolicy,
		dependencyTimeout: overrides.DependencyTimeout,
		hub:               notifications.NewHub(),
		byName:            make(map[string]*managedResource),
	}

	for _, spec := range p.specs {
		if err := ctx.Err(); err != nil {
			inst.release(context.WithoutCancel(ctx))
			return nil, srvErrors.NewBuildError(spec.Name, err)
		}

		res, err := spec.New()
		if err != nil {
			inst.release(context.WithoutCancel(ctx))
			return nil, srvErrors.NewBuildError(spec.Name, err)
		}

		interval := spec.HealthInterval
		if overrides.HealthInterval > 0 {
			interval = overrides.HealthInterval
		}
		if interval <= 0 {
			interval = defaultHealthInterval
		}

		m := &managedResource{Resource: res, spec: spec, healthInterval: interval}
		inst.resources = append(inst.resources, m)
		inst.byName[spec.Name] = m

		if err := res.Build(ctx); err != nil {
			inst.release(context.WithoutCancel(ctx))
			return nil, srvErrors.NewBuildError(spec.Name, err)
		}
		inst.hub.Publish(models.ResourceEvent{Resource: spec.Name, State: models.HealthStateNotReady})
		zap.S().Debugw("resource built", "instance", inst.id, "resource", spec.Name)
	}

	if err := ctx.Err(); err != nil {
		inst.release(context.WithoutCancel(ctx))
		return nil, srvErrors.NewBuildError(inst.resources[len(inst.resources)-1].spec.Name, err)
	}

	zap.S().Infow("instance built", "instance", inst.id, "topology", p.descriptor, "resources", len(inst.resources))
	return inst, nil
}

// orderByDependencies returns specs so that every resource follows the
// resources it depends on, keeping declaration order otherwise.
func orderByDependencies(specs []ResourceSpec) ([]ResourceSpec, error) {
	byName := make(map[string]ResourceSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(specs))
	ordered := make([]ResourceSpec, 0, len(specs))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through resource %q", name)
		}
		state[name] = visiting
		for _, dep := range byName[name].DependsOn {
			if _, found := byName[dep]; !found {
				return fmt.Errorf("resource %q depends on unknown resource %q", name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = visited
		ordered = append(ordered, byName[name])
		return nil
	}

	for _, s := range specs {
		if err := visit(s.Name); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
