package apphost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/models"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
	"github.com/hostncode/apphost-smoke/pkg/health"
	"github.com/hostncode/apphost-smoke/pkg/notifications"
	"github.com/hostncode/apphost-smoke/pkg/resilience"
)

var (
	ErrAlreadyStarted = errors.New("instance already started")
	ErrDisposed       = errors.New("instance disposed")
)

type managedResource struct {
	Resource
	spec           ResourceSpec
	healthInterval time.Duration
}

// Instance is a built topology. It owns every resource it launched and must
// be released with Dispose.
type Instance struct {
	id                uuid.UUID
	descriptor        models.Descriptor
	policy            resilience.Policy
	dependencyTimeout time.Duration
	hub               *notifications.Hub
	resources         []*managedResource
	byName            map[string]*managedResource

	lock          sync.Mutex
	started       bool
	disposed      bool
	clients       map[string]*http.Client
	monitorCancel context.CancelFunc
	monitors      sync.WaitGroup

	disposeOnce sync.Once
}

func (i *Instance) ID() uuid.UUID { return i.id }

func (i *Instance) Descriptor() models.Descriptor { return i.descriptor }

// Subscribe opens a subscription to the health transitions of resource.
func (i *Instance) Subscribe(resource string) *notifications.Subscription {
	return i.hub.Subscribe(resource)
}

// Health returns the last published state of resource.
func (i *Instance) Health(resource string) models.HealthState {
	e, ok := i.hub.Latest(resource)
	if !ok {
		return models.HealthStateNotReady
	}
	return e.State
}

// Resources returns the resource names in start order.
func (i *Instance) Resources() []string {
	names := make([]string, 0, len(i.resources))
	for _, m := range i.resources {
		names = append(names, m.spec.Name)
	}
	return names
}

// Endpoint returns the current base address of resource.
func (i *Instance) Endpoint(resource string) (*url.URL, error) {
	m, found := i.byName[resource]
	if !found {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
	return m.Endpoint()
}

// HTTPClient returns the client bound to resource. Requests with a relative
// URL, or addressed to http://<resource>/, go to the resource's endpoint
// through the instance's resilience policy.
func (i *Instance) HTTPClient(resource string) (*http.Client, error) {
	m, found := i.byName[resource]
	if !found {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}

	i.lock.Lock()
	defer i.lock.Unlock()

	if i.disposed {
		return nil, ErrDisposed
	}
	if i.clients == nil {
		i.clients = make(map[string]*http.Client)
	}
	if c, ok := i.clients[resource]; ok {
		return c, nil
	}
	c := i.policy.NewClient(resource, m.Endpoint)
	i.clients[resource] = c
	return c, nil
}

// Start starts the resources in dependency order and begins monitoring their
// health. A resource is started only once every resource it depends on is
// healthy. Start returns a StartError naming the first resource that failed;
// the caller still owns the instance and must Dispose it.
func (i *Instance) Start(ctx context.Context) error {
	i.lock.Lock()
	switch {
	case i.disposed:
		i.lock.Unlock()
		return ErrDisposed
	case i.started:
		i.lock.Unlock()
		return ErrAlreadyStarted
	}
	i.started = true
	// monitors outlive the start call, only Dispose stops them
	monitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	i.monitorCancel = cancel
	i.lock.Unlock()

	for _, m := range i.resources {
		for _, dep := range m.spec.DependsOn {
			zap.S().Debugw("waiting for dependency", "instance", i.id, "resource", m.spec.Name, "dependency", dep)
			if err := health.WaitHealthy(ctx, i.hub, dep, i.dependencyTimeout); err != nil {
				return srvErrors.NewStartError(m.spec.Name, fmt.Errorf("dependency %q: %w", dep, err))
			}
		}

		if err := m.Start(ctx); err != nil {
			return srvErrors.NewStartError(m.spec.Name, err)
		}
		if err := ctx.Err(); err != nil {
			return srvErrors.NewStartError(m.spec.Name, err)
		}

		i.lock.Lock()
		if i.disposed {
			i.lock.Unlock()
			return srvErrors.NewStartError(m.spec.Name, ErrDisposed)
		}
		i.monitors.Add(1)
		i.lock.Unlock()
		go i.monitor(monitorCtx, m)

		zap.S().Infow("resource started", "instance", i.id, "resource", m.spec.Name)
	}

	return nil
}

// Dispose stops monitoring and stops every resource in reverse start order.
// Only the first call does any work; later calls return nil.
func (i *Instance) Dispose(ctx context.Context) error {
	var err error
	i.disposeOnce.Do(func() {
		err = i.release(ctx)
	})
	return err
}

func (i *Instance) release(ctx context.Context) error {
	i.lock.Lock()
	i.disposed = true
	cancel := i.monitorCancel
	clients := i.clients
	i.clients = nil
	i.lock.Unlock()

	if cancel != nil {
		cancel()
	}
	i.monitors.Wait()

	for _, c := range clients {
		c.CloseIdleConnections()
	}

	var errs error
	for idx := len(i.resources) - 1; idx >= 0; idx-- {
		m := i.resources[idx]
		if err := m.Stop(ctx); err != nil {
			zap.S().Warnw("failed to stop resource", "instance", i.id, "resource", m.spec.Name, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("stopping %s: %w", m.spec.Name, err))
		}
		i.hub.Publish(models.ResourceEvent{Resource: m.spec.Name, State: models.HealthStateTerminated, Error: "instance disposed"})
	}
	i.hub.Close()

	zap.S().Infow("instance disposed", "instance", i.id, "topology", i.descriptor, "errors", len(multierr.Errors(errs)))
	return errs
}
