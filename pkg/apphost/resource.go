package apphost

import (
	"context"
	"net/url"
	"time"
)

// Resource is one independently health-tracked unit of a topology.
//
// Build allocates what the resource needs (ports, listeners, containers)
// without serving traffic. Start begins serving. Check reports nil once the
// resource is healthy. Stop releases everything Build and Start acquired and
// must be safe to call after a failed Build or Start.
type Resource interface {
	Name() string
	Build(ctx context.Context) error
	Start(ctx context.Context) error
	Endpoint() (*url.URL, error)
	Check(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Terminator is implemented by resources that can exit on their own. Done is
// closed (after an optional error is sent) when the resource terminates.
type Terminator interface {
	Done() <-chan error
}

// ResourceSpec declares a resource inside a topology.
type ResourceSpec struct {
	Name string
	// New constructs the resource. Plans are rebuilt for each instance, so
	// New is called once per Build.
	New func() (Resource, error)
	// HealthInterval caps the backoff between two health checks.
	HealthInterval time.Duration
	// DependsOn names resources that must be started before this one.
	DependsOn []string
}
