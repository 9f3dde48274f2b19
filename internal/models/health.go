package models

import (
	"fmt"
	"time"
)

// HealthState represents the observed health of a resource.
type HealthState string

const (
	// HealthStateNotReady - resource declared or started but not answering health checks yet
	HealthStateNotReady HealthState = "not-ready"
	// HealthStateHealthy - health check succeeded
	HealthStateHealthy HealthState = "healthy"
	// HealthStateUnhealthy - resource running but health check failing
	HealthStateUnhealthy HealthState = "unhealthy"
	// HealthStateTerminated - resource exited or its instance was released
	HealthStateTerminated HealthState = "terminated"
)

func ParseHealthState(s string) (HealthState, error) {
	switch HealthState(s) {
	case HealthStateNotReady, HealthStateHealthy, HealthStateUnhealthy, HealthStateTerminated:
		return HealthState(s), nil
	default:
		return "", fmt.Errorf("invalid health state: %s", s)
	}
}

// IsFinal reports whether no further transition can follow.
func (h HealthState) IsFinal() bool {
	return h == HealthStateTerminated
}

// ResourceEvent is a single health transition emitted by a running instance.
type ResourceEvent struct {
	Resource string
	State    HealthState
	At       time.Time
	Error    string
}

func (e ResourceEvent) String() string {
	if e.Error == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.State)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Resource, e.State, e.Error)
}
