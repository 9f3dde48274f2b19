package errors

import (
	"errors"
	"fmt"
	"time"
)

// PlanConstructionError indicates the topology descriptor could not be turned into a launch plan.
type PlanConstructionError struct {
	Descriptor string
	Err        error
}

func NewPlanConstructionError(descriptor string, err error) *PlanConstructionError {
	return &PlanConstructionError{Descriptor: descriptor, Err: err}
}

func (e *PlanConstructionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to construct plan for topology %q", e.Descriptor)
	}
	return fmt.Sprintf("failed to construct plan for topology %q: %v", e.Descriptor, e.Err)
}

func (e *PlanConstructionError) Unwrap() error { return e.Err }

// IsPlanConstructionError checks if the error is a PlanConstructionError.
func IsPlanConstructionError(err error) bool {
	var e *PlanConstructionError
	return errors.As(err, &e)
}

// BuildError indicates a resource could not be materialized.
type BuildError struct {
	Resource string
	Err      error
}

func NewBuildError(resource string, err error) *BuildError {
	return &BuildError{Resource: resource, Err: err}
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build resource %q: %v", e.Resource, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// IsBuildError checks if the error is a BuildError.
func IsBuildError(err error) bool {
	var e *BuildError
	return errors.As(err, &e)
}

// StartError indicates a resource failed to initialize.
type StartError struct {
	Resource string
	Err      error
}

func NewStartError(resource string, err error) *StartError {
	return &StartError{Resource: resource, Err: err}
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start resource %q: %v", e.Resource, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// IsStartError checks if the error is a StartError.
func IsStartError(err error) bool {
	var e *StartError
	return errors.As(err, &e)
}

// TimeoutError indicates a phase exceeded its ceiling.
type TimeoutError struct {
	Phase    string
	Resource string
	Timeout  time.Duration
}

func NewTimeoutError(phase, resource string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Phase: phase, Resource: resource, Timeout: timeout}
}

func (e *TimeoutError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s timed out after %s", e.Phase, e.Timeout)
	}
	return fmt.Sprintf("%s of resource %q timed out after %s", e.Phase, e.Resource, e.Timeout)
}

// IsTimeoutError checks if the error is a TimeoutError.
func IsTimeoutError(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}

// ResourceTerminatedError indicates the resource or its instance went away before becoming healthy.
type ResourceTerminatedError struct {
	Resource string
	Reason   string
}

func NewResourceTerminatedError(resource, reason string) *ResourceTerminatedError {
	return &ResourceTerminatedError{Resource: resource, Reason: reason}
}

func (e *ResourceTerminatedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("resource %q terminated before becoming healthy", e.Resource)
	}
	return fmt.Sprintf("resource %q terminated before becoming healthy: %s", e.Resource, e.Reason)
}

// IsResourceTerminatedError checks if the error is a ResourceTerminatedError.
func IsResourceTerminatedError(err error) bool {
	var e *ResourceTerminatedError
	return errors.As(err, &e)
}

// RequestError indicates the probed resource could not be reached.
type RequestError struct {
	Resource string
	Path     string
	Err      error
}

func NewRequestError(resource, path string, err error) *RequestError {
	return &RequestError{Resource: resource, Path: path, Err: err}
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request GET %s on resource %q failed: %v", e.Path, e.Resource, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsRequestError checks if the error is a RequestError.
func IsRequestError(err error) bool {
	var e *RequestError
	return errors.As(err, &e)
}

// AssertionError indicates the response did not match the expectation.
type AssertionError struct {
	Field    string
	Expected any
	Actual   any
}

func NewAssertionError(field string, expected, actual any) *AssertionError {
	return &AssertionError{Field: field, Expected: expected, Actual: actual}
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %v, got %v", e.Field, e.Expected, e.Actual)
}

// IsAssertionError checks if the error is an AssertionError.
func IsAssertionError(err error) bool {
	var e *AssertionError
	return errors.As(err, &e)
}

// PhaseError attaches the scenario and the phase that failed to the underlying error.
type PhaseError struct {
	Scenario string
	Phase    string
	Err      error
}

func NewPhaseError(scenario, phase string, err error) *PhaseError {
	return &PhaseError{Scenario: scenario, Phase: phase, Err: err}
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("scenario %q failed during %s: %v", e.Scenario, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// FailedPhase returns the phase recorded on err, or "" when err carries none.
func FailedPhase(err error) string {
	var e *PhaseError
	if errors.As(err, &e) {
		return e.Phase
	}
	return ""
}
