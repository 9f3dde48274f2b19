// Package errors provides custom error types for the smoke harness.
//
// Each error type includes a constructor, Error() method, and a type-checking
// helper using errors.As for proper error unwrapping.
//
// # Error Types Overview
//
//	┌──────────────────────────┬─────────────┬─────────────────────────────────────┐
//	│ Error Type               │ Phase       │ Description                         │
//	├──────────────────────────┼─────────────┼─────────────────────────────────────┤
//	│ PlanConstructionError    │ plan        │ Unknown or broken topology          │
//	│ BuildError               │ build       │ Resource could not be materialized  │
//	│ StartError               │ start       │ Resource failed to initialize       │
//	│ TimeoutError             │ any guarded │ Phase exceeded its ceiling          │
//	│ ResourceTerminatedError  │ health-wait │ Resource died before healthy        │
//	│ RequestError             │ probe       │ Network failure reaching resource   │
//	│ AssertionError           │ assert      │ Response did not match expectation  │
//	└──────────────────────────┴─────────────┴─────────────────────────────────────┘
//
// The scenario runner wraps every one of them in a PhaseError so callers can
// tell "never got healthy" apart from "got healthy but wrong content".
//
// # TimeoutError
//
// Returned by the timeout guard. It names the phase and, when known, the
// resource it was waiting on.
//
// Constructor:
//   - NewTimeoutError(phase, resource string, timeout time.Duration)
//
// Usage:
//
//	if errors.IsTimeoutError(err) {
//	    zap.S().Errorw("phase timed out", "error", err)
//	}
//
// # ResourceTerminatedError
//
// Returned by the health gate when the notification stream closes or the
// resource reports it has terminated before ever becoming healthy.
//
// Constructor:
//   - NewResourceTerminatedError(resource, reason string)
//
// # AssertionError
//
// Carries the asserted field ("status" or "body") and both values.
//
// Constructor:
//   - NewAssertionError(field string, expected, actual any)
//
// # PhaseError
//
// Wraps an error with the scenario name and the phase it failed in.
// FailedPhase(err) extracts the phase from any wrapped error chain.
package errors
