// Package guard bounds asynchronous phases with a ceiling so a hung
// dependency fails the caller instead of blocking it.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
)

// DefaultTimeout is the ceiling applied to build, start and health-wait.
const DefaultTimeout = 30 * time.Second

type result[T any] struct {
	value T
	err   error
}

// Run executes op under a context derived from ctx that is cancelled once
// timeout elapses. It returns a TimeoutError naming phase and resource when the
// ceiling is hit, and the parent's error when ctx itself is cancelled first.
// A zero or negative timeout means DefaultTimeout.
//
// op always sees its context cancelled before Run returns, so an abandoned
// operation can release whatever it holds.
func Run[T any](ctx context.Context, phase, resource string, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	return RunOrRelease(ctx, phase, resource, timeout, op, nil)
}

// RunOrRelease is Run for operations that produce something that must be
// released. When the guard gives up on op but op still succeeds later, release
// is called with its late result in the background.
func RunOrRelease[T any](ctx context.Context, phase, resource string, timeout time.Duration, op func(ctx context.Context) (T, error), release func(T)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- result[T]{value: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err == nil {
			return r.value, nil
		}
		// an op failing once its context is gone is classified by the
		// context, whichever select case won
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s aborted: %w", phase, err)
		}
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return zero, srvErrors.NewTimeoutError(phase, resource, timeout)
		}
		return zero, r.err
	case <-opCtx.Done():
		if release != nil {
			go func() {
				if r := <-done; r.err == nil {
					zap.S().Debugw("releasing result of abandoned operation", "phase", phase, "resource", resource)
					release(r.value)
				}
			}()
		}
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s aborted: %w", phase, err)
		}
		zap.S().Debugw("phase timed out, abandoning operation", "phase", phase, "resource", resource, "timeout", timeout)
		return zero, srvErrors.NewTimeoutError(phase, resource, timeout)
	}
}

// Do is Run for operations that only return an error.
func Do(ctx context.Context, phase, resource string, timeout time.Duration, op func(ctx context.Context) error) error {
	_, err := Run(ctx, phase, resource, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
