package apphost

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/models"
)

const (
	checkTimeout        = 5 * time.Second
	firstCheckInterval  = 50 * time.Millisecond
	terminatedNoMessage = "resource exited"
)

// monitor polls the health of m until ctx is cancelled or m terminates. Checks
// start fast and back off up to the resource's health interval.
func (i *Instance) monitor(ctx context.Context, m *managedResource) {
	defer i.monitors.Done()

	initial := firstCheckInterval
	if initial > m.healthInterval {
		initial = m.healthInterval
	}
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMaxInterval(m.healthInterval),
		backoff.WithMaxElapsedTime(0),
	)
	ticker := backoff.NewTicker(backoff.WithContext(b, ctx))
	defer ticker.Stop()

	var done <-chan error
	if t, ok := m.Resource.(Terminator); ok {
		done = t.Done()
	}

	logger := zap.S().Named("monitor").With("instance", i.id, "resource", m.spec.Name)
	healthy := false

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-done:
			reason := terminatedNoMessage
			if ok && err != nil {
				reason = err.Error()
			}
			logger.Warnw("resource terminated", "reason", reason)
			i.hub.Publish(models.ResourceEvent{Resource: m.spec.Name, State: models.HealthStateTerminated, Error: reason})
			return
		case _, ok := <-ticker.C:
			if !ok {
				return
			}

			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			err := m.Check(checkCtx)
			cancel()

			if ctx.Err() != nil {
				return
			}

			switch {
			case err == nil:
				if i.hub.Publish(models.ResourceEvent{Resource: m.spec.Name, State: models.HealthStateHealthy}) {
					logger.Infow("resource healthy")
				}
				healthy = true
			case healthy:
				if i.hub.Publish(models.ResourceEvent{Resource: m.spec.Name, State: models.HealthStateUnhealthy, Error: err.Error()}) {
					logger.Warnw("resource unhealthy", "error", err)
				}
			default:
				logger.Debugw("resource not ready", "error", err)
			}
		}
	}
}
