// Package health blocks a flow until a resource of a running instance reports
// healthy.
package health

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/models"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
	"github.com/hostncode/apphost-smoke/pkg/guard"
	"github.com/hostncode/apphost-smoke/pkg/notifications"
)

// WaitHealthy returns once resource has been observed healthy on source.
//
// The subscription is opened before waiting and replays the latest state, so
// a transition that happened before the call is not missed. It fails with a
// ResourceTerminatedError when the resource terminates or the stream closes
// first, and with a TimeoutError for the health-wait phase after timeout.
func WaitHealthy(ctx context.Context, source notifications.Source, resource string, timeout time.Duration) error {
	sub := source.Subscribe(resource)
	defer sub.Close()

	return guard.Do(ctx, models.PhaseHealthWait.String(), resource, timeout, func(ctx context.Context) error {
		for {
			event, err := sub.Next(ctx)
			if err != nil {
				if errors.Is(err, notifications.ErrClosed) {
					return srvErrors.NewResourceTerminatedError(resource, "notification stream closed")
				}
				return err
			}

			zap.S().Debugw("health transition", "resource", event.Resource, "state", event.State, "error", event.Error)

			switch event.State {
			case models.HealthStateHealthy:
				return nil
			case models.HealthStateTerminated:
				return srvErrors.NewResourceTerminatedError(resource, event.Error)
			}
		}
	})
}
