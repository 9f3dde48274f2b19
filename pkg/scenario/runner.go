package scenario

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/pkg/apphost"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
	"github.com/hostncode/apphost-smoke/pkg/guard"
	"github.com/hostncode/apphost-smoke/pkg/health"
	"github.com/hostncode/apphost-smoke/pkg/probe"
)

const maxReportedBody = 512

// Runner runs scenarios against topologies of a registry. Each run gets its
// own instance.
type Runner struct {
	registry  *apphost.Registry
	overrides apphost.Overrides
	timeout   time.Duration
}

func NewRunner(registry *apphost.Registry, overrides apphost.Overrides, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = guard.DefaultTimeout
	}
	if overrides.DependencyTimeout <= 0 {
		overrides.DependencyTimeout = timeout
	}
	return &Runner{registry: registry, overrides: overrides, timeout: timeout}
}

// Run executes s: plan, build, start, health-wait, probe, assert. Whatever
// happens after a successful build, the instance is disposed before Run
// returns. A failure is returned as a PhaseError naming the phase; teardown
// errors are recorded in the report without replacing it.
func (r *Runner) Run(ctx context.Context, s Scenario) (report *Report, err error) {
	report = &Report{Scenario: s, Phase: models.PhaseInit}
	logger := zap.S().Named("scenario").With("scenario", s.Name)

	started := time.Now()
	report.Started = started
	defer func() {
		report.Duration = time.Since(started)
		if err != nil {
			report.Err = err
			logger.Infow("scenario failed", "phase", report.Phase, "error", err, "duration", report.Duration)
			return
		}
		logger.Infow("scenario passed", "duration", report.Duration)
	}()

	fail := func(phase models.Phase, cause error) (*Report, error) {
		report.Phase = phase
		return report, srvErrors.NewPhaseError(s.Name, phase.String(), cause)
	}

	report.Phase = models.PhasePlan
	plan, err := r.registry.Create(s.Descriptor)
	if err != nil {
		return fail(models.PhasePlan, err)
	}
	if err := plan.Configure(r.overrides); err != nil {
		return fail(models.PhasePlan, err)
	}

	report.Phase = models.PhaseBuild
	inst, err := guard.RunOrRelease(ctx, models.PhaseBuild.String(), s.Descriptor.String(), r.timeout, plan.Build, func(late *apphost.Instance) {
		_ = late.Dispose(context.Background())
	})
	if err != nil {
		return fail(models.PhaseBuild, err)
	}
	report.InstanceID = inst.ID().String()
	logger = logger.With("instance", report.InstanceID)

	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if tErr := inst.Dispose(teardownCtx); tErr != nil {
			logger.Warnw("teardown failed", "error", tErr)
			report.TeardownErr = tErr
		}
	}()

	report.Phase = models.PhaseStart
	if err := guard.Do(ctx, models.PhaseStart.String(), s.Descriptor.String(), r.timeout, inst.Start); err != nil {
		return fail(models.PhaseStart, err)
	}

	report.Phase = models.PhaseHealthWait
	if err := health.WaitHealthy(ctx, inst, s.Resource, r.timeout); err != nil {
		return fail(models.PhaseHealthWait, err)
	}
	logger.Debugw("resource healthy", "resource", s.Resource)

	report.Phase = models.PhaseProbe
	p, err := probe.Client(inst, s.Resource)
	if err != nil {
		return fail(models.PhaseProbe, err)
	}
	result, err := p.Get(ctx, s.Path)
	if err != nil {
		return fail(models.PhaseProbe, err)
	}
	report.Result = result

	report.Phase = models.PhaseAssert
	if err := Assert(s, result); err != nil {
		return fail(models.PhaseAssert, err)
	}

	return report, nil
}

// Assert compares result with the expectations of s.
func Assert(s Scenario, result *models.ProbeResult) error {
	if result.StatusCode != s.ExpectedStatus {
		return srvErrors.NewAssertionError("status", s.ExpectedStatus, result.StatusCode)
	}
	if !strings.Contains(result.Body, s.ExpectedBody) {
		return srvErrors.NewAssertionError("body", s.ExpectedBody, truncate(result.Body, maxReportedBody))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
