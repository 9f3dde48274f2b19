package scenario

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/models"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
	"github.com/hostncode/apphost-smoke/pkg/scheduler"
)

// Suite runs scenarios concurrently on a bounded pool. Scenarios are
// independent: one failing never stops the others.
type Suite struct {
	runner  *Runner
	workers int
}

func NewSuite(runner *Runner, workers int) *Suite {
	if workers < 1 {
		workers = 1
	}
	return &Suite{runner: runner, workers: workers}
}

// Run returns one report per scenario, in the order given.
func (s *Suite) Run(ctx context.Context, scenarios []Scenario) []*Report {
	sched := scheduler.NewScheduler[*Report](s.workers)
	defer sched.Close()

	futures := make([]*scheduler.Future[*Report], 0, len(scenarios))
	for _, sc := range scenarios {
		futures = append(futures, sched.AddWork(func(workCtx context.Context) (*Report, error) {
			workCtx, cancel := context.WithCancel(workCtx)
			defer cancel()
			stop := context.AfterFunc(ctx, cancel)
			defer stop()

			return s.runner.Run(workCtx, sc)
		}))
	}

	reports := make([]*Report, 0, len(scenarios))
	for i, f := range futures {
		r := <-f.C()
		if r.Data != nil {
			reports = append(reports, r.Data)
			continue
		}
		// the scenario never ran or its worker panicked
		zap.S().Errorw("scenario did not produce a report", "scenario", scenarios[i].Name, "error", r.Err)
		reports = append(reports, &Report{
			Scenario: scenarios[i],
			Phase:    models.PhaseInit,
			Err:      srvErrors.NewPhaseError(scenarios[i].Name, models.PhaseInit.String(), r.Err),
			Started:  time.Now(),
		})
	}
	return reports
}

// Failed returns the reports of failed scenarios.
func Failed(reports []*Report) []*Report {
	var failed []*Report
	for _, r := range reports {
		if !r.Passed() {
			failed = append(failed, r)
		}
	}
	return failed
}
