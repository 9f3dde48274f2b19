package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/config"
	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/internal/store"
	"github.com/hostncode/apphost-smoke/internal/topology"
	"github.com/hostncode/apphost-smoke/pkg/apphost"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
	"github.com/hostncode/apphost-smoke/pkg/scenario"
)

func NewRunCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the smoke scenarios",
		Long: `Run the smoke scenarios.

Every scenario launches its own instance of the topology, waits for the
webfrontend resource to be healthy, requests one page and checks the answer.
The instance is torn down whatever the outcome.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfiguration(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runScenarios(ctx, cmd.OutOrStdout(), cfg)
		},
	}

	registerRunFlags(cmd, cfg)
	return cmd
}

func registerRunFlags(cmd *cobra.Command, cfg *config.Configuration) {
	// harness
	cmd.Flags().StringVar(&cfg.Harness.Topology, "topology", cfg.Harness.Topology, "Topology to launch")
	cmd.Flags().DurationVar(&cfg.Harness.Timeout, "timeout", cfg.Harness.Timeout, "Ceiling applied to build, start and health-wait")
	cmd.Flags().IntVar(&cfg.Harness.Workers, "workers", cfg.Harness.Workers, "Number of scenarios run concurrently")
	cmd.Flags().DurationVar(&cfg.Harness.HealthInterval, "health-interval", cfg.Harness.HealthInterval, "Maximum interval between two health checks")
	cmd.Flags().StringSliceVar(&cfg.Harness.Scenarios, "scenario", cfg.Harness.Scenarios, "Run only the named scenarios (repeatable)")
	cmd.Flags().StringVar(&cfg.Harness.HistoryDB, "history-db", cfg.Harness.HistoryDB, "DuckDB file the run is recorded in (disabled when empty)")

	// frontend
	cmd.Flags().StringVar(&cfg.Frontend.Mode, "frontend-mode", cfg.Frontend.Mode, "How webfrontend is launched: inproc, process or container")
	cmd.Flags().StringVar(&cfg.Frontend.Binary, "frontend-binary", cfg.Frontend.Binary, "Binary serving the frontend in process mode (defaults to this binary)")
	cmd.Flags().StringVar(&cfg.Frontend.Image, "frontend-image", cfg.Frontend.Image, "Image serving the frontend in container mode")
	cmd.Flags().StringVar(&cfg.Frontend.PodmanSocket, "podman-socket", cfg.Frontend.PodmanSocket, "Podman service URI used in container mode")
	cmd.Flags().IntVar(&cfg.Frontend.ContainerPort, "frontend-container-port", cfg.Frontend.ContainerPort, "Port the frontend listens on inside the container")

	// resilience
	cmd.Flags().DurationVar(&cfg.Resilience.TotalTimeout, "http-total-timeout", cfg.Resilience.TotalTimeout, "Timeout of a request including retries")
	cmd.Flags().DurationVar(&cfg.Resilience.AttemptTimeout, "http-attempt-timeout", cfg.Resilience.AttemptTimeout, "Timeout of a single request attempt")
	cmd.Flags().IntVar(&cfg.Resilience.RetryMax, "http-retry-max", cfg.Resilience.RetryMax, "Maximum number of retries of a request")
	cmd.Flags().BoolVar(&cfg.Resilience.InsecureSkipVerify, "http-insecure-skip-verify", cfg.Resilience.InsecureSkipVerify, "Do not verify the frontend certificate")
}

func validateConfiguration(cfg *config.Configuration) error {
	switch cfg.Frontend.Mode {
	case config.FrontendModeInProcess, config.FrontendModeProcess:
	case config.FrontendModeContainer:
		if cfg.Frontend.Image == "" {
			return errors.New("frontend-image must be set when frontend-mode is container")
		}
		if cfg.Frontend.PodmanSocket == "" {
			return errors.New("podman-socket must be set when frontend-mode is container")
		}
	default:
		return fmt.Errorf("invalid frontend-mode: %s", cfg.Frontend.Mode)
	}

	if cfg.Harness.Topology == "" {
		return errors.New("topology cannot be empty")
	}
	if cfg.Harness.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", cfg.Harness.Timeout)
	}
	if cfg.Harness.Workers < 1 {
		return fmt.Errorf("invalid workers: %d", cfg.Harness.Workers)
	}
	if _, err := scenario.Select(scenario.DefaultScenarios(), cfg.Harness.Scenarios...); err != nil {
		return err
	}
	if err := cfg.Resilience.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid http client policy: %w", err)
	}

	return cfg.Validate()
}

func runScenarios(ctx context.Context, out io.Writer, cfg *config.Configuration) error {
	registry, err := topology.NewRegistry(cfg)
	if err != nil {
		return err
	}

	scenarios, err := scenario.Select(scenario.DefaultScenarios(), cfg.Harness.Scenarios...)
	if err != nil {
		return err
	}
	for i := range scenarios {
		scenarios[i].Descriptor = models.Descriptor(cfg.Harness.Topology)
	}

	policy := cfg.Resilience.Policy()
	runner := scenario.NewRunner(registry, apphost.Overrides{
		HTTPClientPolicy: &policy,
		HealthInterval:   cfg.Harness.HealthInterval,
	}, cfg.Harness.Timeout)

	zap.S().Infow("running scenarios", "count", len(scenarios), "topology", cfg.Harness.Topology, "frontend_mode", cfg.Frontend.Mode, "workers", cfg.Harness.Workers)

	reports := scenario.NewSuite(runner, cfg.Harness.Workers).Run(ctx, scenarios)
	printReports(out, reports)

	if cfg.Harness.HistoryDB != "" {
		// a failed recording never changes the outcome of the run
		if err := recordRun(context.WithoutCancel(ctx), cfg.Harness.HistoryDB, reports); err != nil {
			zap.S().Errorw("failed to record run", "history_db", cfg.Harness.HistoryDB, "error", err)
		}
	}

	if failed := scenario.Failed(reports); len(failed) > 0 {
		return fmt.Errorf("%d of %d scenarios failed", len(failed), len(reports))
	}
	return nil
}

func recordRun(ctx context.Context, path string, reports []*scenario.Report) error {
	s, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()

	runID := uuid.NewString()
	records := make([]models.RunRecord, 0, len(reports))
	for _, r := range reports {
		records = append(records, r.Record(runID))
	}
	if err := s.Runs().Save(ctx, records...); err != nil {
		return err
	}

	zap.S().Infow("run recorded", "run", runID, "history_db", path, "scenarios", len(records))
	return nil
}

func printReports(out io.Writer, reports []*scenario.Report) {
	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for _, r := range reports {
		if r.Passed() {
			fmt.Fprintf(out, "%s %s %s\n", pass("PASS"), r.Scenario.Name, faint(r.Duration.Round(time.Millisecond)))
		} else {
			phase := srvErrors.FailedPhase(r.Err)
			if phase == "" {
				phase = r.Phase.String()
			}
			fmt.Fprintf(out, "%s %s [%s] %v\n", fail("FAIL"), r.Scenario.Name, phase, r.Err)
		}
		if r.TeardownErr != nil {
			fmt.Fprintf(out, "     %s %v\n", faint("teardown:"), r.TeardownErr)
		}
	}
}
