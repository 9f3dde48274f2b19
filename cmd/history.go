package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hostncode/apphost-smoke/internal/store"
	"github.com/hostncode/apphost-smoke/pkg/filter"
)

type historyOptions struct {
	DB     string
	Filter string
	Run    string
	Limit  uint64
}

func NewHistoryCommand() *cobra.Command {
	opts := &historyOptions{Limit: 20}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scenario runs",
		Long: `Show the scenario outcomes recorded with run --history-db, latest first.

Filter expressions compare fields with =, !=, <, <=, >, >=, match them with
~ /regex/ or !~ /regex/, and combine comparisons with and, or and brackets.
Durations take a ms, s, m or h unit:

  smoke history --history-db runs.duckdb --filter "phase = 'health-wait' and duration > 5s"

Fields: ` + strings.Join(filter.Columns(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.DB == "" {
				return errors.New("history-db must be set")
			}
			return showHistory(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "history-db", opts.DB, "DuckDB file runs were recorded in")
	cmd.Flags().StringVar(&opts.Filter, "filter", opts.Filter, "Filter expression")
	cmd.Flags().StringVar(&opts.Run, "run", opts.Run, "Show a single run")
	cmd.Flags().Uint64Var(&opts.Limit, "limit", opts.Limit, "Maximum number of records shown (0 for all)")
	return cmd
}

func showHistory(ctx context.Context, out io.Writer, opts *historyOptions) error {
	var filters []store.ListOption
	if opts.Filter != "" {
		expr, err := filter.Parse([]byte(opts.Filter))
		if err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
		filters = append(filters, store.ByFilter(expr))
	}
	if opts.Run != "" {
		filters = append(filters, store.ByRun(opts.Run))
	}

	s, err := store.Open(ctx, opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	total, err := s.Runs().Count(ctx, filters...)
	if err != nil {
		return err
	}
	records, err := s.Runs().List(ctx, append(filters, store.LatestFirst(), store.WithLimit(opts.Limit))...)
	if err != nil {
		return err
	}

	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tSCENARIO\tRESULT\tPHASE\tSTATUS\tDURATION")
	for _, r := range records {
		result := pass("PASS")
		if !r.Passed {
			result = fail("FAIL")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			shortID(r.RunID),
			r.Scenario,
			result,
			r.Phase,
			r.StatusCode,
			r.Duration.Round(time.Millisecond),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d of %d records\n", len(records), total)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
