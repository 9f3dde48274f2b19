package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/pkg/filter"
)

const runsTable = "scenario_runs"

var runColumns = []string{
	"run_id",
	"scenario",
	"topology",
	"resource",
	"path",
	"instance_id",
	"phase",
	"passed",
	"status_code",
	"error",
	"teardown_error",
	"duration_ms",
	"started_at",
}

// ListOption narrows or orders a history query.
type ListOption func(sq.SelectBuilder) sq.SelectBuilder

// ByFilter keeps the records matching a parsed filter expression.
func ByFilter(expr filter.Expression) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if expr == nil {
			return b
		}
		return b.Where(expr.Sql())
	}
}

func ByRun(runID string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"run_id": runID})
	}
}

func ByScenario(names ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(names) == 0 {
			return b
		}
		return b.Where(sq.Eq{"scenario": names})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if limit == 0 {
			return b
		}
		return b.Limit(limit)
	}
}

// LatestFirst orders records from the most recent run.
func LatestFirst() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy("started_at DESC", "scenario ASC")
	}
}

// RunStore records scenario outcomes.
type RunStore struct {
	db QueryInterceptor
}

func NewRunStore(db QueryInterceptor) *RunStore {
	return &RunStore{db: db}
}

// Save inserts records in a single statement. Saving a scenario twice for
// the same run replaces it.
func (s *RunStore) Save(ctx context.Context, records ...models.RunRecord) error {
	if len(records) == 0 {
		return nil
	}

	builder := sq.Insert(runsTable).Columns(runColumns...)
	for _, r := range records {
		builder = builder.Values(
			r.RunID,
			r.Scenario,
			r.Topology.String(),
			r.Resource,
			r.Path,
			r.InstanceID,
			r.Phase.String(),
			r.Passed,
			r.StatusCode,
			r.Error,
			r.TeardownError,
			r.Duration.Milliseconds(),
			r.StartedAt.UTC(),
		)
	}

	query, args, err := builder.Suffix("ON CONFLICT (run_id, scenario) DO UPDATE SET " +
		"instance_id = EXCLUDED.instance_id, phase = EXCLUDED.phase, passed = EXCLUDED.passed, " +
		"status_code = EXCLUDED.status_code, error = EXCLUDED.error, teardown_error = EXCLUDED.teardown_error, " +
		"duration_ms = EXCLUDED.duration_ms, started_at = EXCLUDED.started_at").
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// List returns the records matching opts.
func (s *RunStore) List(ctx context.Context, opts ...ListOption) ([]models.RunRecord, error) {
	builder := sq.Select(runColumns...).From(runsTable)
	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var (
			r          models.RunRecord
			topology   string
			phase      string
			durationMs int64
		)
		err := rows.Scan(
			&r.RunID,
			&r.Scenario,
			&topology,
			&r.Resource,
			&r.Path,
			&r.InstanceID,
			&phase,
			&r.Passed,
			&r.StatusCode,
			&r.Error,
			&r.TeardownError,
			&durationMs,
			&r.StartedAt,
		)
		if err != nil {
			return nil, err
		}
		r.Topology = models.Descriptor(topology)
		r.Phase = models.Phase(phase)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, r)
	}

	return records, rows.Err()
}

// Count returns the number of records matching the filters of opts.
func (s *RunStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	builder := sq.Select("COUNT(*)").From(runsTable)
	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
