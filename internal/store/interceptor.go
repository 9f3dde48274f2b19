package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const slowStatement = 500 * time.Millisecond

// QueryInterceptor is the subset of *sql.DB the repositories use.
type QueryInterceptor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// timedDB logs every statement with its duration. Statements slower than
// slowStatement, or failing, are logged as warnings.
type timedDB struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

func newTimedDB(db *sql.DB) *timedDB {
	return &timedDB{db: db, logger: zap.S().Named("store")}
}

func (t *timedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer t.observe("query_row", query, args, time.Now(), nil)
	return t.db.QueryRowContext(ctx, query, args...)
}

func (t *timedDB) QueryContext(ctx context.Context, query string, args ...any) (rows *sql.Rows, err error) {
	defer func(start time.Time) { t.observe("query", query, args, start, err) }(time.Now())
	return t.db.QueryContext(ctx, query, args...)
}

func (t *timedDB) ExecContext(ctx context.Context, query string, args ...any) (res sql.Result, err error) {
	defer func(start time.Time) { t.observe("exec", query, args, start, err) }(time.Now())
	return t.db.ExecContext(ctx, query, args...)
}

func (t *timedDB) observe(kind, query string, args []any, start time.Time, err error) {
	elapsed := time.Since(start)
	switch {
	case err != nil:
		t.logger.Warnw("statement failed", "kind", kind, "query", query, "args", args, "elapsed", elapsed, "error", err)
	case elapsed > slowStatement:
		t.logger.Warnw("slow statement", "kind", kind, "query", query, "elapsed", elapsed)
	default:
		t.logger.Debugw(kind, "query", query, "args", args, "elapsed", elapsed)
	}
}
