package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface repositories depend on.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// ErrSQLMarker is returned for queries without a leading "--sql <uuid>" line.
var ErrSQLMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// DefaultSlowQuery is the duration above which statements log at warn.
const DefaultSlowQuery = 500 * time.Millisecond

// SQLRunner executes audited inline SQL. Every statement must begin with its
// marker line, which is stripped before execution and used as the log key.
// A *pgxpool.Pool satisfies the DB field.
type SQLRunner struct {
	DB        SQLExecutor
	Logger    zerolog.Logger
	SlowQuery time.Duration
}

func NewSQLRunner(db SQLExecutor, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{DB: db, Logger: logger, SlowQuery: DefaultSlowQuery}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, body, err := ExtractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.DB.Exec(ctx, body, args...)
	r.observe("exec", marker, start, err).Int64("rows", tag.RowsAffected()).Msg("sql exec")
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, body, err := ExtractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return &observedRow{Row: r.DB.QueryRow(ctx, body, args...), runner: r, marker: marker, start: time.Now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, body, err := ExtractMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.DB.Query(ctx, body, args...)
	if err != nil {
		r.observe("query", marker, start, err).Msg("sql query")
		return nil, err
	}
	return &observedRows{Rows: rows, runner: r, marker: marker, start: start}, nil
}

// observe picks the event level: error on failure, warn when slow, debug
// otherwise. No-rows results are not failures.
func (r *SQLRunner) observe(op, marker string, start time.Time, err error) *zerolog.Event {
	took := time.Since(start)
	var ev *zerolog.Event
	switch {
	case err != nil && !IsNoRows(err):
		ev = r.Logger.Error().Err(err)
	case r.SlowQuery > 0 && took > r.SlowQuery:
		ev = r.Logger.Warn().Bool("slow", true)
	default:
		ev = r.Logger.Debug()
	}
	return ev.Str("op", op).Str("sql", marker).Dur("took", took)
}

type observedRow struct {
	pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (o *observedRow) Scan(dest ...any) error {
	err := o.Row.Scan(dest...)
	o.runner.observe("query_row", o.marker, o.start, err).Bool("no_rows", IsNoRows(err)).Msg("sql query_row")
	return err
}

type observedRows struct {
	pgx.Rows
	runner *SQLRunner
	marker string
	start  time.Time
}

func (o *observedRows) Close() {
	o.Rows.Close()
	o.runner.observe("query", o.marker, o.start, o.Rows.Err()).Msg("sql query")
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(...any) error {
	return e.err
}

// ExtractMarker splits a query into its audit marker and executable body.
func ExtractMarker(query string) (string, string, error) {
	first, body, _ := strings.Cut(strings.TrimSpace(query), "\n")
	m := markerRegexp.FindStringSubmatch(strings.TrimSpace(first))
	if m == nil {
		return "", "", ErrSQLMarker
	}
	return m[1], body, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
