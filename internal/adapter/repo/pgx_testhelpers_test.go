package repo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tryon/internal/infra"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// valuesRow scans a fixed tuple into pointer destinations by reflection.
func valuesRow(values ...any) simpleRow {
	return simpleRow{scan: func(dest ...any) error {
		if len(dest) != len(values) {
			return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
		}
		for i, v := range values {
			target := reflect.ValueOf(dest[i])
			if target.Kind() != reflect.Pointer {
				return fmt.Errorf("scan: destination %d is not a pointer", i)
			}
			val := reflect.ValueOf(v)
			if !val.Type().AssignableTo(target.Elem().Type()) {
				return fmt.Errorf("scan: cannot assign %T to %s", v, target.Elem().Type())
			}
			target.Elem().Set(val)
		}
		return nil
	}}
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

type sliceRows struct {
	testRowsBase
	rows   []simpleRow
	idx    int
	closed bool
}

func (r *sliceRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	return r.rows[r.idx-1].Scan(dest...)
}

func (r *sliceRows) Err() error { return nil }

func (r *sliceRows) Close() { r.closed = true }

type recordedQuery struct {
	query string
	args  []any
}

// stubSQL records every statement and answers from canned rows.
type stubSQL struct {
	queries  []recordedQuery
	row      simpleRow
	rows     []simpleRow
	affected int64
	err      error
}

func (s *stubSQL) record(query string, args []any) error {
	if _, _, err := infra.ExtractMarker(query); err != nil {
		return err
	}
	s.queries = append(s.queries, recordedQuery{query: query, args: args})
	return s.err
}

func (s *stubSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if err := s.record(query, args); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", s.affected)), nil
}

func (s *stubSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if err := s.record(query, args); err != nil {
		return simpleRow{scan: func(...any) error { return err }}
	}
	return s.row
}

func (s *stubSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if err := s.record(query, args); err != nil {
		return nil, err
	}
	return &sliceRows{rows: s.rows}, nil
}

var _ infra.SQLExecutor = (*stubSQL)(nil)
