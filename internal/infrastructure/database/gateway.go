package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrColumnType is returned by Row accessors when a column holds a
	// value of an unexpected type.
	ErrColumnType = errors.New("database: unexpected column type")

	// ErrUniqueViolation wraps driver errors for UNIQUE and PRIMARY KEY
	// constraint failures so callers can map them to domain conflicts.
	ErrUniqueViolation = errors.New("database: unique constraint violated")
)

// Params are bound as named parameters. A query refers to them as @name;
// values are never spliced into the SQL text.
type Params map[string]any

// Row is one result record keyed by column name.
type Row map[string]any

// Result is what Execute returns for every statement.
type Result struct {
	Rows         []Row
	RowsAffected int64
	LastInsertID int64
}

// Executor runs a parameterised statement against the store. It is the
// only storage contract the domain packages depend on.
type Executor interface {
	Execute(ctx context.Context, query string, params Params) (*Result, error)
}

// Execute runs query with params bound by name. Statements that produce
// rows (SELECT, WITH, PRAGMA or anything with RETURNING) have every row
// read into the Result before the connection is released.
//
// Parameters:
//   - ctx: Context for cancellation
//   - query: SQL text referring to parameters as @name
//   - params: Values bound by name; never spliced into the text
//
// Returns:
//   - *Result: Rows for row-producing statements, otherwise rows affected
//     and the last insert id
//   - error: Wraps ErrUniqueViolation for constraint conflicts
func (db *DB) Execute(ctx context.Context, query string, params Params) (*Result, error) {
	args := params.namedArgs()

	if returnsRows(query) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("executing query: %w", classify(err))
		}
		defer rows.Close()

		records, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		return &Result{Rows: records, RowsAffected: int64(len(records))}, nil
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", classify(err))
	}

	out := &Result{}
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("reading rows affected: %w", err)
	}
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading last insert id: %w", err)
	}
	return out, nil
}

// classify tags constraint conflicts with ErrUniqueViolation and leaves
// every other error as it is.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		}
	}
	return err
}

// namedArgs returns sql.Named values in key order so statement binding is
// deterministic.
func (p Params) namedArgs() []any {
	if len(p) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, sql.Named(k, p[k]))
	}
	return args
}

func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "VALUES"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return strings.Contains(q, "RETURNING")
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var records []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		record := make(Row, len(cols))
		for i, col := range cols {
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return records, nil
}

// String returns col as a string. NULL becomes "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns col as an integer. NULL becomes 0.
func (r Row) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
	}
}

// Float64 returns col as a float. NULL becomes 0.
func (r Row) Float64(col string) (float64, error) {
	switch v := r[col].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
	}
}

// Bool reads an INTEGER 0/1 column. NULL is false.
func (r Row) Bool(col string) bool {
	b := r.NullBool(col)
	return b != nil && *b
}

// NullBool reads an INTEGER 0/1 column, keeping NULL as nil.
func (r Row) NullBool(col string) *bool {
	switch v := r[col].(type) {
	case bool:
		return &v
	case int64:
		b := v != 0
		return &b
	default:
		return nil
	}
}

// Bytes returns a BLOB column.
func (r Row) Bytes(col string) []byte {
	switch v := r[col].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// Time parses a timestamp column written as RFC 3339 text or by SQLite's
// CURRENT_TIMESTAMP. NULL yields the zero time.
func (r Row) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case time.Time:
		return v, nil
	case nil:
		return time.Time{}, nil
	default:
		s := r.String(col)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %s is not a timestamp (%q)", ErrColumnType, col, s)
	}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders t the way timestamp columns are stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
