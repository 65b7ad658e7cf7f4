package schema

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Schema is what migration scripts receive. It performs DDL and ad hoc
// statements against the active connection.
type Schema interface {
	Create(ctx context.Context, table string, fn BuildFunc) error
	Alter(ctx context.Context, table string, fn BuildFunc) error
	Drop(ctx context.Context, table string) error
	Truncate(ctx context.Context, table string) error
	DropForeignKey(ctx context.Context, table, constraint string) error
	Insert(ctx context.Context, table string, row Row) error
	Query(ctx context.Context, q string, args ...interface{}) (*sqlx.Rows, error)
	Exec(ctx context.Context, q string, args ...interface{}) (sql.Result, error)
}

// Driver is a Schema bound to one dialect, with the hooks the ledger and
// runner need.
type Driver interface {
	Schema

	// Dialect is the configured driver name, e.g. "mysql".
	Dialect() string
	Placeholder() sq.PlaceholderFormat

	TableExists(ctx context.Context, table string) (bool, error)

	// SetForeignKeyChecks toggles referential-integrity enforcement for
	// the current session.
	SetForeignKeyChecks(ctx context.Context, enabled bool) error

	IsDuplicate(err error) bool
	IsMissingTable(err error) bool

	// Bootstrap creates the ledger table. It runs before any registered
	// migration and is never itself recorded.
	Bootstrap() Migration

	Close() error
}

// Field is one column and value of a Row.
type Field struct {
	Column string
	Value  interface{}
}

// Row is an ordered column to value mapping.
type Row []Field

// Columns returns the column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Column
	}
	return cols
}

// Values returns the values in column order.
func (r Row) Values() []interface{} {
	vals := make([]interface{}, len(r))
	for i, f := range r {
		vals[i] = f.Value
	}
	return vals
}

// InsertSQL builds a parameterized INSERT for row. Values are always bound,
// never interpolated.
func InsertSQL(format sq.PlaceholderFormat, table string, row Row) (string, []interface{}, error) {
	if len(row) == 0 {
		return "", nil, errors.New("insert: empty row")
	}
	q, args, err := sq.Insert(table).
		Columns(row.Columns()...).
		Values(row.Values()...).
		PlaceholderFormat(format).
		ToSql()
	if err != nil {
		return "", nil, errors.Wrap(err, "build insert")
	}
	return q, args, nil
}
