package schema

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// LedgerTable is the table recording applied migrations.
const LedgerTable = "migrations"

// Record is one applied migration.
type Record struct {
	ID    int64  `db:"id"`
	Name  string `db:"migration"`
	Batch int    `db:"batch"`
}

// Ledger reads and writes the migrations table through a Driver.
type Ledger struct {
	drv   Driver
	table string
	sb    sq.StatementBuilderType
}

func NewLedger(drv Driver) *Ledger {
	return &Ledger{
		drv:   drv,
		table: LedgerTable,
		sb:    sq.StatementBuilder.PlaceholderFormat(drv.Placeholder()),
	}
}

// Exists reports whether the migrations table has been created.
func (l *Ledger) Exists(ctx context.Context) (bool, error) {
	ok, err := l.drv.TableExists(ctx, l.table)
	if err != nil {
		return false, connErr("check migrations table", err)
	}
	return ok, nil
}

// RecordApplied inserts one row. A name that is already recorded yields
// ErrDuplicateApplied.
func (l *Ledger) RecordApplied(ctx context.Context, name string, batch int) error {
	q, args, err := l.sb.Insert(l.table).
		Columns("migration", "batch").
		Values(name, batch).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert migration")
	}
	_, err = l.drv.Exec(ctx, q, args...)
	switch {
	case err == nil:
		return nil
	case l.drv.IsDuplicate(err):
		return errors.Wrap(ErrDuplicateApplied, name)
	default:
		return connErr("insert migration "+name, err)
	}
}

// ListApplied returns the set of recorded names.
func (l *Ledger) ListApplied(ctx context.Context) (map[string]bool, error) {
	recs, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(recs))
	for _, r := range recs {
		applied[r.Name] = true
	}
	return applied, nil
}

// MaxBatch returns the highest recorded batch. ok is false when the ledger
// is empty or missing.
func (l *Ledger) MaxBatch(ctx context.Context) (batch int, ok bool, err error) {
	q, args, err := l.sb.Select("MAX(batch)").From(l.table).ToSql()
	if err != nil {
		return 0, false, errors.Wrap(err, "build max batch")
	}
	rows, err := l.drv.Query(ctx, q, args...)
	if err != nil {
		if l.drv.IsMissingTable(err) {
			return 0, false, nil
		}
		return 0, false, connErr("get max batch", err)
	}
	defer rows.Close()

	var highest sql.NullInt64
	if rows.Next() {
		if err = rows.Scan(&highest); err != nil {
			return 0, false, connErr("scan max batch", err)
		}
	}
	if err = rows.Err(); err != nil {
		return 0, false, connErr("get max batch", err)
	}
	if !highest.Valid {
		return 0, false, nil
	}
	return int(highest.Int64), true, nil
}

// RemoveByName deletes the row for name. Absent names are not an error.
func (l *Ledger) RemoveByName(ctx context.Context, name string) error {
	q, args, err := l.sb.Delete(l.table).
		Where(sq.Eq{"migration": name}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build delete migration")
	}
	if _, err = l.drv.Exec(ctx, q, args...); err != nil {
		return connErr("delete migration "+name, err)
	}
	return nil
}

// Records returns every row in the order applied.
func (l *Ledger) Records(ctx context.Context) ([]Record, error) {
	b := l.sb.Select("id", "migration", "batch").
		From(l.table).
		OrderBy("id ASC")
	return l.read(ctx, "get migrations", b)
}

// Batch returns the rows of one batch, most recently applied first.
func (l *Ledger) Batch(ctx context.Context, batch int) ([]Record, error) {
	b := l.sb.Select("id", "migration", "batch").
		From(l.table).
		Where(sq.Eq{"batch": batch}).
		OrderBy("id DESC")
	return l.read(ctx, "get batch", b)
}

func (l *Ledger) read(ctx context.Context, op string, b sq.SelectBuilder) ([]Record, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build "+op)
	}
	rows, err := l.drv.Query(ctx, q, args...)
	if err != nil {
		if l.drv.IsMissingTable(err) {
			return nil, errors.Wrap(ErrLedgerMissing, op)
		}
		return nil, connErr(op, err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		var r Record
		if err = rows.StructScan(&r); err != nil {
			return nil, connErr("scan "+op, err)
		}
		recs = append(recs, r)
	}
	if err = rows.Err(); err != nil {
		return nil, connErr(op, err)
	}
	return recs, nil
}

// LedgerMigration is the bootstrap migration that creates the ledger table
// for a dialect. The runner executes it before any registered migration and
// never records it.
func LedgerMigration(dialect string) Migration {
	return Migration{
		Name: "2024_04_21_090712_create_migrations_table_" + dialect,
		Up: func(ctx context.Context, s Schema) error {
			return s.Create(ctx, LedgerTable, func(t TableBuilder) {
				t.Increments("id")
				t.String("migration", 255).Required().Unique()
				t.Integer("batch").Required()
			})
		},
		Down: func(ctx context.Context, s Schema) error {
			return s.Drop(ctx, LedgerTable)
		},
	}
}
