package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/egtann/schema"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type DB struct {
	filepath   string
	driverName string
	collation  string

	// Embed the sqlx DB struct
	*sqlx.DB
}

var _ schema.Driver = (*DB)(nil)

// New prepares a SQLite driver for the database file named by
// conf.Database. The driver is go-sqlite3 when built with cgo and the pure
// Go modernc driver otherwise; set SQLDriver to choose explicitly.
func New(conf schema.Config) *DB {
	db := &DB{
		filepath:   conf.Database,
		driverName: defaultDriverName,
		collation:  conf.Collation,
	}
	if conf.SQLDriver != "" {
		db.driverName = conf.SQLDriver
	}
	return db
}

func (db *DB) Open() error {
	var err error
	db.DB, err = sqlx.Open(db.driverName, db.filepath)
	if err != nil {
		return errors.Wrap(err, "open db connection")
	}

	// PRAGMA foreign_keys is per connection, and each connection to
	// :memory: is a separate database
	db.DB.SetMaxOpenConns(1)

	if _, err = db.DB.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return errors.Wrap(err, "enable foreign keys")
	}
	return nil
}

func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func (db *DB) Dialect() string { return schema.DriverSQLite }

func (db *DB) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (db *DB) Bootstrap() schema.Migration {
	return schema.LedgerMigration(schema.DriverSQLite)
}

func (db *DB) Create(ctx context.Context, table string, fn schema.BuildFunc) error {
	b := NewBuilder(db.collation)
	fn(b)
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table),
		b.SQL())
	_, err := db.DB.ExecContext(ctx, q)
	return errors.Wrapf(err, "create %s", table)
}

func (db *DB) Alter(ctx context.Context, table string, fn schema.BuildFunc) error {
	b := NewBuilder(db.collation)
	fn(b)
	if b.unsupported != "" {
		return errors.Wrap(schema.ErrUnsupported, b.unsupported)
	}
	for _, q := range b.AlterSQL(table) {
		if _, err := db.DB.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "alter %s", table)
		}
	}
	return nil
}

func (db *DB) Drop(ctx context.Context, table string) error {
	_, err := db.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table))
	return errors.Wrapf(err, "drop %s", table)
}

func (db *DB) Truncate(ctx context.Context, table string) error {
	_, err := db.DB.ExecContext(ctx, "DELETE FROM "+quote(table))
	return errors.Wrapf(err, "truncate %s", table)
}

func (db *DB) DropForeignKey(ctx context.Context, table, constraint string) error {
	return errors.Wrap(schema.ErrUnsupported, "drop foreign key")
}

func (db *DB) Insert(ctx context.Context, table string, row schema.Row) error {
	q, args, err := schema.InsertSQL(sq.Question, table, row)
	if err != nil {
		return err
	}
	_, err = db.DB.ExecContext(ctx, q, args...)
	return errors.Wrapf(err, "insert into %s", table)
}

func (db *DB) Query(ctx context.Context, q string, args ...interface{}) (*sqlx.Rows, error) {
	return db.DB.QueryxContext(ctx, q, args...)
}

func (db *DB) Exec(ctx context.Context, q string, args ...interface{}) (sql.Result, error) {
	return db.DB.ExecContext(ctx, q, args...)
}

func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	q := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if err := db.DB.GetContext(ctx, &n, q, table); err != nil {
		return false, errors.Wrap(err, "count tables")
	}
	return n > 0, nil
}

func (db *DB) SetForeignKeyChecks(ctx context.Context, enabled bool) error {
	q := `PRAGMA foreign_keys = OFF`
	if enabled {
		q = `PRAGMA foreign_keys = ON`
	}
	_, err := db.DB.ExecContext(ctx, q)
	return err
}

func (db *DB) IsDuplicate(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return isCgoDuplicate(err)
}

func (db *DB) IsMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func quote(name string) string {
	return `"` + strings.Replace(name, `"`, `""`, -1) + `"`
}
