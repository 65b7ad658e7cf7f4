package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/egtann/schema"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DefaultPort = 5432

	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
)

type DB struct {
	connURL    string
	driverName string
	collation  string

	// Embed the sqlx DB struct
	*sqlx.DB
}

var _ schema.Driver = (*DB)(nil)

// New prepares a PostgreSQL driver. Set SQLDriver to "pgx" to connect with
// pgx instead of lib/pq.
func New(conf schema.Config) *DB {
	port := conf.Port
	if port == 0 {
		port = DefaultPort
	}

	// The trailing space is important
	url := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s ",
		conf.Host, port, conf.Username, conf.Password, conf.Database)
	if conf.SSLKey == "" {
		url += "sslmode=disable"
	} else {
		url += fmt.Sprintf(
			"sslmode=verify-full sslkey=%s sslcert=%s sslrootcert=%s",
			conf.SSLKey, conf.SSLCert, conf.SSLCA)
	}
	db := &DB{
		connURL:    url,
		driverName: "postgres",
		collation:  conf.Collation,
	}
	if conf.SQLDriver != "" {
		db.driverName = conf.SQLDriver
	}
	return db
}

func (db *DB) Open() error {
	var err error
	db.DB, err = sqlx.Open(db.driverName, db.connURL)
	if err != nil {
		return errors.Wrap(err, "open db connection")
	}

	// session_replication_role is per session
	db.DB.SetMaxOpenConns(1)
	return nil
}

func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func (db *DB) Dialect() string { return schema.DriverPostgres }

func (db *DB) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (db *DB) Bootstrap() schema.Migration {
	return schema.LedgerMigration(schema.DriverPostgres)
}

func (db *DB) Create(ctx context.Context, table string, fn schema.BuildFunc) error {
	b := NewBuilder(db.collation)
	fn(b)
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table),
		b.SQL())
	if _, err := db.DB.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "create %s", table)
	}
	return db.comment(ctx, table, b)
}

func (db *DB) Alter(ctx context.Context, table string, fn schema.BuildFunc) error {
	b := NewBuilder(db.collation)
	fn(b)
	if len(b.Definition().Fragments()) > 0 {
		q := "ALTER TABLE " + quote(table) + " " + b.SQL()
		if _, err := db.DB.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "alter %s", table)
		}
	}
	return db.comment(ctx, table, b)
}

func (db *DB) comment(ctx context.Context, table string, b *Builder) error {
	for _, q := range b.CommentSQL(table) {
		if _, err := db.DB.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "comment on %s", table)
		}
	}
	return nil
}

func (db *DB) Drop(ctx context.Context, table string) error {
	_, err := db.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table))
	return errors.Wrapf(err, "drop %s", table)
}

func (db *DB) Truncate(ctx context.Context, table string) error {
	_, err := db.DB.ExecContext(ctx, "TRUNCATE TABLE "+quote(table))
	return errors.Wrapf(err, "truncate %s", table)
}

func (db *DB) DropForeignKey(ctx context.Context, table, constraint string) error {
	q := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s",
		quote(table), quote(constraint))
	_, err := db.DB.ExecContext(ctx, q)
	return errors.Wrapf(err, "drop foreign key %s", constraint)
}

func (db *DB) Insert(ctx context.Context, table string, row schema.Row) error {
	q, args, err := schema.InsertSQL(sq.Dollar, table, row)
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
	q := `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`
	if err := db.DB.GetContext(ctx, &n, q, table); err != nil {
		return false, errors.Wrap(err, "count tables")
	}
	return n > 0, nil
}

// SetForeignKeyChecks toggles trigger-based constraint enforcement, which
// requires superuser or replication privileges.
func (db *DB) SetForeignKeyChecks(ctx context.Context, enabled bool) error {
	q := `SET session_replication_role = 'replica'`
	if enabled {
		q = `SET session_replication_role = 'origin'`
	}
	_, err := db.DB.ExecContext(ctx, q)
	return err
}

func (db *DB) IsDuplicate(err error) bool {
	return errCode(err) == codeUniqueViolation
}

func (db *DB) IsMissingTable(err error) bool {
	return errCode(err) == codeUndefinedTable
}

// errCode extracts the SQLSTATE from either supported driver.
func errCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func quote(name string) string {
	return `"` + strings.Replace(name, `"`, `""`, -1) + `"`
}
