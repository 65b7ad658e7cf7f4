package mysql

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/egtann/schema"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	DefaultCollation = "utf8mb4_unicode_ci"
	DefaultEngine    = "InnoDB"
	DefaultPort      = 3306

	errDuplicateEntry = 1062
	errNoSuchTable    = 1146
)

type DB struct {
	conf       schema.Config
	driverName string
	collation  string
	engine     string
	tlsConfig  *tlsConfig

	// Embed the sqlx DB struct
	*sqlx.DB
}

var _ schema.Driver = (*DB)(nil)

// New prepares a MySQL-family driver. Call Open before use.
func New(conf schema.Config) (*DB, error) {
	db := &DB{
		conf:       conf,
		driverName: "mysql",
		collation:  DefaultCollation,
		engine:     DefaultEngine,
	}
	if conf.SQLDriver != "" {
		db.driverName = conf.SQLDriver
	}
	if conf.Collation != "" {
		db.collation = conf.Collation
	}
	if conf.TLS() {
		var err error
		db.tlsConfig, err = newTLSConfig(conf.Database, conf.SSLKey,
			conf.SSLCert, conf.SSLCA, conf.SSLServerName)
		if err != nil {
			return nil, errors.Wrap(err, "new tls config")
		}
	}
	return db, nil
}

// DSN returns the data source name New's config resolves to.
func (db *DB) DSN() string {
	port := db.conf.Port
	if port == 0 {
		port = DefaultPort
	}
	c := mysql.NewConfig()
	c.User = db.conf.Username
	c.Passwd = db.conf.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(db.conf.Host, strconv.Itoa(port))
	c.DBName = db.conf.Database
	c.ParseTime = true
	if db.tlsConfig != nil {
		c.TLSConfig = db.tlsConfig.Name
	}
	return c.FormatDSN()
}

func (db *DB) Open() error {
	if db.tlsConfig != nil {
		err := mysql.RegisterTLSConfig(db.tlsConfig.Name,
			db.tlsConfig.Config)
		if err != nil {
			return errors.Wrap(err, "register tls config")
		}
	}
	var err error
	db.DB, err = sqlx.Open(db.driverName, db.DSN())
	if err != nil {
		return errors.Wrap(err, "open db connection")
	}

	// FOREIGN_KEY_CHECKS is per session, so every statement must share one
	db.DB.SetMaxOpenConns(1)
	return nil
}

func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func (db *DB) Dialect() string { return schema.DriverMySQL }

func (db *DB) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (db *DB) Bootstrap() schema.Migration {
	return schema.LedgerMigration(schema.DriverMySQL)
}

func (db *DB) Create(ctx context.Context, table string, fn schema.BuildFunc) error {
	b := NewBuilder(db.collation)
	fn(b)
	_, err := db.DB.ExecContext(ctx, db.CreateSQL(table, b))
	return errors.Wrapf(err, "create %s", table)
}

// CreateSQL wraps the builder's clause list in a CREATE TABLE statement
// with the engine, charset and collation trailer.
func (db *DB) CreateSQL(table string, b *Builder) string {
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE=%s CHARSET=%s COLLATE %s",
		quote(table), b.SQL(), db.engine, schema.Charset(db.collation),
		db.collation)
	if b.tableComment != "" {
		q += " COMMENT=" + schema.Literal(b.tableComment)
	}
	return q
}

func (db *DB) Alter(ctx context.Context, table string, fn schema.BuildFunc) error {
	b := NewBuilder(db.collation)
	fn(b)
	_, err := db.DB.ExecContext(ctx, AlterSQL(table, b))
	return errors.Wrapf(err, "alter %s", table)
}

// AlterSQL wraps the builder's clause list in an ALTER TABLE statement.
func AlterSQL(table string, b *Builder) string {
	return "ALTER TABLE " + quote(table) + " " + b.SQL()
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
	q := fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", quote(table),
		quote(constraint))
	_, err := db.DB.ExecContext(ctx, q)
	return errors.Wrapf(err, "drop foreign key %s", constraint)
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
	q := `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`
	if err := db.DB.GetContext(ctx, &n, q, table); err != nil {
		return false, errors.Wrap(err, "count tables")
	}
	return n > 0, nil
}

func (db *DB) SetForeignKeyChecks(ctx context.Context, enabled bool) error {
	q := `SET FOREIGN_KEY_CHECKS = 0`
	if enabled {
		q = `SET FOREIGN_KEY_CHECKS = 1`
	}
	_, err := db.DB.ExecContext(ctx, q)
	return err
}

func (db *DB) IsDuplicate(err error) bool {
	return errNumber(err) == errDuplicateEntry
}

func (db *DB) IsMissingTable(err error) bool {
	return errNumber(err) == errNoSuchTable
}

func errNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

func quote(name string) string {
	return "`" + strings.Replace(name, "`", "``", -1) + "`"
}

type tlsConfig struct {
	Name   string
	Config *tls.Config
}

func newTLSConfig(
	dbName, keyPath, certPath, caPath, serverName string,
) (*tlsConfig, error) {
	conf := &tlsConfig{
		Name:   dbName,
		Config: &tls.Config{ServerName: serverName},
	}
	if serverName != "" {
		conf.Name = serverName
	}
	if caPath != "" {
		rootCertPool := x509.NewCertPool()
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, errors.Wrap(err, "read sql server cert file")
		}
		if ok := rootCertPool.AppendCertsFromPEM(pem); !ok {
			return nil, errors.New("failed to append to pem")
		}
		conf.Config.RootCAs = rootCertPool
	}
	if certPath != "" || keyPath != "" {
		certs, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, errors.Wrap(err, "load x509 key pair")
		}
		conf.Config.Certificates = []tls.Certificate{certs}
	}
	return conf, nil
}
