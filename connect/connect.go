// Package connect opens the dialect driver a connection config names.
package connect

import (
	"strings"

	"github.com/egtann/schema"
	"github.com/egtann/schema/mysql"
	"github.com/egtann/schema/postgres"
	"github.com/egtann/schema/sqlite"
	"github.com/pkg/errors"
)

type opener interface {
	schema.Driver
	Open() error
}

// Open returns an open driver for conf.Driver. Unknown names yield
// schema.ErrUnsupportedDriver.
func Open(conf schema.Config) (schema.Driver, error) {
	var db opener
	switch strings.ToLower(conf.Driver) {
	case schema.DriverMySQL:
		my, err := mysql.New(conf)
		if err != nil {
			return nil, errors.Wrap(err, "new mysql")
		}
		db = my
	case schema.DriverPostgres, "postgres":
		db = postgres.New(conf)
	case schema.DriverSQLite:
		db = sqlite.New(conf)
	default:
		return nil, errors.Wrap(schema.ErrUnsupportedDriver, conf.Driver)
	}
	if err := db.Open(); err != nil {
		return nil, errors.Wrap(err, "open")
	}
	return db, nil
}
