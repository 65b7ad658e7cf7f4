package connect

import (
	"context"
	"testing"

	"github.com/egtann/schema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(schema.Config{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnsupportedDriver))
	assert.Contains(t, err.Error(), "oracle")
}

func TestOpenSQLite(t *testing.T) {
	drv, err := Open(schema.Config{
		Driver:    "SQLite",
		Database:  ":memory:",
		SQLDriver: "sqlite",
	})
	require.NoError(t, err)
	defer drv.Close()

	assert.Equal(t, schema.DriverSQLite, drv.Dialect())
	ok, err := drv.TableExists(context.Background(), schema.LedgerTable)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenDialects(t *testing.T) {
	// sql.Open does not dial, so these succeed without a server
	for _, name := range []string{"mysql", "pgsql", "postgres"} {
		drv, err := Open(schema.Config{Driver: name, Host: "127.0.0.1"})
		require.NoError(t, err, name)
		assert.NotEmpty(t, drv.Dialect())
		require.NoError(t, drv.Close())
	}
}
