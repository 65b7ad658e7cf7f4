package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
default: primary
connections:
  primary:
    driver: mysql
    host: 127.0.0.1
    port: 3306
    database: app
    username: root
    password: ${SCHEMA_TEST_PASSWORD}
    collation: utf8mb4_general_ci
  reporting:
    driver: pgsql
    database: reports
    sql_driver: pgx
    ssl_ca: /etc/ssl/ca.pem
`

func TestParseConfig(t *testing.T) {
	t.Setenv("SCHEMA_TEST_PASSWORD", "hunter2")

	conf, err := ParseConfig([]byte(testConfig), "")
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, conf.Driver)
	assert.Equal(t, 3306, conf.Port)
	assert.Equal(t, "hunter2", conf.Password)
	assert.Equal(t, "utf8mb4", Charset(conf.Collation))
	assert.False(t, conf.TLS())

	conf, err = ParseConfig([]byte(testConfig), "reporting")
	require.NoError(t, err)
	assert.Equal(t, "pgx", conf.SQLDriver)
	assert.True(t, conf.TLS())
}

func TestParseConfigKeepsLiteralDollars(t *testing.T) {
	t.Setenv("SCHEMA_TEST_USER", "admin")

	conf, err := ParseConfig([]byte(`
connections:
  only:
    driver: mysql
    username: ${SCHEMA_TEST_USER}
    password: pa$$w0rd$x
    database: ${SCHEMA_TEST_UNSET_VAR}
`), "")
	require.NoError(t, err)
	assert.Equal(t, "admin", conf.Username)
	assert.Equal(t, "pa$$w0rd$x", conf.Password)
	assert.Equal(t, "${SCHEMA_TEST_UNSET_VAR}", conf.Database)
}

func TestParseConfigSingleConnection(t *testing.T) {
	conf, err := ParseConfig([]byte(`
connections:
  only:
    driver: sqlite
    database: app.db
`), "")
	require.NoError(t, err)
	assert.Equal(t, "app.db", conf.Database)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte(testConfig), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no connection named "missing"`)

	_, err = ParseConfig([]byte("connections:\n  a:\n    host: x\n"), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no driver")

	_, err = ParseConfig([]byte("connections: [\n"), "")
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	conf, err := LoadConfig(path, "reporting")
	require.NoError(t, err)
	assert.Equal(t, "reports", conf.Database)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.yml"), "")
	require.Error(t, err)
}
