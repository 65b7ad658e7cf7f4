package schema

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Supported dialect names. Postgres is accepted as an alias of PostgreSQL.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgsql"
	DriverSQLite   = "sqlite"
)

// Config identifies one database connection.
type Config struct {
	Driver    string `yaml:"driver"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Collation string `yaml:"collation"`

	// SQLDriver overrides the database/sql driver name a dialect opens,
	// e.g. "pgx" for PostgreSQL or "sqlite" for the pure Go SQLite driver.
	SQLDriver string `yaml:"sql_driver"`

	SSLKey        string `yaml:"ssl_key"`
	SSLCert       string `yaml:"ssl_cert"`
	SSLCA         string `yaml:"ssl_ca"`
	SSLServerName string `yaml:"ssl_server_name"`
}

// TLS reports whether any TLS option is set.
func (c Config) TLS() bool {
	return c.SSLKey != "" || c.SSLCert != "" || c.SSLCA != "" ||
		c.SSLServerName != ""
}

// Charset derives the character set from the collation, e.g. utf8mb4 from
// utf8mb4_unicode_ci.
func Charset(collation string) string {
	return strings.SplitN(collation, "_", 2)[0]
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(byt []byte) []byte {
	return envRef.ReplaceAllFunc(byt, func(ref []byte) []byte {
		val, ok := os.LookupEnv(string(ref[2 : len(ref)-1]))
		if !ok {
			return ref
		}
		return []byte(val)
	})
}

type configFile struct {
	Default     string            `yaml:"default"`
	Connections map[string]Config `yaml:"connections"`
}

// LoadConfig reads the named connection from a YAML config file. An empty
// name selects the file's default connection. ${VAR} references to set
// environment variables are expanded before parsing. Any other $ is kept as
// written.
func LoadConfig(path, name string) (Config, error) {
	byt, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return ParseConfig(byt, name)
}

// ParseConfig is LoadConfig for an in-memory file.
func ParseConfig(byt []byte, name string) (Config, error) {
	var f configFile
	if err := yaml.Unmarshal(expandEnv(byt), &f); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if name == "" {
		name = f.Default
	}
	if name == "" && len(f.Connections) == 1 {
		for k := range f.Connections {
			name = k
		}
	}
	conf, ok := f.Connections[name]
	if !ok {
		return Config{}, errors.Errorf("no connection named %q", name)
	}
	if conf.Driver == "" {
		return Config{}, errors.Errorf("connection %q has no driver", name)
	}
	return conf, nil
}
