package schema

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MigrationFunc is one entry point of a migration.
type MigrationFunc func(ctx context.Context, s Schema) error

// Migration is a named pair of entry points. Name must begin with a sortable
// identifier, e.g. 2024_04_21_090712_create_users_table.
type Migration struct {
	Name string
	Up   MigrationFunc
	Down MigrationFunc
}

var regexID = regexp.MustCompile(`^[0-9][0-9_]*`)

// ID extracts the numeric identifier embedded at the start of a migration
// name. Underscores in the prefix are ignored.
func ID(name string) (uint64, error) {
	prefix := strings.Replace(regexID.FindString(name), "_", "", -1)
	id, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse uint in migration %s", name)
	}
	return id, nil
}

// Registry holds the migrations known to a program. Migrations typically
// register themselves from init functions.
type Registry struct {
	migrations []Migration
}

func NewRegistry() *Registry { return &Registry{} }

// Register adds a migration.
func (r *Registry) Register(name string, up, down MigrationFunc) {
	r.Add(Migration{Name: name, Up: up, Down: down})
}

// Add adds a migration.
func (r *Registry) Add(m Migration) {
	r.migrations = append(r.migrations, m)
}

// Len reports the number of registered migrations.
func (r *Registry) Len() int { return len(r.migrations) }

// Migrations returns the registered migrations sorted ascending by their
// embedded identifier, ensuring that something like 1_a, 2_b, 10_c is
// correct.
func (r *Registry) Migrations() ([]Migration, error) {
	ms := make([]Migration, len(r.migrations))
	copy(ms, r.migrations)

	ids := make(map[string]uint64, len(ms))
	seen := make(map[uint64]string, len(ms))
	for _, m := range ms {
		if m.Up == nil {
			return nil, fmt.Errorf("migration %s has no up function", m.Name)
		}
		id, err := ID(m.Name)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[id]; ok {
			if other == m.Name {
				return nil, fmt.Errorf("duplicate migration: %s", m.Name)
			}
			return nil, fmt.Errorf("cannot have duplicate timestamp: %d (%s, %s)",
				id, other, m.Name)
		}
		seen[id] = m.Name
		ids[m.Name] = id
	}
	sort.Slice(ms, func(i, j int) bool {
		return ids[ms[i].Name] < ids[ms[j].Name]
	})
	return ms, nil
}

// DefaultRegistry is used by Register.
var DefaultRegistry = NewRegistry()

// Register adds a migration to DefaultRegistry.
func Register(name string, up, down MigrationFunc) {
	DefaultRegistry.Register(name, up, down)
}
