package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/egtann/schema"
	"github.com/egtann/schema/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	for i, table := range []string{"users", "posts"} {
		table := table
		reg.Register(fmt.Sprintf("2024_01_0%d_000000_create_%s_table", i+1, table),
			func(ctx context.Context, s schema.Schema) error {
				return s.Create(ctx, table, func(t schema.TableBuilder) {
					t.Increments("id")
					t.String("name", 50).Nullable()
				})
			},
			func(ctx context.Context, s schema.Schema) error {
				return s.Drop(ctx, table)
			})
	}
	return reg
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	conf := fmt.Sprintf(`
default: local
connections:
  local:
    driver: sqlite
    database: %s
    sql_driver: sqlite
`, filepath.Join(dir, "app.db"))
	path := filepath.Join(dir, "connection.yml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o600))
	return path
}

type harness struct {
	config string
	reg    *schema.Registry
	asked  []string
	logs   string
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{
		reg:    h.reg,
		stdout: &stdout,
		stderr: &stderr,
		open:   connect.Open,
		readPassword: func(prompt string) (string, error) {
			h.asked = append(h.asked, prompt)
			return "secret", nil
		},
	}
	err := a.run(append([]string{"--config", h.config}, args...))
	h.logs = stderr.String()
	return stdout.String(), err
}

func TestLifecycle(t *testing.T) {
	h := &harness{config: writeConfig(t), reg: testRegistry()}

	out, err := h.run(t, "migrate", "--dry")
	require.NoError(t, err)
	assert.Contains(t, out, "Would migrate: 2024_01_01_000000_create_users_table")
	assert.Contains(t, out, "Would migrate: 2024_01_02_000000_create_posts_table")

	out, err = h.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated: 2024_01_01_000000_create_users_table")
	assert.Contains(t, out, "Migrated: 2024_01_02_000000_create_posts_table")

	out, err = h.run(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to migrate\n", out)

	out, err = h.run(t, "migrate:status")
	require.NoError(t, err)
	assert.Contains(t, out, "Ran?")
	assert.Equal(t, 2, strings.Count(out, "Yes"))

	out, err = h.run(t, "migrate:fresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Rolled back: 2024_01_02_000000_create_posts_table")
	assert.Contains(t, out, "Migrated: 2024_01_01_000000_create_users_table")

	out, err = h.run(t, "migrate:rollback")
	require.NoError(t, err)
	assert.Contains(t, out, "Rolled back: 2024_01_01_000000_create_users_table")

	out, err = h.run(t, "migrate:rollback")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to rollback\n", out)
}

func TestSkip(t *testing.T) {
	h := &harness{config: writeConfig(t), reg: testRegistry()}

	out, err := h.run(t, "migrate", "--skip", "2024_01_01_000000_create_users_table")
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped: 2024_01_01_000000_create_users_table")
	assert.Contains(t, out, "Migrated: 2024_01_02_000000_create_posts_table")

	_, err = h.run(t, "migrate", "--dry", "--skip", "x")
	require.Error(t, err)

	_, err = h.run(t, "migrate", "--skip", "2099_01_01_000000_missing")
	require.Error(t, err)
}

func TestAskPass(t *testing.T) {
	h := &harness{config: writeConfig(t), reg: testRegistry()}

	_, err := h.run(t, "--ask-pass", "migrate:status")
	require.NoError(t, err)
	require.Len(t, h.asked, 1)
	assert.Contains(t, h.asked[0], "database password")
}

func TestErrors(t *testing.T) {
	h := &harness{config: writeConfig(t), reg: testRegistry()}

	_, err := h.run(t, "--connection", "nope", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no connection named "nope"`)

	_, err = h.run(t)
	require.Error(t, err)

	out, err := h.run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "migrate:rollback")
}

func TestScriptFailureIsReported(t *testing.T) {
	reg := testRegistry()
	reg.Register("2024_01_03_000000_broken",
		func(ctx context.Context, s schema.Schema) error {
			_, err := s.Exec(ctx, `NOT SQL`)
			return err
		}, nil)
	h := &harness{config: writeConfig(t), reg: reg}

	_, err := h.run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024_01_03_000000_broken")
}

func runIDs(t *testing.T, logs string) []string {
	t.Helper()
	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(logs), "\n") {
		var entry struct {
			RunID string `json:"run_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		ids = append(ids, entry.RunID)
	}
	return ids
}

func TestLogLinesCarryRunID(t *testing.T) {
	h := &harness{config: writeConfig(t), reg: testRegistry()}

	_, err := h.run(t, "--json", "migrate")
	require.NoError(t, err)
	migrated := runIDs(t, h.logs)
	require.NotEmpty(t, migrated)
	require.NotEmpty(t, migrated[0])
	for _, id := range migrated {
		assert.Equal(t, migrated[0], id)
	}

	_, err = h.run(t, "--json", "rollback")
	require.NoError(t, err)
	rolled := runIDs(t, h.logs)
	require.NotEmpty(t, rolled)
	for _, id := range rolled {
		assert.NotEmpty(t, id)
		assert.NotEqual(t, migrated[0], id)
	}
}
