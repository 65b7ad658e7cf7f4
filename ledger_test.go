package schema_test

import (
	"context"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/egtann/schema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) (*schema.Ledger, schema.Driver) {
	t.Helper()
	drv := newDriver(t)
	l := schema.NewLedger(drv)
	boot := drv.Bootstrap()
	require.NoError(t, boot.Up(context.Background(), drv))
	return l, drv
}

func TestLedgerMissing(t *testing.T) {
	drv := newDriver(t)
	l := schema.NewLedger(drv)
	ctx := context.Background()

	ok, err := l.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.MaxBatch(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Records(ctx)
	assert.True(t, errors.Is(err, schema.ErrLedgerMissing))
}

func TestLedgerRecordAndRemove(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	ok, err := l.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = l.MaxBatch(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.RecordApplied(ctx, "1_a", 1))
	require.NoError(t, l.RecordApplied(ctx, "2_b", 1))
	require.NoError(t, l.RecordApplied(ctx, "3_c", 2))

	err = l.RecordApplied(ctx, "1_a", 3)
	assert.True(t, errors.Is(err, schema.ErrDuplicateApplied))

	batch, ok, err := l.MaxBatch(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, batch)

	recs, err := l.Batch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2_b", recs[0].Name)
	assert.Equal(t, "1_a", recs[1].Name)

	require.NoError(t, l.RemoveByName(ctx, "2_b"))
	require.NoError(t, l.RemoveByName(ctx, "nope"))

	applied, err := l.ListApplied(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1_a": true, "3_c": true}, applied)

	all, err := l.Records(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1_a", all[0].Name)
	assert.Equal(t, 2, all[1].Batch)
}

func TestLedgerConnectionError(t *testing.T) {
	drv := newDriver(t)
	l := schema.NewLedger(drv)
	require.NoError(t, drv.Close())

	_, err := l.Exists(context.Background())
	var connErr *schema.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "check migrations table", connErr.Op)
}

func TestInsertSQL(t *testing.T) {
	q, args, err := schema.InsertSQL(sq.Dollar, "users", schema.Row{
		{Column: "name", Value: "a"},
		{Column: "age", Value: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name,age) VALUES ($1,$2)", q)
	assert.Equal(t, []interface{}{"a", 3}, args)

	_, _, err = schema.InsertSQL(sq.Question, "users", nil)
	require.Error(t, err)
}
