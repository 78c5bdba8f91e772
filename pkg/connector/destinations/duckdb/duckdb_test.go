package duckdb_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/connector/destinations/duckdb"
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
)

var schema = &core.Schema{Name: "people", Fields: []core.Field{
	{Name: "id", Type: core.FieldTypeInt, Nullable: true},
	{Name: "name", Type: core.FieldTypeVarchar, Nullable: true},
}}

func openDuckDB(t *testing.T) *duckdb.Destination {
	t.Helper()
	ctx := context.Background()
	dest, err := registry.OpenDestination(ctx, filepath.Join(t.TempDir(), "out.duckdb"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { dest.Close(ctx) })

	d, ok := dest.(*duckdb.Destination)
	require.True(t, ok)
	require.NoError(t, d.ExecDDL(ctx, `CREATE TABLE "people" ("id" BIGINT, "name" VARCHAR)`))
	return d
}

func count(t *testing.T, d *duckdb.Destination) int {
	t.Helper()
	var n int
	require.NoError(t, d.DB().QueryRowContext(context.Background(), `SELECT COUNT(*) FROM people`).Scan(&n))
	return n
}

func TestAppendCommit(t *testing.T) {
	ctx := context.Background()
	d := openDuckDB(t)

	session, err := d.BeginAppend(ctx, "people", schema)
	require.NoError(t, err)
	n, err := session.Append(ctx, [][]interface{}{{int64(1), "A"}, {int64(2), "O'Brien"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = session.Append(ctx, [][]interface{}{{int64(3), nil}})
	require.NoError(t, err)

	n, err = session.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 3, count(t, d))

	var name string
	require.NoError(t, d.DB().QueryRowContext(ctx, `SELECT name FROM people WHERE id = 2`).Scan(&name))
	assert.Equal(t, "O'Brien", name)
}

func TestAppendAbortDiscardsRows(t *testing.T) {
	ctx := context.Background()
	d := openDuckDB(t)

	session, err := d.BeginAppend(ctx, "people", schema)
	require.NoError(t, err)
	_, err = session.Append(ctx, [][]interface{}{{int64(1), "A"}})
	require.NoError(t, err)
	_, err = session.Append(ctx, [][]interface{}{{"not a number", "B"}})
	require.Error(t, err)
	require.NoError(t, session.Abort(ctx))

	assert.Zero(t, count(t, d))
}

func TestAppendRejectsShortRows(t *testing.T) {
	ctx := context.Background()
	d := openDuckDB(t)

	session, err := d.BeginAppend(ctx, "people", schema)
	require.NoError(t, err)
	defer session.Abort(ctx)
	_, err = session.Append(ctx, [][]interface{}{{int64(1)}})
	assert.Error(t, err)
}

func TestDialectLiterals(t *testing.T) {
	ctx := context.Background()
	d := openDuckDB(t)
	dl := duckdb.Dialect()

	require.NoError(t, d.ExecDDL(ctx, `CREATE TABLE lits (f DOUBLE, b BLOB)`))
	nan, err := dl.NonFiniteFloat(math.NaN())
	require.NoError(t, err)
	n, err := d.ExecDML(ctx, "INSERT INTO lits VALUES ("+nan+", "+dl.BinaryLiteral([]byte{0xde, 0xad})+")")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var f float64
	var b []byte
	require.NoError(t, d.DB().QueryRowContext(ctx, `SELECT f, b FROM lits`).Scan(&f, &b))
	assert.True(t, math.IsNaN(f))
	assert.Equal(t, []byte{0xde, 0xad}, b)
}
