package sqlite_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arrowload/pkg/connector/destinations/sqlite"
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
	"github.com/ajitpratap0/arrowload/pkg/errors"
)

func TestOpenDefaultsToModernc(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	dest, err := registry.OpenDestination(ctx, path, nil)
	require.NoError(t, err)
	defer dest.Close(ctx)

	d, ok := dest.(*sqlite.Destination)
	require.True(t, ok)
	assert.Equal(t, sqlite.DriverModernc, d.Driver())
	assert.Equal(t, path, d.Path())
	assert.True(t, dest.SupportsTransactions())
}

func TestOpenSelectsDriverAndJournalMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	dest, err := registry.OpenDestination(ctx, "sqlite://"+path+"?driver=sqlite3&journal_mode=wal", nil)
	require.NoError(t, err)
	defer dest.Close(ctx)

	d := dest.(*sqlite.Destination)
	assert.Equal(t, sqlite.DriverMattn, d.Driver())

	var mode string
	require.NoError(t, d.DB().QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := registry.OpenDestination(context.Background(), "sqlite://x.db?driver=odbc", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDestinationOpen))
}

func TestOpenMissingDirectoryIsNotRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.db")

	start := time.Now()
	_, err := registry.OpenDestination(context.Background(), path, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errors.ErrorTypeDestinationOpen, e.Type)
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(e.Cause))
	assert.False(t, errors.IsRetryable(e.Cause))
}

func TestDialectRoundTrip(t *testing.T) {
	ctx := context.Background()
	dest, err := registry.OpenDestination(ctx, filepath.Join(t.TempDir(), "rt.db"), nil)
	require.NoError(t, err)
	defer dest.Close(ctx)
	d := dest.(*sqlite.Destination)
	dl := sqlite.Dialect()

	require.NoError(t, d.ExecDDL(ctx, `CREATE TABLE t (s TEXT, f FLOAT, b BLOB)`))

	inf, err := dl.NonFiniteFloat(math.Inf(1))
	require.NoError(t, err)
	nan, err := dl.NonFiniteFloat(math.NaN())
	require.NoError(t, err)

	texts := []string{"O'Brien", `back\slash`, "''", "línea\nnueva", ""}
	for _, s := range texts {
		stmt := "INSERT INTO t VALUES (" + dl.StringLiteral(s) + ", " + inf + ", " + dl.BinaryLiteral([]byte(s)) + ")"
		n, err := d.ExecDML(ctx, stmt)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}
	_, err = d.ExecDML(ctx, "INSERT INTO t VALUES ('nan', "+nan+", NULL)")
	require.NoError(t, err)

	rows, err := d.DB().QueryContext(ctx, `SELECT s, f, b FROM t WHERE s <> 'nan' ORDER BY rowid`)
	require.NoError(t, err)
	defer rows.Close()
	var got []string
	for rows.Next() {
		var s string
		var f float64
		var b []byte
		require.NoError(t, rows.Scan(&s, &f, &b))
		assert.True(t, math.IsInf(f, 1))
		assert.Equal(t, s, string(b))
		got = append(got, s)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, texts, got)

	var isNull bool
	require.NoError(t, d.DB().QueryRowContext(ctx, `SELECT f IS NULL FROM t WHERE s = 'nan'`).Scan(&isNull))
	assert.True(t, isNull)
}
