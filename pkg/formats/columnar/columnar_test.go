package columnar_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
	"github.com/ajitpratap0/arrowload/pkg/testutil"
)

var peopleSchema = testutil.Schema(
	"id", arrow.PrimitiveTypes.Int64,
	"name", arrow.BinaryTypes.String,
)

func twoBatches(t *testing.T) []arrow.Record {
	return []arrow.Record{
		testutil.Record(t, peopleSchema, `[{"id": 1, "name": "A"}, {"id": 2, "name": "O'Brien"}]`),
		testutil.Record(t, peopleSchema, `[{"id": 3, "name": null}]`),
	}
}

type readResult struct {
	format  columnar.Format
	batches int
	rows    int64
	names   []string
}

func readAll(t *testing.T, path string) readResult {
	t.Helper()
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	r, err := columnar.Open(ctx, path, &columnar.ReaderConfig{BatchSize: 1024, Allocator: mem})
	require.NoError(t, err)

	res := readResult{format: r.Format()}
	for _, f := range r.Schema().Fields() {
		res.names = append(res.names, f.Name)
	}

	recs, err := columnar.ReadAll(ctx, r)
	require.NoError(t, err)
	for _, rec := range recs {
		res.batches++
		res.rows += rec.NumRows()
		rec.Release()
	}
	require.NoError(t, r.Close())
	return res
}

func TestOpenArrowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.arrow")
	testutil.WriteIPCFile(t, path, peopleSchema, twoBatches(t)...)

	res := readAll(t, path)
	assert.Equal(t, columnar.ArrowFile, res.format)
	assert.Equal(t, 2, res.batches)
	assert.Equal(t, int64(3), res.rows)
	assert.Equal(t, []string{"id", "name"}, res.names)
}

func TestOpenArrowStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.bin")
	testutil.WriteIPCStream(t, path, peopleSchema, twoBatches(t)...)

	res := readAll(t, path)
	assert.Equal(t, columnar.ArrowStream, res.format)
	assert.Equal(t, 2, res.batches)
	assert.Equal(t, int64(3), res.rows)
}

func TestOpenParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.parquet")
	testutil.WriteParquet(t, path, peopleSchema, twoBatches(t)...)

	res := readAll(t, path)
	assert.Equal(t, columnar.Parquet, res.format)
	assert.Equal(t, int64(3), res.rows)
	assert.Equal(t, []string{"id", "name"}, res.names)
}

func compressFile(t *testing.T, src, dst string, algo columnar.Algorithm) {
	t.Helper()
	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()
	out, err := os.Create(dst)
	require.NoError(t, err)
	defer out.Close()

	var w io.WriteCloser
	switch algo {
	case columnar.Zstd:
		w, err = zstd.NewWriter(out)
		require.NoError(t, err)
	case columnar.LZ4:
		w = lz4.NewWriter(out)
	}
	_, err = io.Copy(w, in)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestOpenCompressed(t *testing.T) {
	for _, algo := range []columnar.Algorithm{columnar.Zstd, columnar.LZ4} {
		t.Run(string(algo), func(t *testing.T) {
			dir := t.TempDir()
			plain := filepath.Join(dir, "people.arrow")
			testutil.WriteIPCFile(t, plain, peopleSchema, twoBatches(t)...)
			packed := filepath.Join(dir, "people.arrow."+string(algo))
			compressFile(t, plain, packed, algo)

			res := readAll(t, packed)
			assert.Equal(t, columnar.ArrowFile, res.format)
			assert.Equal(t, int64(3), res.rows)
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := columnar.Open(context.Background(), filepath.Join(t.TempDir(), "absent.arrow"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceOpen))
}

func TestOpenNotColumnar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,A\n"), 0o600))

	_, err := columnar.Open(context.Background(), path, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceFormat))
}

func TestOpenTruncatedArrowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.arrow")
	require.NoError(t, os.WriteFile(path, []byte("ARROW1\x00\x00garbage"), 0o600))

	_, err := columnar.Open(context.Background(), path, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceFormat))
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		header []byte
		name   string
		want   columnar.Format
	}{
		{[]byte("ARROW1\x00\x00"), "x", columnar.ArrowFile},
		{[]byte("PAR1...."), "x", columnar.Parquet},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x10, 0, 0, 0}, "x", columnar.ArrowStream},
		{nil, "data.feather", columnar.ArrowFile},
		{nil, "data.arrows", columnar.ArrowStream},
		{nil, "DATA.PARQUET", columnar.Parquet},
	}
	for _, tt := range tests {
		got, err := columnar.DetectFormat(tt.header, tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := columnar.DetectFormat([]byte("id,name"), "data.csv")
	assert.Error(t, err)
}

func TestFromRecordsOwnership(t *testing.T) {
	recs := twoBatches(t)
	r := columnar.FromRecords(nil, recs...)
	assert.Equal(t, columnar.Memory, r.Format())
	assert.True(t, r.Schema().Equal(peopleSchema))

	first, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.NumRows())
	first.Release()

	// Unconsumed records are released by Close.
	require.NoError(t, r.Close())
}

func TestNextHonorsCancellation(t *testing.T) {
	r := columnar.FromRecords(peopleSchema, twoBatches(t)...)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
