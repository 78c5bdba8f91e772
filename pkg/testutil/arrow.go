package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/require"
)

// Record builds a batch from a JSON array of row objects, e.g.
//
//	testutil.Record(t, schema, `[{"id": 1, "name": "A"}, {"id": 2, "name": null}]`)
//
// The record is released when the test ends.
func Record(t *testing.T, schema *arrow.Schema, rows string) arrow.Record {
	t.Helper()
	rec, _, err := array.RecordFromJSON(memory.NewGoAllocator(), schema, strings.NewReader(rows))
	require.NoError(t, err)
	t.Cleanup(rec.Release)
	return rec
}

// Schema builds a schema of nullable fields from alternating names and types.
func Schema(fields ...interface{}) *arrow.Schema {
	out := make([]arrow.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		out = append(out, arrow.Field{
			Name:     fields[i].(string),
			Type:     fields[i+1].(arrow.DataType),
			Nullable: true,
		})
	}
	return arrow.NewSchema(out, nil)
}

// WriteIPCFile writes records to path in the Arrow IPC file format.
func WriteIPCFile(t *testing.T, path string, schema *arrow.Schema, recs ...arrow.Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
}

// WriteIPCStream writes records to path in the Arrow IPC streaming format.
func WriteIPCStream(t *testing.T, path string, schema *arrow.Schema, recs ...arrow.Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := ipc.NewWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(memory.NewGoAllocator()))
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
}

// WriteParquet writes records to path as a Parquet file, one row group per record.
func WriteParquet(t *testing.T, path string, schema *arrow.Schema, recs ...arrow.Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := pqarrow.NewFileWriter(schema, f, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
}
