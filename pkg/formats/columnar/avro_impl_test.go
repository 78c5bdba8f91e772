package columnar_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
)

const eventsAvroSchema = `{
  "type": "record",
  "name": "event",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "name", "type": ["null", "string"]},
    {"name": "day", "type": {"type": "int", "logicalType": "date"}},
    {"name": "at", "type": ["null", {"type": "long", "logicalType": "timestamp-micros"}]},
    {"name": "kind", "type": {"type": "enum", "name": "kind", "symbols": ["click", "view"]}},
    {"name": "tags", "type": {"type": "array", "items": "int"}}
  ]
}`

func writeAvro(t *testing.T, path, schema string, rows ...map[string]interface{}) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	codec, err := goavro.NewCodec(schema)
	require.NoError(t, err)
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Codec: codec})
	require.NoError(t, err)

	data := make([]interface{}, len(rows))
	for i, r := range rows {
		data[i] = r
	}
	require.NoError(t, w.Append(data))
}

func TestOpenAvro(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	at := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	path := filepath.Join(t.TempDir(), "events.avro")
	writeAvro(t, path, eventsAvroSchema,
		map[string]interface{}{"id": int64(1), "name": goavro.Union("string", "O'Brien"), "day": day,
			"at": goavro.Union("long.timestamp-micros", at), "kind": "click", "tags": []interface{}{int32(1), int32(2)}},
		map[string]interface{}{"id": int64(2), "name": nil, "day": day,
			"at": nil, "kind": "view", "tags": []interface{}{}},
		map[string]interface{}{"id": int64(3), "name": goavro.Union("string", "C"), "day": day,
			"at": nil, "kind": "view", "tags": []interface{}{int32(3)}},
	)

	cfg := columnar.DefaultReaderConfig()
	cfg.BatchSize = 2
	r, err := columnar.Open(context.Background(), path, cfg)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, columnar.Avro, r.Format())
	schema := r.Schema()
	require.Equal(t, 6, schema.NumFields())
	assert.False(t, schema.Field(0).Nullable)
	assert.True(t, schema.Field(1).Nullable)
	assert.Equal(t, arrow.DATE32, schema.Field(2).Type.ID())
	assert.Equal(t, arrow.TIMESTAMP, schema.Field(3).Type.ID())
	assert.Equal(t, arrow.STRING, schema.Field(4).Type.ID())
	assert.Equal(t, arrow.LIST, schema.Field(5).Type.ID())

	recs, err := columnar.ReadAll(context.Background(), r)
	require.NoError(t, err)
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	require.Len(t, recs, 2)
	assert.Equal(t, int64(2), recs[0].NumRows())
	assert.Equal(t, int64(1), recs[1].NumRows())

	first := recs[0]
	assert.Equal(t, int64(1), first.Column(0).(*array.Int64).Value(0))
	names := first.Column(1).(*array.String)
	assert.Equal(t, "O'Brien", names.Value(0))
	assert.True(t, names.IsNull(1))
	assert.Equal(t, arrow.Date32FromTime(day), first.Column(2).(*array.Date32).Value(0))
	stamps := first.Column(3).(*array.Timestamp)
	want, err := arrow.TimestampFromTime(at, arrow.Microsecond)
	require.NoError(t, err)
	assert.Equal(t, want, stamps.Value(0))
	assert.True(t, stamps.IsNull(1))
	assert.Equal(t, "view", first.Column(4).(*array.String).Value(1))

	tags := first.Column(5).(*array.List)
	start, end := tags.ValueOffsets(0)
	assert.Equal(t, int64(2), end-start)
	start, end = tags.ValueOffsets(1)
	assert.Equal(t, start, end)

	assert.Equal(t, int64(3), recs[1].Column(0).(*array.Int64).Value(0))
}

func TestOpenAvroUnsupportedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps.avro")
	writeAvro(t, path, `{"type": "record", "name": "r", "fields": [
		{"name": "attrs", "type": {"type": "map", "values": "string"}}
	]}`, map[string]interface{}{"attrs": map[string]interface{}{"a": "b"}})

	_, err := columnar.Open(context.Background(), path, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceFormat))
}

func TestDetectAvro(t *testing.T) {
	f, err := columnar.DetectFormat([]byte("Obj\x01\x02\x03"), "data.bin")
	require.NoError(t, err)
	assert.Equal(t, columnar.Avro, f)

	f, err = columnar.DetectFormat(nil, "events.avro")
	require.NoError(t, err)
	assert.Equal(t, columnar.Avro, f)
}
