package columnar

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
)

// avroReader implements Reader for Avro object container files. Rows are
// decoded with goavro and regrouped into batches of ReaderConfig.BatchSize.
type avroReader struct {
	file    *os.File
	ocf     *goavro.OCFReader
	schema  *arrow.Schema
	config  *ReaderConfig
	builder *array.RecordBuilder
}

func newAvroReader(f *os.File, config *ReaderConfig) (*avroReader, error) {
	ocf, err := goavro.NewOCFReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro reader: %w", err)
	}

	schema, err := avroToArrowSchema(ocf.Codec().Schema())
	if err != nil {
		return nil, err
	}

	return &avroReader{
		file:    f,
		ocf:     ocf,
		schema:  schema,
		config:  config,
		builder: array.NewRecordBuilder(config.Allocator, schema),
	}, nil
}

func (ar *avroReader) Schema() *arrow.Schema {
	return ar.schema
}

func (ar *avroReader) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := ar.config.BatchSize
	if limit <= 0 {
		limit = DefaultReaderConfig().BatchSize
	}

	fields := ar.schema.Fields()
	var rows int64
	for rows < limit && ar.ocf.Scan() {
		datum, err := ar.ocf.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read Avro datum: %w", err)
		}
		m, ok := datum.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("avro datum is %T, not a record", datum)
		}
		for i, f := range fields {
			if err := appendAvro(ar.builder.Field(i), m[f.Name]); err != nil {
				return nil, fmt.Errorf("column %q: %w", f.Name, err)
			}
		}
		rows++
	}
	if err := ar.ocf.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan Avro blocks: %w", err)
	}
	if rows == 0 {
		return nil, io.EOF
	}
	return ar.builder.NewRecord(), nil
}

func (ar *avroReader) Format() Format {
	return Avro
}

func (ar *avroReader) Close() error {
	ar.builder.Release()
	return ar.file.Close()
}

// avroField mirrors the parts of an Avro field declaration that map to Arrow.
type avroField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type avroComplex struct {
	Type        string          `json:"type"`
	LogicalType string          `json:"logicalType"`
	Items       json.RawMessage `json:"items"`
}

func avroToArrowSchema(schema string) (*arrow.Schema, error) {
	var rec struct {
		Type   string      `json:"type"`
		Fields []avroField `json:"fields"`
	}
	if err := json.Unmarshal([]byte(schema), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse Avro schema: %w", err)
	}
	if rec.Type != "record" {
		return nil, fmt.Errorf("avro schema is a %q, not a record", rec.Type)
	}

	fields := make([]arrow.Field, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		dt, nullable, err := avroToArrowType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("avro field %q: %w", f.Name, err)
		}
		fields = append(fields, arrow.Field{Name: f.Name, Type: dt, Nullable: nullable})
	}
	return arrow.NewSchema(fields, nil), nil
}

// avroToArrowType maps a type declaration. Unions are accepted only as
// ["null", T] in either order, which makes the field nullable.
func avroToArrowType(raw json.RawMessage) (arrow.DataType, bool, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		dt, err := avroPrimitive(name)
		return dt, false, err
	}

	var union []json.RawMessage
	if err := json.Unmarshal(raw, &union); err == nil {
		var branch json.RawMessage
		nulls := 0
		for _, u := range union {
			if string(u) == `"null"` {
				nulls++
				continue
			}
			if branch != nil {
				return nil, false, fmt.Errorf("unsupported union %s", raw)
			}
			branch = u
		}
		if branch == nil || nulls != 1 {
			return nil, false, fmt.Errorf("unsupported union %s", raw)
		}
		dt, _, err := avroToArrowType(branch)
		return dt, true, err
	}

	var c avroComplex
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, fmt.Errorf("unsupported type %s", raw)
	}
	switch {
	case c.Type == "int" && c.LogicalType == "date":
		return arrow.FixedWidthTypes.Date32, false, nil
	case c.Type == "int" && c.LogicalType == "time-millis":
		return arrow.FixedWidthTypes.Time32ms, false, nil
	case c.Type == "long" && c.LogicalType == "time-micros":
		return arrow.FixedWidthTypes.Time64us, false, nil
	case c.Type == "long" && c.LogicalType == "timestamp-millis":
		return &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}, false, nil
	case c.Type == "long" && c.LogicalType == "timestamp-micros":
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, false, nil
	case c.Type == "enum":
		return arrow.BinaryTypes.String, false, nil
	case c.Type == "array":
		item, nullable, err := avroToArrowType(c.Items)
		if err != nil {
			return nil, false, err
		}
		return arrow.ListOfField(arrow.Field{Name: "item", Type: item, Nullable: nullable}), false, nil
	case c.LogicalType == "":
		dt, err := avroPrimitive(c.Type)
		return dt, false, err
	}
	return nil, false, fmt.Errorf("unsupported type %s", raw)
}

func avroPrimitive(name string) (arrow.DataType, error) {
	switch name {
	case "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "int":
		return arrow.PrimitiveTypes.Int32, nil
	case "long":
		return arrow.PrimitiveTypes.Int64, nil
	case "float":
		return arrow.PrimitiveTypes.Float32, nil
	case "double":
		return arrow.PrimitiveTypes.Float64, nil
	case "string":
		return arrow.BinaryTypes.String, nil
	case "bytes":
		return arrow.BinaryTypes.Binary, nil
	}
	return nil, fmt.Errorf("unsupported type %q", name)
}

// appendAvro appends one goavro native value. Non-null union values arrive
// wrapped in a single-entry map keyed by the branch name.
func appendAvro(b array.Builder, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		for _, inner := range m {
			return appendAvro(b, inner)
		}
	}

	switch b := b.(type) {
	case *array.BooleanBuilder:
		if x, ok := v.(bool); ok {
			b.Append(x)
			return nil
		}
	case *array.Int32Builder:
		if x, ok := v.(int32); ok {
			b.Append(x)
			return nil
		}
	case *array.Int64Builder:
		if x, ok := v.(int64); ok {
			b.Append(x)
			return nil
		}
	case *array.Float32Builder:
		if x, ok := v.(float32); ok {
			b.Append(x)
			return nil
		}
	case *array.Float64Builder:
		if x, ok := v.(float64); ok {
			b.Append(x)
			return nil
		}
	case *array.StringBuilder:
		if x, ok := v.(string); ok {
			b.Append(x)
			return nil
		}
	case *array.BinaryBuilder:
		if x, ok := v.([]byte); ok {
			b.Append(x)
			return nil
		}
	case *array.Date32Builder:
		if x, ok := v.(time.Time); ok {
			b.Append(arrow.Date32FromTime(x))
			return nil
		}
	case *array.Time32Builder:
		if x, ok := v.(time.Duration); ok {
			b.Append(arrow.Time32(x.Milliseconds()))
			return nil
		}
	case *array.Time64Builder:
		if x, ok := v.(time.Duration); ok {
			b.Append(arrow.Time64(x.Microseconds()))
			return nil
		}
	case *array.TimestampBuilder:
		if x, ok := v.(time.Time); ok {
			unit := b.Type().(*arrow.TimestampType).Unit
			ts, err := arrow.TimestampFromTime(x, unit)
			if err != nil {
				return err
			}
			b.Append(ts)
			return nil
		}
	case *array.ListBuilder:
		if items, ok := v.([]interface{}); ok {
			b.Append(true)
			vb := b.ValueBuilder()
			for _, item := range items {
				if err := appendAvro(vb, item); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return fmt.Errorf("unexpected value %T for %s", v, b.Type())
}
