package columnar

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Kind discriminates the variants of a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat32
	KindFloat64
	KindString
	KindDate
	KindTimestamp
	KindTime
	KindDuration
	KindBinary
	KindList
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindUint:      "uint",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindString:    "string",
	KindDate:      "date",
	KindTimestamp: "timestamp",
	KindTime:      "time",
	KindDuration:  "duration",
	KindBinary:    "binary",
	KindList:      "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one cell of a batch. Only the field selected by Kind is
// meaningful.
type Value struct {
	Kind Kind

	i     int64
	u     uint64
	f     float64
	s     string
	b     []byte
	t     time.Time
	list  []Value
	zoned bool
}

// Constructors for each variant.

func Null() Value                   { return Value{Kind: KindNull} }
func BoolValue(v bool) Value        { return Value{Kind: KindBool, i: boolToInt(v)} }
func IntValue(v int64) Value        { return Value{Kind: KindInt, i: v} }
func UintValue(v uint64) Value      { return Value{Kind: KindUint, u: v} }
func Float32Value(v float32) Value  { return Value{Kind: KindFloat32, f: float64(v)} }
func Float64Value(v float64) Value  { return Value{Kind: KindFloat64, f: v} }
func StringValue(v string) Value    { return Value{Kind: KindString, s: v} }
func DateValue(v time.Time) Value   { return Value{Kind: KindDate, t: v.UTC()} }
func TimeValue(v time.Time) Value   { return Value{Kind: KindTime, t: v.UTC()} }
func BinaryValue(v []byte) Value    { return Value{Kind: KindBinary, b: v} }
func ListValue(v []Value) Value     { return Value{Kind: KindList, list: v} }
func DurationValue(v time.Duration) Value {
	return Value{Kind: KindDuration, i: int64(v)}
}

// TimestampValue builds a timestamp. zoned records whether the source type
// carried a time zone, in which case the instant is normalized to UTC.
func TimestampValue(v time.Time, zoned bool) Value {
	return Value{Kind: KindTimestamp, t: v.UTC(), zoned: zoned}
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (v Value) IsNull() bool            { return v.Kind == KindNull }
func (v Value) Bool() bool              { return v.i != 0 }
func (v Value) Int() int64              { return v.i }
func (v Value) Uint() uint64            { return v.u }
func (v Value) Float() float64          { return v.f }
func (v Value) Str() string             { return v.s }
func (v Value) Bytes() []byte           { return v.b }
func (v Value) Time() time.Time         { return v.t }
func (v Value) Duration() time.Duration { return time.Duration(v.i) }
func (v Value) List() []Value           { return v.list }
func (v Value) Zoned() bool             { return v.zoned }

// Native returns the Go value a database driver accepts for v.
func (v Value) Native() interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat32:
		return float32(v.f)
	case KindFloat64:
		return v.f
	case KindString:
		return v.s
	case KindDate, KindTimestamp, KindTime:
		return v.t
	case KindDuration:
		return v.Duration()
	case KindBinary:
		return v.b
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, e := range v.list {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// ValueAt extracts row i of arr. Binary values alias the array's buffers
// and are only valid while the batch is retained.
func ValueAt(arr arrow.Array, i int) (Value, error) {
	if arr.IsNull(i) {
		return Null(), nil
	}

	switch a := arr.(type) {
	case *array.Boolean:
		return BoolValue(a.Value(i)), nil
	case *array.Int8:
		return IntValue(int64(a.Value(i))), nil
	case *array.Int16:
		return IntValue(int64(a.Value(i))), nil
	case *array.Int32:
		return IntValue(int64(a.Value(i))), nil
	case *array.Int64:
		return IntValue(a.Value(i)), nil
	case *array.Uint8:
		return UintValue(uint64(a.Value(i))), nil
	case *array.Uint16:
		return UintValue(uint64(a.Value(i))), nil
	case *array.Uint32:
		return UintValue(uint64(a.Value(i))), nil
	case *array.Uint64:
		return UintValue(a.Value(i)), nil
	case *array.Float16:
		return Float32Value(a.Value(i).Float32()), nil
	case *array.Float32:
		return Float32Value(a.Value(i)), nil
	case *array.Float64:
		return Float64Value(a.Value(i)), nil
	case *array.String:
		return StringValue(a.Value(i)), nil
	case *array.LargeString:
		return StringValue(a.Value(i)), nil
	case *array.Binary:
		return BinaryValue(a.Value(i)), nil
	case *array.LargeBinary:
		return BinaryValue(a.Value(i)), nil
	case *array.FixedSizeBinary:
		return BinaryValue(a.Value(i)), nil
	case *array.Date32:
		return DateValue(a.Value(i).ToTime()), nil
	case *array.Date64:
		return DateValue(a.Value(i).ToTime()), nil
	case *array.Timestamp:
		dt := a.DataType().(*arrow.TimestampType)
		return TimestampValue(a.Value(i).ToTime(dt.Unit), dt.TimeZone != ""), nil
	case *array.Time32:
		dt := a.DataType().(*arrow.Time32Type)
		return TimeValue(a.Value(i).ToTime(dt.Unit)), nil
	case *array.Time64:
		dt := a.DataType().(*arrow.Time64Type)
		return TimeValue(a.Value(i).ToTime(dt.Unit)), nil
	case *array.Duration:
		dt := a.DataType().(*arrow.DurationType)
		return DurationValue(time.Duration(a.Value(i)) * dt.Unit.Multiplier()), nil
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValue(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return listValue(a.ListValues(), start, end)
	case *array.Dictionary:
		return ValueAt(a.Dictionary(), a.GetValueIndex(i))
	default:
		return Value{}, fmt.Errorf("unsupported arrow type %s", arr.DataType())
	}
}

func listValue(values arrow.Array, start, end int64) (Value, error) {
	elems := make([]Value, 0, end-start)
	for j := start; j < end; j++ {
		v, err := ValueAt(values, int(j))
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
	}
	return ListValue(elems), nil
}
