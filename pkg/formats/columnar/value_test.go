package columnar_test

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
)

func TestValueAtPrimitives(t *testing.T) {
	mem := memory.NewGoAllocator()

	ib := array.NewInt32Builder(mem)
	defer ib.Release()
	ib.AppendValues([]int32{-7, 0}, []bool{true, false})
	ints := ib.NewArray()
	defer ints.Release()

	ub := array.NewUint16Builder(mem)
	defer ub.Release()
	ub.Append(65535)
	uints := ub.NewArray()
	defer uints.Release()

	fb := array.NewFloat16Builder(mem)
	defer fb.Release()
	fb.Append(float16.New(1.5))
	halves := fb.NewArray()
	defer halves.Release()

	bb := array.NewBooleanBuilder(mem)
	defer bb.Release()
	bb.Append(true)
	bools := bb.NewArray()
	defer bools.Release()

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.Append("O'Brien")
	strs := sb.NewArray()
	defer strs.Release()

	v, err := columnar.ValueAt(ints, 0)
	require.NoError(t, err)
	assert.Equal(t, columnar.KindInt, v.Kind)
	assert.Equal(t, int64(-7), v.Int())

	v, err = columnar.ValueAt(ints, 1)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.Nil(t, v.Native())

	v, err = columnar.ValueAt(uints, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(65535), v.Uint())

	v, err = columnar.ValueAt(halves, 0)
	require.NoError(t, err)
	assert.Equal(t, columnar.KindFloat32, v.Kind)
	assert.InDelta(t, 1.5, v.Float(), 1e-6)

	v, err = columnar.ValueAt(bools, 0)
	require.NoError(t, err)
	assert.Equal(t, true, v.Native())

	v, err = columnar.ValueAt(strs, 0)
	require.NoError(t, err)
	assert.Equal(t, "O'Brien", v.Str())
}

func TestValueAtTemporal(t *testing.T) {
	mem := memory.NewGoAllocator()
	instant := time.Date(2024, 3, 9, 12, 30, 15, 0, time.UTC)

	db := array.NewDate32Builder(mem)
	defer db.Release()
	db.Append(arrow.Date32FromTime(instant))
	dates := db.NewArray()
	defer dates.Release()

	zoned := &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	tb := array.NewTimestampBuilder(mem, zoned)
	defer tb.Release()
	ts, err := arrow.TimestampFromTime(instant, arrow.Microsecond)
	require.NoError(t, err)
	tb.Append(ts)
	stamps := tb.NewArray()
	defer stamps.Release()

	naive := &arrow.TimestampType{Unit: arrow.Second}
	nb := array.NewTimestampBuilder(mem, naive)
	defer nb.Release()
	nb.Append(arrow.Timestamp(instant.Unix()))
	naiveStamps := nb.NewArray()
	defer naiveStamps.Release()

	durType := &arrow.DurationType{Unit: arrow.Millisecond}
	durb := array.NewDurationBuilder(mem, durType)
	defer durb.Release()
	durb.Append(arrow.Duration(1500))
	durs := durb.NewArray()
	defer durs.Release()

	v, err := columnar.ValueAt(dates, 0)
	require.NoError(t, err)
	assert.Equal(t, columnar.KindDate, v.Kind)
	assert.Equal(t, "2024-03-09", v.Time().Format("2006-01-02"))

	v, err = columnar.ValueAt(stamps, 0)
	require.NoError(t, err)
	assert.Equal(t, columnar.KindTimestamp, v.Kind)
	assert.True(t, v.Zoned())
	assert.True(t, instant.Equal(v.Time()))

	v, err = columnar.ValueAt(naiveStamps, 0)
	require.NoError(t, err)
	assert.False(t, v.Zoned())
	assert.True(t, instant.Equal(v.Time()))

	v, err = columnar.ValueAt(durs, 0)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, v.Duration())
}

func TestValueAtNested(t *testing.T) {
	mem := memory.NewGoAllocator()

	lb := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int64)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Int64Builder)
	lb.Append(true)
	vb.AppendValues([]int64{1, 2, 3}, nil)
	lb.Append(true)
	lists := lb.NewArray()
	defer lists.Release()

	v, err := columnar.ValueAt(lists, 0)
	require.NoError(t, err)
	assert.Equal(t, columnar.KindList, v.Kind)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, v.Native())

	v, err = columnar.ValueAt(lists, 1)
	require.NoError(t, err)
	assert.Empty(t, v.List())

	dictType := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int8, ValueType: arrow.BinaryTypes.String}
	dictb := array.NewDictionaryBuilder(mem, dictType).(*array.BinaryDictionaryBuilder)
	defer dictb.Release()
	require.NoError(t, dictb.AppendString("red"))
	require.NoError(t, dictb.AppendString("blue"))
	require.NoError(t, dictb.AppendString("red"))
	dict := dictb.NewArray()
	defer dict.Release()

	v, err = columnar.ValueAt(dict, 2)
	require.NoError(t, err)
	assert.Equal(t, "red", v.Str())
}

func TestValueAtUnsupported(t *testing.T) {
	mem := memory.NewGoAllocator()
	st := arrow.StructOf(arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int64})
	sb := array.NewStructBuilder(mem, st)
	defer sb.Release()
	sb.Append(true)
	sb.FieldBuilder(0).(*array.Int64Builder).Append(1)
	structs := sb.NewArray()
	defer structs.Release()

	_, err := columnar.ValueAt(structs, 0)
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "timestamp", columnar.KindTimestamp.String())
	assert.Equal(t, "kind(200)", columnar.Kind(200).String())
}
