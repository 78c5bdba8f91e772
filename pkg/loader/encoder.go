package loader

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
	stringpool "github.com/ajitpratap0/arrowload/pkg/strings"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999999"
	timeLayout      = "15:04:05.999999999"
)

// Encoder turns cells into dialect literals for INSERT statements, or into
// native Go values for bulk append sessions.
type Encoder struct {
	dialect core.Dialect
	mode    TypeMapping
	workers int
}

// NewEncoder creates an encoder. workers bounds the columns encoded
// concurrently; values below one mean one.
func NewEncoder(dialect core.Dialect, mode TypeMapping, workers int) *Encoder {
	if workers < 1 {
		workers = 1
	}
	return &Encoder{dialect: dialect, mode: mode, workers: workers}
}

// allowed reports whether k can be encoded under the encoder's mapping.
func (e *Encoder) allowed(k columnar.Kind) bool {
	switch k {
	case columnar.KindNull, columnar.KindBool, columnar.KindInt, columnar.KindUint,
		columnar.KindFloat32, columnar.KindFloat64, columnar.KindString:
		return true
	}
	return e.mode == Extended
}

func unsupported(v columnar.Value) error {
	return errors.Newf(errors.ErrorTypeData, "no encoding for %s value", v.Kind).
		WithDetail("kind", v.Kind.String())
}

// Literal renders v as a SQL literal of the encoder's dialect.
func (e *Encoder) Literal(v columnar.Value) (string, error) {
	if !e.allowed(v.Kind) {
		return "", unsupported(v)
	}

	d := e.dialect
	switch v.Kind {
	case columnar.KindNull:
		return d.NullLiteral(), nil
	case columnar.KindBool:
		return d.BoolLiteral(v.Bool()), nil
	case columnar.KindInt:
		return strconv.FormatInt(v.Int(), 10), nil
	case columnar.KindUint:
		n, err := signed(v.Uint())
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case columnar.KindFloat32:
		return e.floatLiteral(v.Float(), 32)
	case columnar.KindFloat64:
		return e.floatLiteral(v.Float(), 64)
	case columnar.KindString:
		return d.StringLiteral(v.Str()), nil
	case columnar.KindDate:
		return d.StringLiteral(v.Time().Format(dateLayout)), nil
	case columnar.KindTimestamp:
		s := v.Time().Format(timestampLayout)
		if v.Zoned() {
			s += "Z"
		}
		return d.StringLiteral(s), nil
	case columnar.KindTime:
		return d.StringLiteral(v.Time().Format(timeLayout)), nil
	case columnar.KindDuration:
		return d.StringLiteral(ISODuration(v.Duration())), nil
	case columnar.KindBinary:
		return d.BinaryLiteral(v.Bytes()), nil
	case columnar.KindList:
		s, err := listJSON(v)
		if err != nil {
			return "", err
		}
		return d.StringLiteral(s), nil
	}
	return "", unsupported(v)
}

func (e *Encoder) floatLiteral(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		lit, err := e.dialect.NonFiniteFloat(f)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeData, "non-finite float")
		}
		return lit, nil
	}
	return strconv.FormatFloat(f, 'g', -1, bits), nil
}

// signed narrows an unsigned cell to the INT storage type. Values above
// math.MaxInt64 have no exact representation and are rejected.
func signed(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, errors.Newf(errors.ErrorTypeData, "unsigned value %d overflows BIGINT", u)
	}
	return int64(u), nil
}

// Native returns the value handed to an append session for v.
func (e *Encoder) Native(v columnar.Value) (interface{}, error) {
	if !e.allowed(v.Kind) {
		return nil, unsupported(v)
	}

	switch v.Kind {
	case columnar.KindNull:
		return nil, nil
	case columnar.KindBool:
		return v.Bool(), nil
	case columnar.KindInt:
		return v.Int(), nil
	case columnar.KindUint:
		return signed(v.Uint())
	case columnar.KindFloat32, columnar.KindFloat64:
		return v.Float(), nil
	case columnar.KindString:
		return v.Str(), nil
	case columnar.KindDate, columnar.KindTimestamp, columnar.KindTime:
		return v.Time(), nil
	case columnar.KindDuration:
		return ISODuration(v.Duration()), nil
	case columnar.KindBinary:
		return v.Bytes(), nil
	case columnar.KindList:
		return listJSON(v)
	}
	return nil, unsupported(v)
}

// EncodeColumn renders every row of arr as a literal.
func (e *Encoder) EncodeColumn(arr arrow.Array) ([]string, error) {
	out := make([]string, arr.Len())
	for i := range out {
		v, err := columnar.ValueAt(arr, i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "cannot read cell").WithDetail("row", i)
		}
		if out[i], err = e.Literal(v); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "cannot encode cell").WithDetail("row", i)
		}
	}
	return out, nil
}

// NativeColumn converts every row of arr to its append session value.
func (e *Encoder) NativeColumn(arr arrow.Array) ([]interface{}, error) {
	out := make([]interface{}, arr.Len())
	for i := range out {
		v, err := columnar.ValueAt(arr, i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "cannot read cell").WithDetail("row", i)
		}
		if out[i], err = e.Native(v); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "cannot convert cell").WithDetail("row", i)
		}
	}
	return out, nil
}

// EncodeBatch renders all columns of rec, one worker per column.
func (e *Encoder) EncodeBatch(ctx context.Context, rec arrow.Record) ([][]string, error) {
	return eachColumn(ctx, rec, e.workers, e.EncodeColumn)
}

// NativeBatch converts all columns of rec, one worker per column.
func (e *Encoder) NativeBatch(ctx context.Context, rec arrow.Record) ([][]interface{}, error) {
	return eachColumn(ctx, rec, e.workers, e.NativeColumn)
}

func eachColumn[T any](ctx context.Context, rec arrow.Record, workers int, fn func(arrow.Array) ([]T, error)) ([][]T, error) {
	cols := make([][]T, rec.NumCols())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range cols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := fn(rec.Column(c))
			if err != nil {
				name := rec.ColumnName(c)
				return errors.Wrap(err, errors.ErrorTypeData, "column "+strconv.Quote(name)).
					WithDetail("column", name)
			}
			cols[c] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cols, nil
}

func listJSON(v columnar.Value) (string, error) {
	b, err := json.Marshal(v.Native())
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "cannot encode list as JSON")
	}
	return stringpool.BytesToString(b), nil
}

// ISODuration formats d as an ISO-8601 duration in seconds, e.g. PT90S or
// -PT0.25S.
func ISODuration(d time.Duration) string {
	return stringpool.BuildString(func(b *stringpool.Builder) {
		if d < 0 {
			b.WriteByte('-')
		}
		b.WriteString("PT")

		abs := uint64(d)
		if d < 0 {
			abs = uint64(-d)
		}
		secs, nanos := abs/uint64(time.Second), abs%uint64(time.Second)
		b.WriteString(strconv.FormatUint(secs, 10))
		if nanos > 0 {
			frac := strconv.FormatUint(nanos+uint64(time.Second), 10)[1:]
			for len(frac) > 0 && frac[len(frac)-1] == '0' {
				frac = frac[:len(frac)-1]
			}
			b.WriteByte('.')
			b.WriteString(frac)
		}
		b.WriteByte('S')
	})
}
