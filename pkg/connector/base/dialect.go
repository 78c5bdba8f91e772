package base

import (
	"fmt"
	"math"

	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	stringpool "github.com/ajitpratap0/arrowload/pkg/strings"
)

// StandardDialect is a table driven core.Dialect covering the ANSI shape
// shared by the supported engines. Destinations copy DefaultDialect and
// override the fields their engine spells differently.
type StandardDialect struct {
	// Engine is returned by Name
	Engine string
	// Quote is the identifier quote character
	Quote byte
	// EscapeBackslash doubles backslashes inside string literals
	EscapeBackslash bool
	// Types maps storage types to DDL type names
	Types map[core.FieldType]string
	// True and False are the boolean literals
	True, False string
	// NaN, PosInf and NegInf are the non-finite float literals. An empty
	// value means the engine cannot store it.
	NaN, PosInf, NegInf string
	// BinaryPrefix and BinarySuffix surround the hex digits of a blob literal
	BinaryPrefix, BinarySuffix string
}

// DefaultDialect returns the ANSI baseline: double-quoted identifiers,
// doubled single quotes, X'..' blobs and no non-finite floats.
func DefaultDialect(engine string) *StandardDialect {
	return &StandardDialect{
		Engine: engine,
		Quote:  '"',
		Types: map[core.FieldType]string{
			core.FieldTypeBool:      "BOOLEAN",
			core.FieldTypeInt:       "BIGINT",
			core.FieldTypeFloat:     "DOUBLE PRECISION",
			core.FieldTypeVarchar:   "VARCHAR",
			core.FieldTypeDate:      "DATE",
			core.FieldTypeTimestamp: "TIMESTAMP",
			core.FieldTypeTime:      "TIME",
			core.FieldTypeBlob:      "BLOB",
			core.FieldTypeJSON:      "VARCHAR",
		},
		True:         "TRUE",
		False:        "FALSE",
		BinaryPrefix: "X'",
		BinarySuffix: "'",
	}
}

// Clone returns a copy whose Types map can be modified independently.
func (d *StandardDialect) Clone() *StandardDialect {
	c := *d
	c.Types = make(map[core.FieldType]string, len(d.Types))
	for k, v := range d.Types {
		c.Types[k] = v
	}
	return &c
}

func (d *StandardDialect) Name() string {
	return d.Engine
}

func (d *StandardDialect) QuoteIdentifier(name string) string {
	return stringpool.BuildString(func(b *stringpool.Builder) {
		stringpool.AppendQuoted(b, name, d.Quote)
	})
}

func (d *StandardDialect) ColumnType(t core.FieldType) string {
	if name, ok := d.Types[t]; ok {
		return name
	}
	return string(t)
}

func (d *StandardDialect) StringLiteral(s string) string {
	return stringpool.BuildWith(stringpool.SizeFor(len(s)+2), func(b *stringpool.Builder) {
		stringpool.AppendStringLiteral(b, s, d.EscapeBackslash)
	})
}

func (d *StandardDialect) BoolLiteral(v bool) string {
	if v {
		return d.True
	}
	return d.False
}

func (d *StandardDialect) NonFiniteFloat(f float64) (string, error) {
	var lit string
	switch {
	case math.IsNaN(f):
		lit = d.NaN
	case math.IsInf(f, 1):
		lit = d.PosInf
	case math.IsInf(f, -1):
		lit = d.NegInf
	default:
		return "", fmt.Errorf("%v is finite", f)
	}
	if lit == "" {
		return "", fmt.Errorf("%s cannot store %v", d.Engine, f)
	}
	return lit, nil
}

func (d *StandardDialect) BinaryLiteral(data []byte) string {
	return stringpool.BuildWith(stringpool.SizeFor(2*len(data)+4), func(b *stringpool.Builder) {
		b.WriteString(d.BinaryPrefix)
		stringpool.AppendHex(b, data)
		b.WriteString(d.BinarySuffix)
	})
}

func (d *StandardDialect) NullLiteral() string {
	return "NULL"
}
