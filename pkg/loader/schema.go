package loader

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/errors"
)

// TypeMapping selects which logical types have a storage mapping.
type TypeMapping string

const (
	// Strict maps booleans, integers, floats and text only.
	Strict TypeMapping = config.TypeMappingStrict
	// Extended additionally maps temporal, binary and list types.
	Extended TypeMapping = config.TypeMappingExtended
)

// MapType returns the storage type for a logical type. Dictionary columns
// map as their value type.
func MapType(dt arrow.DataType, mode TypeMapping) (core.FieldType, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return core.FieldTypeBool, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return core.FieldTypeInt, nil
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return core.FieldTypeFloat, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return core.FieldTypeVarchar, nil
	case arrow.DICTIONARY:
		return MapType(dt.(*arrow.DictionaryType).ValueType, mode)
	}

	if mode == Extended {
		switch dt.ID() {
		case arrow.DATE32, arrow.DATE64:
			return core.FieldTypeDate, nil
		case arrow.TIMESTAMP:
			return core.FieldTypeTimestamp, nil
		case arrow.TIME32, arrow.TIME64:
			return core.FieldTypeTime, nil
		case arrow.DURATION:
			return core.FieldTypeVarchar, nil
		case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
			return core.FieldTypeBlob, nil
		case arrow.LIST, arrow.LARGE_LIST:
			return core.FieldTypeJSON, nil
		}
	}

	return "", errors.Newf(errors.ErrorTypeSchemaMapping, "unsupported type %s", dt).
		WithDetail("type", dt.String())
}

// DeriveSchema maps every column of s, failing on the first column without
// a storage mapping.
func DeriveSchema(table string, s *arrow.Schema, mode TypeMapping) (*core.Schema, error) {
	if s.NumFields() == 0 {
		return nil, errors.New(errors.ErrorTypeSchemaMapping, "source has no columns")
	}

	out := &core.Schema{Name: table, Fields: make([]core.Field, s.NumFields())}
	for i, f := range s.Fields() {
		ft, err := MapType(f.Type, mode)
		if err != nil {
			return nil, errors.SchemaMapping(f.Name, f.Type.String())
		}
		out.Fields[i] = core.Field{Name: f.Name, Type: ft, Nullable: f.Nullable}
	}
	return out, nil
}

// SameSchema reports whether a and b have the same column names, order
// and types. Nullability and metadata are ignored.
func SameSchema(a, b *arrow.Schema) bool {
	if a.NumFields() != b.NumFields() {
		return false
	}
	for i := 0; i < a.NumFields(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		if fa.Name != fb.Name || !arrow.TypeEqual(fa.Type, fb.Type) {
			return false
		}
	}
	return true
}
