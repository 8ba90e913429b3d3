package parquet

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/gear6io/hivewriter/server/schema"
)

const vocabulary = "codec"

// ReadOptions controls how file types map back to semantic types
type ReadOptions struct {
	// DecimalAsBinary surfaces decimal and fixed-size binary columns as
	// Binary holding the 16-byte big-endian unscaled value.
	DecimalAsBinary bool
}

// ArrowType maps a semantic type to its Arrow type
func ArrowType(t schema.Type) (arrow.DataType, error) {
	switch t.Kind {
	case schema.KindBoolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case schema.KindInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case schema.KindInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case schema.KindInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case schema.KindFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case schema.KindFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case schema.KindString:
		return arrow.BinaryTypes.String, nil
	case schema.KindBinary:
		return arrow.BinaryTypes.Binary, nil
	case schema.KindDecimal:
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return &arrow.Decimal128Type{Precision: t.Precision, Scale: t.Scale}, nil
	case schema.KindDate:
		return arrow.FixedWidthTypes.Date32, nil
	case schema.KindTimestampMillis:
		return &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}, nil
	default:
		return nil, schema.NewUnsupportedType(t.String(), "semantic")
	}
}

// SemanticType maps an Arrow type back. Types outside the table are
// rejected rather than approximated.
func SemanticType(dt arrow.DataType, opts ReadOptions) (schema.Type, error) {
	switch dt := dt.(type) {
	case *arrow.BooleanType:
		return schema.BooleanType, nil
	case *arrow.Int16Type:
		return schema.Int16Type, nil
	case *arrow.Int32Type:
		return schema.Int32Type, nil
	case *arrow.Int64Type:
		return schema.Int64Type, nil
	case *arrow.Float32Type:
		return schema.Float32Type, nil
	case *arrow.Float64Type:
		return schema.Float64Type, nil
	case *arrow.StringType:
		return schema.StringType, nil
	case *arrow.BinaryType:
		return schema.BinaryType, nil
	case *arrow.Decimal128Type:
		if opts.DecimalAsBinary {
			return schema.BinaryType, nil
		}
		return schema.DecimalType(dt.Precision, dt.Scale), nil
	case *arrow.FixedSizeBinaryType:
		if opts.DecimalAsBinary {
			return schema.BinaryType, nil
		}
	case *arrow.Date32Type:
		return schema.DateType, nil
	case *arrow.TimestampType:
		if dt.Unit == arrow.Millisecond {
			return schema.TimestampMillisType, nil
		}
	}
	return schema.Type{}, schema.NewUnsupportedType(dt.String(), vocabulary)
}

// ToArrowSchema converts a Struct preserving order and nullability
func ToArrowSchema(s schema.Struct) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		dt, err := ArrowType(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// FromArrowSchema converts an Arrow schema back to a Struct
func FromArrowSchema(as *arrow.Schema, opts ReadOptions) (schema.Struct, error) {
	fields := make([]schema.Field, as.NumFields())
	for i, f := range as.Fields() {
		t, err := SemanticType(f.Type, opts)
		if err != nil {
			return schema.Struct{}, err
		}
		fields[i] = schema.Field{Name: f.Name, Type: t, Nullable: f.Nullable}
	}
	return schema.NewStruct(fields...), nil
}
