package schema

import (
	"fmt"
)

// Kind is one of the closed set of semantic value kinds.
type Kind int

const (
	KindInvalid Kind = iota
	KindBoolean
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindBinary
	KindDecimal
	KindDate
	KindTimestampMillis
)

var kindNames = map[Kind]string{
	KindBoolean:         "boolean",
	KindInt16:           "int16",
	KindInt32:           "int32",
	KindInt64:           "int64",
	KindFloat32:         "float32",
	KindFloat64:         "float64",
	KindString:          "string",
	KindBinary:          "binary",
	KindDecimal:         "decimal",
	KindDate:            "date",
	KindTimestampMillis: "timestamp_millis",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is a semantic type. It is comparable, so two schemas are equal
// exactly when their fields compare equal with ==.
// Precision and Scale are only meaningful for KindDecimal.
type Type struct {
	Kind      Kind
	Precision int32
	Scale     int32
}

var (
	BooleanType         = Type{Kind: KindBoolean}
	Int16Type           = Type{Kind: KindInt16}
	Int32Type           = Type{Kind: KindInt32}
	Int64Type           = Type{Kind: KindInt64}
	Float32Type         = Type{Kind: KindFloat32}
	Float64Type         = Type{Kind: KindFloat64}
	StringType          = Type{Kind: KindString}
	BinaryType          = Type{Kind: KindBinary}
	DateType            = Type{Kind: KindDate}
	TimestampMillisType = Type{Kind: KindTimestampMillis}
)

// MaxDecimalPrecision is the widest decimal the codec stores (128-bit).
const MaxDecimalPrecision = 38

// DecimalType returns a decimal type with the given precision and scale.
func DecimalType(precision, scale int32) Type {
	return Type{Kind: KindDecimal, Precision: precision, Scale: scale}
}

func (t Type) String() string {
	if t.Kind == KindDecimal {
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	}
	return t.Kind.String()
}

// Validate checks that t belongs to the closed type set.
func (t Type) Validate() error {
	if _, ok := kindNames[t.Kind]; !ok {
		return newUnsupportedType(t.String(), "semantic")
	}
	if t.Kind == KindDecimal {
		if t.Precision <= 0 || t.Precision > MaxDecimalPrecision {
			return newUnsupportedType(t.String(), "semantic").AddContext("reason", "precision out of range")
		}
		if t.Scale < 0 || t.Scale > t.Precision {
			return newUnsupportedType(t.String(), "semantic").AddContext("reason", "scale out of range")
		}
	}
	return nil
}
