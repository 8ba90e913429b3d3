package schema

import (
	"fmt"
	"math"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/shopspring/decimal"
)

// Value conversion helpers. Integer kinds accept any Go integer that fits and
// whole floats; float kinds accept any Go number.

func AsInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return AsInt64(float64(v))
	default:
		return 0, false
	}
}

func AsInt32(value any) (int32, bool) {
	v, ok := AsInt64(value)
	if !ok || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return int32(v), true
}

func AsInt16(value any) (int16, bool) {
	v, ok := AsInt64(value)
	if !ok || v > math.MaxInt16 || v < math.MinInt16 {
		return 0, false
	}
	return int16(v), true
}

func AsFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if i, ok := AsInt64(value); ok {
		return float64(i), true
	}
	return 0, false
}

func AsFloat32(value any) (float32, bool) {
	if v, ok := value.(float32); ok {
		return v, true
	}
	f, ok := AsFloat64(value)
	return float32(f), ok
}

// AsDecimal accepts decimal.Decimal, decimal strings and Go numbers.
func AsDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return *v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	}
	if i, ok := AsInt64(value); ok {
		return decimal.NewFromInt(i), true
	}
	return decimal.Decimal{}, false
}

// AsDate truncates to UTC midnight of the value's calendar date.
func AsDate(value any) (time.Time, bool) {
	t, ok := value.(time.Time)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// AsTimestamp truncates to millisecond precision in UTC.
func AsTimestamp(value any) (time.Time, bool) {
	t, ok := value.(time.Time)
	if !ok {
		return time.Time{}, false
	}
	return t.UTC().Truncate(time.Millisecond), true
}

// Coerce converts value to the canonical Go representation of t. nil passes through.
func Coerce(value any, t Type) (any, error) {
	if value == nil {
		return nil, nil
	}
	var (
		out any
		ok  bool
	)
	switch t.Kind {
	case KindBoolean:
		out, ok = value.(bool)
	case KindInt16:
		out, ok = AsInt16(value)
	case KindInt32:
		out, ok = AsInt32(value)
	case KindInt64:
		out, ok = AsInt64(value)
	case KindFloat32:
		out, ok = AsFloat32(value)
	case KindFloat64:
		out, ok = AsFloat64(value)
	case KindString:
		out, ok = value.(string)
	case KindBinary:
		out, ok = value.([]byte)
	case KindDecimal:
		var d decimal.Decimal
		if d, ok = AsDecimal(value); ok {
			out = d.Round(t.Scale)
		}
	case KindDate:
		out, ok = AsDate(value)
	case KindTimestampMillis:
		out, ok = AsTimestamp(value)
	default:
		return nil, newUnsupportedType(t.String(), "semantic")
	}
	if !ok {
		return nil, errors.New(errors.CommonInvalidInput, "value does not match field type", nil).
			AddContext("type", t.String()).
			AddContext("value_type", fmt.Sprintf("%T", value))
	}
	return out, nil
}
