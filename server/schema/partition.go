package schema

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultPartitionName is the directory value used for a null partition key.
const DefaultPartitionName = "__HIVE_DEFAULT_PARTITION__"

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05.000"
)

// PartitionPlan is the ordered list of partition key field names.
// An empty plan means the table is unpartitioned.
type PartitionPlan struct {
	Keys []string
}

func NewPartitionPlan(keys ...string) PartitionPlan {
	return PartitionPlan{Keys: keys}
}

func (p PartitionPlan) IsEmpty() bool {
	return len(p.Keys) == 0
}

// Validate checks that every key names a field of s, once.
func (p PartitionPlan) Validate(s Struct) error {
	seen := make(map[string]struct{}, len(p.Keys))
	for _, key := range p.Keys {
		if s.IndexOf(key) < 0 {
			return NewPartitionKeyNotInSchema(key)
		}
		if _, dup := seen[key]; dup {
			return errors.New(DuplicateField, "duplicate partition key", nil).AddContext("partition_key", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Fields returns the key fields of s in plan order.
func (p PartitionPlan) Fields(s Struct) ([]Field, error) {
	if err := p.Validate(s); err != nil {
		return nil, err
	}
	fields := make([]Field, len(p.Keys))
	for i, key := range p.Keys {
		fields[i], _ = s.Field(key)
	}
	return fields, nil
}

// FormatValue renders a partition value the way it appears in a directory
// name and in the catalog, before path escaping.
func FormatValue(value any, t Type) (string, error) {
	if value == nil {
		return DefaultPartitionName, nil
	}
	v, err := Coerce(value, t)
	if err != nil {
		return "", err
	}
	switch t.Kind {
	case KindBoolean:
		return strconv.FormatBool(v.(bool)), nil
	case KindInt16:
		return strconv.FormatInt(int64(v.(int16)), 10), nil
	case KindInt32:
		return strconv.FormatInt(int64(v.(int32)), 10), nil
	case KindInt64:
		return strconv.FormatInt(v.(int64), 10), nil
	case KindFloat32:
		return strconv.FormatFloat(float64(v.(float32)), 'g', -1, 32), nil
	case KindFloat64:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
	case KindString:
		return v.(string), nil
	case KindBinary:
		return hex.EncodeToString(v.([]byte)), nil
	case KindDecimal:
		return v.(decimal.Decimal).StringFixed(t.Scale), nil
	case KindDate:
		return v.(time.Time).Format(DateLayout), nil
	case KindTimestampMillis:
		return v.(time.Time).Format(TimestampLayout), nil
	}
	return "", newUnsupportedType(t.String(), "semantic")
}

// ParseValue reverses FormatValue.
func ParseValue(s string, t Type) (any, error) {
	if s == DefaultPartitionName {
		return nil, nil
	}
	var (
		v   any
		err error
	)
	switch t.Kind {
	case KindBoolean:
		v, err = strconv.ParseBool(s)
	case KindInt16:
		var i int64
		i, err = strconv.ParseInt(s, 10, 16)
		v = int16(i)
	case KindInt32:
		var i int64
		i, err = strconv.ParseInt(s, 10, 32)
		v = int32(i)
	case KindInt64:
		v, err = strconv.ParseInt(s, 10, 64)
	case KindFloat32:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		v = float32(f)
	case KindFloat64:
		v, err = strconv.ParseFloat(s, 64)
	case KindString:
		v = s
	case KindBinary:
		v, err = hex.DecodeString(s)
	case KindDecimal:
		v, err = decimal.NewFromString(s)
	case KindDate:
		v, err = time.ParseInLocation(DateLayout, s, time.UTC)
	case KindTimestampMillis:
		v, err = time.ParseInLocation(TimestampLayout, s, time.UTC)
	default:
		return nil, newUnsupportedType(t.String(), "semantic")
	}
	if err != nil {
		return nil, errors.New(InvalidPartitionValue, "cannot parse partition value", err).
			AddContext("value", s).
			AddContext("type", t.String())
	}
	return v, nil
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return true
	}
	return strings.IndexByte("\"#%'*/:=?\\{[]^", c) >= 0
}

// EscapePathName applies Hive directory-name escaping (%XX, uppercase hex).
func EscapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapePathName reverses EscapePathName. Malformed sequences are kept literally.
func UnescapePathName(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// PartitionPath builds "k1=v1/k2=v2" from already formatted values.
func PartitionPath(keys, values []string) (string, error) {
	if len(keys) != len(values) {
		return "", errors.New(ValueCountMismatch, "partition key and value counts differ", nil).
			AddContext("keys", strconv.Itoa(len(keys))).
			AddContext("values", strconv.Itoa(len(values)))
	}
	parts := make([]string, len(keys))
	for i := range keys {
		parts[i] = EscapePathName(keys[i]) + "=" + EscapePathName(values[i])
	}
	return strings.Join(parts, "/"), nil
}

// FormatPartition formats raw key values of the given fields and joins them into a path.
func FormatPartition(fields []Field, values []any) (formatted []string, path string, err error) {
	if len(fields) != len(values) {
		return nil, "", errors.New(ValueCountMismatch, "partition field and value counts differ", nil)
	}
	keys := make([]string, len(fields))
	formatted = make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Name
		if formatted[i], err = FormatValue(values[i], f.Type); err != nil {
			return nil, "", errors.AsError(err).AddContext("partition_key", f.Name)
		}
	}
	path, err = PartitionPath(keys, formatted)
	return formatted, path, err
}

// ParsePartitionPath splits "k1=v1/k2=v2" into unescaped keys and values.
func ParsePartitionPath(path string) (keys, values []string, err error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil, nil
	}
	for _, seg := range strings.Split(path, "/") {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			return nil, nil, errors.New(InvalidPartitionValue, "partition directory is not key=value", nil).
				AddContext("segment", seg)
		}
		keys = append(keys, UnescapePathName(k))
		values = append(values, UnescapePathName(v))
	}
	return keys, values, nil
}
