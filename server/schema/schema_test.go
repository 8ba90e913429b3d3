package schema

import (
	"testing"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employeeStruct() Struct {
	return NewStruct(
		NewField("name", StringType),
		NewField("title", StringType),
		NewField("salary", DecimalType(10, 2)),
		NewField("employed", BooleanType),
	)
}

func TestStruct(t *testing.T) {
	s := employeeStruct()

	t.Run("IndexOf", func(t *testing.T) {
		assert.Equal(t, 1, s.IndexOf("title"))
		assert.Equal(t, -1, s.IndexOf("missing"))
	})

	t.Run("Without", func(t *testing.T) {
		stripped := s.Without("title")
		assert.Equal(t, []string{"name", "salary", "employed"}, stripped.Names())
		assert.Equal(t, 4, s.Len(), "original must be untouched")
	})

	t.Run("Equal", func(t *testing.T) {
		assert.True(t, s.Equal(employeeStruct()))
		other := employeeStruct()
		other.Fields[2].Type = DecimalType(12, 2)
		assert.False(t, s.Equal(other))
	})

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, s.Validate())

		dup := NewStruct(NewField("a", StringType), NewField("a", Int32Type))
		assert.True(t, errors.Is(dup.Validate(), DuplicateField))

		bad := NewStruct(NewField("d", DecimalType(40, 2)))
		assert.True(t, errors.Is(bad.Validate(), UnsupportedType))

		invalid := NewStruct(Field{Name: "x", Type: Type{Kind: KindInvalid}})
		assert.True(t, errors.Is(invalid.Validate(), UnsupportedType))
	})
}

func TestRecord(t *testing.T) {
	s := employeeStruct()

	_, err := NewRecord(s, "sam")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ValueCountMismatch))

	r, err := NewRecord(s, "sam", "mr", decimal.RequireFromString("100.00"), true)
	require.NoError(t, err)
	require.NoError(t, r.CheckShape())
	assert.True(t, errors.Is(Record{Schema: s, Values: []any{"sam"}}.CheckShape(), ValueCountMismatch))

	v, ok := r.Get("title")
	require.True(t, ok)
	assert.Equal(t, "mr", v)

	stripped := r.Without("title")
	assert.Equal(t, []string{"name", "salary", "employed"}, stripped.Schema.Names())
	assert.Equal(t, []any{"sam", decimal.RequireFromString("100.00"), true}, stripped.Values)

	extended := stripped.Extend([]Field{NewField("title", StringType)}, []any{"mr"})
	assert.Equal(t, []string{"name", "salary", "employed", "title"}, extended.Schema.Names())
	assert.Equal(t, "mr", extended.Values[3])
}

func TestPartitionPlan(t *testing.T) {
	s := employeeStruct()

	require.NoError(t, NewPartitionPlan("title").Validate(s))
	require.NoError(t, NewPartitionPlan().Validate(s))

	err := NewPartitionPlan("department").Validate(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, PartitionKeyNotInSchema))
	assert.Equal(t, "department", errors.GetContext(err)["partition_key"])

	fields, err := NewPartitionPlan("employed", "title").Fields(s)
	require.NoError(t, err)
	assert.Equal(t, "employed", fields[0].Name)
	assert.Equal(t, "title", fields[1].Name)
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(42, Int16Type)
	require.NoError(t, err)
	assert.Equal(t, int16(42), v)

	_, err = Coerce(70000, Int16Type)
	assert.Error(t, err)

	_, err = Coerce(1.5, Int64Type)
	assert.Error(t, err)

	v, err = Coerce("12.345", DecimalType(10, 2))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.35").Equal(v.(decimal.Decimal)))

	ts := time.Date(2024, 3, 1, 10, 11, 12, 999999999, time.FixedZone("x", 3600))
	v, err = Coerce(ts, TimestampMillisType)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 1, 9, 11, 12, 999000000, time.UTC).Equal(v.(time.Time)))

	v, err = Coerce(nil, StringType)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Coerce(1, StringType)
	assert.True(t, errors.Is(err, errors.CommonInvalidInput))
}

func TestFormatAndParseValue(t *testing.T) {
	day := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2023, 12, 31, 23, 59, 1, 5000000, time.UTC)

	cases := []struct {
		name  string
		value any
		typ   Type
		want  string
	}{
		{"bool", true, BooleanType, "true"},
		{"int16", int16(-3), Int16Type, "-3"},
		{"int64", int64(9000000000), Int64Type, "9000000000"},
		{"float64", 1.25, Float64Type, "1.25"},
		{"string", "mr", StringType, "mr"},
		{"binary", []byte{0xca, 0xfe}, BinaryType, "cafe"},
		{"decimal", decimal.RequireFromString("3.5"), DecimalType(5, 2), "3.50"},
		{"date", day, DateType, "2023-12-31"},
		{"timestamp", ts, TimestampMillisType, "2023-12-31 23:59:01.005"},
		{"null", nil, StringType, DefaultPartitionName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatValue(tc.value, tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			back, err := ParseValue(got, tc.typ)
			require.NoError(t, err)
			switch want := tc.value.(type) {
			case time.Time:
				assert.True(t, want.Equal(back.(time.Time)))
			case decimal.Decimal:
				assert.True(t, want.Equal(back.(decimal.Decimal)))
			default:
				assert.Equal(t, tc.value, back)
			}
		})
	}

	_, err := ParseValue("abc", Int32Type)
	assert.True(t, errors.Is(err, InvalidPartitionValue))
}

func TestPartitionPath(t *testing.T) {
	t.Run("Escaping", func(t *testing.T) {
		assert.Equal(t, "a%2Fb%3Dc", EscapePathName("a/b=c"))
		assert.Equal(t, "2023-01-01 10%3A00%3A00.000", EscapePathName("2023-01-01 10:00:00.000"))
		assert.Equal(t, "plain", EscapePathName("plain"))
		assert.Equal(t, "a/b=c", UnescapePathName("a%2Fb%3Dc"))
		assert.Equal(t, "100%", UnescapePathName("100%"))
		assert.Equal(t, "%zz", UnescapePathName("%zz"))
	})

	t.Run("FormatAndParse", func(t *testing.T) {
		fields := []Field{NewField("title", StringType), NewField("day", DateType)}
		formatted, path, err := FormatPartition(fields, []any{"ms/dr", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		assert.Equal(t, []string{"ms/dr", "2024-01-02"}, formatted)
		assert.Equal(t, "title=ms%2Fdr/day=2024-01-02", path)

		keys, values, err := ParsePartitionPath(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"title", "day"}, keys)
		assert.Equal(t, formatted, values)
	})

	t.Run("Null", func(t *testing.T) {
		_, path, err := FormatPartition([]Field{NewField("title", StringType)}, []any{nil})
		require.NoError(t, err)
		assert.Equal(t, "title="+DefaultPartitionName, path)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, _, err := ParsePartitionPath("title")
		assert.True(t, errors.Is(err, InvalidPartitionValue))

		keys, values, err := ParsePartitionPath("")
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.Empty(t, values)
	})

	t.Run("CountMismatch", func(t *testing.T) {
		_, err := PartitionPath([]string{"a"}, nil)
		assert.True(t, errors.Is(err, ValueCountMismatch))
	})
}
