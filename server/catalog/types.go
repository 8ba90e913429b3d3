package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gear6io/hivewriter/server/schema"
)

// ReadOptions controls how catalog types are read back into semantic types.
type ReadOptions struct {
	// DecimalAsBinary maps decimal(p,s) to Binary. Lossy: the scale is dropped.
	DecimalAsBinary bool
}

var catalogTypeNames = map[schema.Kind]string{
	schema.KindBoolean:         "boolean",
	schema.KindInt16:           "smallint",
	schema.KindInt32:           "int",
	schema.KindInt64:           "bigint",
	schema.KindFloat32:         "float",
	schema.KindFloat64:         "double",
	schema.KindString:          "string",
	schema.KindBinary:          "binary",
	schema.KindDate:            "date",
	schema.KindTimestampMillis: "timestamp",
}

var catalogTypes = func() map[string]schema.Type {
	m := make(map[string]schema.Type, len(catalogTypeNames))
	for kind, name := range catalogTypeNames {
		m[name] = schema.Type{Kind: kind}
	}
	return m
}()

// TypeName returns the catalog type name for t
func TypeName(t schema.Type) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if t.Kind == schema.KindDecimal {
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale), nil
	}
	return catalogTypeNames[t.Kind], nil
}

// ParseType reads a catalog type name
func ParseType(name string, opts ReadOptions) (schema.Type, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	if t, ok := catalogTypes[normalized]; ok {
		return t, nil
	}
	if strings.HasPrefix(normalized, "decimal(") && strings.HasSuffix(normalized, ")") {
		if opts.DecimalAsBinary {
			return schema.BinaryType, nil
		}
		ps := strings.Split(strings.TrimSuffix(strings.TrimPrefix(normalized, "decimal("), ")"), ",")
		if len(ps) == 2 {
			p, perr := strconv.ParseInt(ps[0], 10, 32)
			s, serr := strconv.ParseInt(ps[1], 10, 32)
			if perr == nil && serr == nil {
				t := schema.DecimalType(int32(p), int32(s))
				if t.Validate() == nil {
					return t, nil
				}
			}
		}
	}
	return schema.Type{}, schema.NewUnsupportedType(name, "catalog")
}

// ToColumns converts fields to catalog columns, preserving order and nullability
func ToColumns(fields []schema.Field) ([]Column, error) {
	cols := make([]Column, len(fields))
	for i, f := range fields {
		typeName, err := TypeName(f.Type)
		if err != nil {
			return nil, err
		}
		cols[i] = Column{Name: f.Name, Type: typeName, Nullable: f.Nullable}
	}
	return cols, nil
}

// ToFields reverses ToColumns
func ToFields(cols []Column, opts ReadOptions) ([]schema.Field, error) {
	fields := make([]schema.Field, len(cols))
	for i, c := range cols {
		t, err := ParseType(c.Type, opts)
		if err != nil {
			return nil, err
		}
		fields[i] = schema.Field{Name: c.Name, Type: t, Nullable: c.Nullable}
	}
	return fields, nil
}

// TableSchema returns the data columns and partition key fields of a table.
func TableSchema(t *TableHandle, opts ReadOptions) (data schema.Struct, keys []schema.Field, err error) {
	dataFields, err := ToFields(t.Columns, opts)
	if err != nil {
		return schema.Struct{}, nil, err
	}
	keys, err = ToFields(t.PartitionKeys, opts)
	if err != nil {
		return schema.Struct{}, nil, err
	}
	return schema.NewStruct(dataFields...), keys, nil
}
