package schema

import (
	"fmt"

	"github.com/gear6io/hivewriter/pkg/errors"
)

// Record is a row: values positionally aligned with the fields of Schema.
type Record struct {
	Schema Struct
	Values []any
}

// NewRecord builds a record, rejecting a value count that does not match the schema.
func NewRecord(s Struct, values ...any) (Record, error) {
	r := Record{Schema: s, Values: values}
	if err := r.CheckShape(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// CheckShape reports a record whose value count differs from its schema.
func (r Record) CheckShape() error {
	if len(r.Values) != len(r.Schema.Fields) {
		return errors.New(ValueCountMismatch, "record value count does not match schema", nil).
			AddContext("fields", fmt.Sprintf("%d", len(r.Schema.Fields))).
			AddContext("values", fmt.Sprintf("%d", len(r.Values)))
	}
	return nil
}

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	i := r.Schema.IndexOf(name)
	if i < 0 {
		return nil, false
	}
	return r.Values[i], true
}

// Without drops the named fields from both schema and values.
func (r Record) Without(names ...string) Record {
	if len(names) == 0 {
		return r
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	fields := make([]Field, 0, len(r.Schema.Fields))
	values := make([]any, 0, len(r.Values))
	for i, f := range r.Schema.Fields {
		if _, ok := drop[f.Name]; ok {
			continue
		}
		fields = append(fields, f)
		values = append(values, r.Values[i])
	}
	return Record{Schema: Struct{Fields: fields}, Values: values}
}

// Extend appends fields and values after the existing ones.
func (r Record) Extend(fields []Field, values []any) Record {
	outFields := make([]Field, 0, len(r.Schema.Fields)+len(fields))
	outFields = append(outFields, r.Schema.Fields...)
	outFields = append(outFields, fields...)

	outValues := make([]any, 0, len(r.Values)+len(values))
	outValues = append(outValues, r.Values...)
	outValues = append(outValues, values...)

	return Record{Schema: Struct{Fields: outFields}, Values: outValues}
}
