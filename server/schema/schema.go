package schema

import (
	"strings"

	"github.com/gear6io/hivewriter/pkg/errors"
)

// Field is a named, typed column of a Struct.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
}

// NewField returns a nullable field, the default for data read back from storage.
func NewField(name string, t Type) Field {
	return Field{Name: name, Type: t, Nullable: true}
}

// Struct is an ordered list of uniquely named fields. Field order is significant.
type Struct struct {
	Fields []Field
}

func NewStruct(fields ...Field) Struct {
	return Struct{Fields: fields}
}

func (s Struct) Len() int {
	return len(s.Fields)
}

// IndexOf returns the position of the named field, or -1.
func (s Struct) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field.
func (s Struct) Field(name string) (Field, bool) {
	if i := s.IndexOf(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

func (s Struct) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Without returns a copy of s minus the named fields, original order preserved.
func (s Struct) Without(names ...string) Struct {
	if len(names) == 0 {
		return Struct{Fields: append([]Field(nil), s.Fields...)}
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if _, ok := drop[f.Name]; !ok {
			fields = append(fields, f)
		}
	}
	return Struct{Fields: fields}
}

// Equal compares names, types and nullability position by position.
func (s Struct) Equal(other Struct) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// Validate checks name uniqueness and that every type is in the closed set.
func (s Struct) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return errors.New(errors.CommonValidation, "field name cannot be empty", nil)
		}
		if _, dup := seen[f.Name]; dup {
			return errors.New(DuplicateField, "duplicate field name", nil).AddContext("field", f.Name)
		}
		seen[f.Name] = struct{}{}
		if err := f.Type.Validate(); err != nil {
			return errors.AsError(err).AddContext("field", f.Name)
		}
	}
	return nil
}

func (s Struct) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ":" + f.Type.String()
		if !f.Nullable {
			parts[i] += " not null"
		}
	}
	return "struct<" + strings.Join(parts, ", ") + ">"
}
