package cli

import (
	"bufio"
	"encoding/base64"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// CLI error codes
var (
	InvalidIdentifier = errors.MustNewCode("cli.invalid_identifier")
	InvalidSchema     = errors.MustNewCode("cli.invalid_schema")
	InvalidRecord     = errors.MustNewCode("cli.invalid_record")
	UnsupportedOutput = errors.MustNewCode("cli.unsupported_output")
)

// parseIdentifier splits "database.table"
func parseIdentifier(s string) (database, table string, err error) {
	database, table, ok := strings.Cut(s, ".")
	if !ok || database == "" || table == "" || strings.Contains(table, ".") {
		return "", "", errors.New(InvalidIdentifier, "expected <database>.<table>", nil).AddContext("identifier", s)
	}
	return database, table, nil
}

// parseSchema reads "name:type[!],..." where type is a catalog type name
// and a trailing "!" marks the field required. Commas inside parentheses
// belong to the type, as in decimal(10,2).
func parseSchema(spec string) (schema.Struct, error) {
	var fields []schema.Field
	for _, part := range splitTopLevel(spec) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typeName, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return schema.Struct{}, errors.New(InvalidSchema, "expected <name>:<type>", nil).AddContext("field", part)
		}

		typeName = strings.TrimSpace(typeName)
		required := strings.HasSuffix(typeName, "!")
		t, err := catalog.ParseType(strings.TrimSuffix(typeName, "!"), catalog.ReadOptions{})
		if err != nil {
			return schema.Struct{}, err
		}

		f := schema.NewField(name, t)
		f.Nullable = !required
		fields = append(fields, f)
	}

	s := schema.NewStruct(fields...)
	if len(fields) == 0 {
		return s, errors.New(InvalidSchema, "schema has no fields", nil)
	}
	return s, s.Validate()
}

func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// recordDecoder turns JSON lines into records of a fixed schema. Missing
// and null members become nulls; members not in the schema are ignored.
type recordDecoder struct {
	schema  schema.Struct
	scanner *bufio.Scanner
	line    int
}

func newRecordDecoder(r io.Reader, s schema.Struct) *recordDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &recordDecoder{schema: s, scanner: sc}
}

// Next returns the next record or io.EOF. Blank lines are skipped.
func (d *recordDecoder) Next() (schema.Record, error) {
	for d.scanner.Scan() {
		d.line++
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		rec, err := decodeRecord(line, d.schema)
		if err != nil {
			return schema.Record{}, errors.New(InvalidRecord, "invalid input record", err).
				AddContext("line", strconv.Itoa(d.line))
		}
		return rec, nil
	}
	if err := d.scanner.Err(); err != nil {
		return schema.Record{}, errors.New(InvalidRecord, "failed to read input", err)
	}
	return schema.Record{}, io.EOF
}

func decodeRecord(line string, s schema.Struct) (schema.Record, error) {
	if !gjson.Valid(line) {
		return schema.Record{}, errors.New(InvalidRecord, "not valid JSON", nil)
	}
	doc := gjson.Parse(line)
	if !doc.IsObject() {
		return schema.Record{}, errors.New(InvalidRecord, "expected a JSON object", nil)
	}

	members := make(map[string]gjson.Result)
	doc.ForEach(func(key, value gjson.Result) bool {
		members[key.String()] = value
		return true
	})

	values := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		v, err := jsonValue(members[f.Name], f.Type)
		if err != nil {
			return schema.Record{}, errors.New(InvalidRecord, "invalid field value", err).
				AddContext("field", f.Name).
				AddContext("type", f.Type.String())
		}
		values[i] = v
	}
	return schema.NewRecord(s, values...)
}

func jsonValue(r gjson.Result, t schema.Type) (any, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}

	var v any
	switch t.Kind {
	case schema.KindBoolean:
		if !r.IsBool() {
			return nil, unexpectedJSON("boolean", r)
		}
		v = r.Bool()
	case schema.KindInt16, schema.KindInt32, schema.KindInt64:
		if r.Type != gjson.Number {
			return nil, unexpectedJSON("integer", r)
		}
		n, err := strconv.ParseInt(r.Raw, 10, 64)
		if err != nil {
			return nil, malformedJSON("integer", r, err)
		}
		v = n
	case schema.KindFloat32, schema.KindFloat64:
		if r.Type != gjson.Number {
			return nil, unexpectedJSON("number", r)
		}
		v = r.Float()
	case schema.KindDecimal:
		// numbers keep their literal digits; strings are accepted for exact values
		raw := r.Raw
		if r.Type == gjson.String {
			raw = r.Str
		} else if r.Type != gjson.Number {
			return nil, unexpectedJSON("decimal", r)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, malformedJSON("decimal", r, err)
		}
		v = d
	case schema.KindString:
		if r.Type != gjson.String {
			return nil, unexpectedJSON("string", r)
		}
		v = r.Str
	case schema.KindBinary:
		if r.Type != gjson.String {
			return nil, unexpectedJSON("base64 string", r)
		}
		b, err := base64.StdEncoding.DecodeString(r.Str)
		if err != nil {
			return nil, malformedJSON("base64", r, err)
		}
		v = b
	case schema.KindDate:
		if r.Type != gjson.String {
			return nil, unexpectedJSON("date string", r)
		}
		d, err := time.ParseInLocation(schema.DateLayout, r.Str, time.UTC)
		if err != nil {
			return nil, malformedJSON("date", r, err)
		}
		v = d
	case schema.KindTimestampMillis:
		switch r.Type {
		case gjson.Number:
			v = time.UnixMilli(r.Int()).UTC()
		case gjson.String:
			ts, err := time.Parse(time.RFC3339Nano, r.Str)
			if err != nil {
				return nil, malformedJSON("timestamp", r, err)
			}
			v = ts.UTC()
		default:
			return nil, unexpectedJSON("timestamp", r)
		}
	default:
		return nil, schema.NewUnsupportedType(t.String(), "semantic")
	}
	return schema.Coerce(v, t)
}

func unexpectedJSON(want string, r gjson.Result) *errors.Error {
	return errors.New(InvalidRecord, "expected "+want, nil).AddContext("json_type", r.Type.String())
}

func malformedJSON(want string, r gjson.Result, cause error) *errors.Error {
	return errors.New(InvalidRecord, "malformed "+want, cause).
		AddContext("json_type", r.Type.String()).
		AddContext("value", r.Raw)
}
