package writer

import (
	"context"
	"strings"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/storage"
)

// WriteMode decides what happens to existing files in the written scope
type WriteMode int

const (
	Append WriteMode = iota
	Overwrite
)

func (m WriteMode) String() string {
	if m == Overwrite {
		return "overwrite"
	}
	return "append"
}

// ParseWriteMode accepts "append" and "overwrite"
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(s) {
	case "", "append":
		return Append, nil
	case "overwrite":
		return Overwrite, nil
	}
	return Append, errors.New(InvalidOption, "unknown write mode", nil).AddContext("mode", s)
}

// MismatchPolicy decides what Reconcile does when the table already
// exists with a different definition.
type MismatchPolicy int

const (
	// MismatchFail returns a SchemaMismatch error
	MismatchFail MismatchPolicy = iota
	// MismatchTrust logs a warning and writes against the existing table
	MismatchTrust
)

func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(s) {
	case "", "fail":
		return MismatchFail, nil
	case "trust":
		return MismatchTrust, nil
	}
	return MismatchFail, errors.New(InvalidOption, "unknown schema mismatch policy", nil).AddContext("policy", s)
}

// CreateTableConfig is the desired table definition. It is only used to
// create the table when it does not exist yet.
type CreateTableConfig struct {
	Schema schema.Struct
	Plan   schema.PartitionPlan
	Kind   catalog.TableKind
	Format string
	// Location overrides the catalog default <database location>/<table>
	Location   string
	Properties map[string]string
}

// Codec encodes rows into data files and decodes them back
type Codec interface {
	Encode(ctx context.Context, fs storage.FileSystem, path string, s schema.Struct, records []schema.Record) error
	Open(ctx context.Context, fs storage.FileSystem, path string) (schema.RecordIterator, error)
}
