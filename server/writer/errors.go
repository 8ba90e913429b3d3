package writer

import (
	"github.com/gear6io/hivewriter/pkg/errors"
)

// Writer error codes
var (
	Closed               = errors.MustNewCode("writer.closed")
	SchemaMismatch       = errors.MustNewCode("writer.schema_mismatch")
	InvalidOption        = errors.MustNewCode("writer.invalid_option")
	RegistrationFailed   = errors.MustNewCode("writer.registration_failed")
	PartitionsNotVisible = errors.MustNewCode("writer.partitions_not_visible")
)

func newWriterClosed(database, table string) *errors.Error {
	return errors.New(Closed, "writer is closed", nil).
		AddContext("database", database).
		AddContext("table", table)
}

func newSchemaMismatch(database, table, what string) *errors.Error {
	return errors.New(SchemaMismatch, "table definition does not match", nil).
		AddContext("database", database).
		AddContext("table", table).
		AddContext("mismatch", what)
}

func newInvalidOption(option, message string) *errors.Error {
	return errors.New(InvalidOption, message, nil).AddContext("option", option)
}
