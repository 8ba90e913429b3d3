package catalog

import "github.com/gear6io/hivewriter/pkg/errors"

// Catalog error codes shared by every Client implementation
var (
	TableNotFound     = errors.MustNewCode("catalog.table_not_found")
	DatabaseNotFound  = errors.MustNewCode("catalog.database_not_found")
	PartitionNotFound = errors.MustNewCode("catalog.partition_not_found")
	AlreadyExists     = errors.MustNewCode("catalog.already_exists")
	Unavailable       = errors.MustNewCode("catalog.unavailable")
	InvalidInput      = errors.MustNewCode("catalog.invalid_input")
)

func NewTableNotFound(database, table string) *errors.Error {
	return errors.New(TableNotFound, "table not found", nil).
		AddContext("database", database).
		AddContext("table", table)
}

func NewDatabaseNotFound(database string) *errors.Error {
	return errors.New(DatabaseNotFound, "database not found", nil).AddContext("database", database)
}

func NewPartitionNotFound(database, table string, values []string) *errors.Error {
	return errors.New(PartitionNotFound, "partition not found", nil).
		AddContext("database", database).
		AddContext("table", table).
		AddContext("values", formatValues(values))
}

func NewTableAlreadyExists(database, table string) *errors.Error {
	return errors.New(AlreadyExists, "table already exists", nil).
		AddContext("database", database).
		AddContext("table", table)
}

// NewUnavailable wraps a transport or storage failure of the catalog.
func NewUnavailable(operation string, cause error) *errors.Error {
	return errors.New(Unavailable, "catalog unavailable", cause).AddContext("operation", operation)
}

func NewInvalidInput(field, message string) *errors.Error {
	return errors.New(InvalidInput, message, nil).AddContext("field", field)
}
