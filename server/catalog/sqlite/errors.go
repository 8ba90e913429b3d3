package sqlite

import "github.com/gear6io/hivewriter/pkg/errors"

// SQLite catalog-specific error codes
var (
	ErrCatalogDirectoryCreateFailed = errors.MustNewCode("catalog.sqlite.directory_create_failed")
	ErrDatabaseOpenFailed           = errors.MustNewCode("catalog.sqlite.database_open_failed")
	ErrDatabaseCloseFailed          = errors.MustNewCode("catalog.sqlite.database_close_failed")
	ErrMigrationFailed              = errors.MustNewCode("catalog.sqlite.migration_failed")
	ErrValuesEncodingFailed         = errors.MustNewCode("catalog.sqlite.values_encoding_failed")
)
