package duckdb

import (
	"github.com/gear6io/hivewriter/pkg/errors"
)

// DuckDB engine error codes
var (
	ConnectionFailed    = errors.MustNewCode("duckdb.connection_failed")
	StatementNotAllowed = errors.MustNewCode("duckdb.statement_not_allowed")
	ViewCreateFailed    = errors.MustNewCode("duckdb.view_create_failed")
	QueryFailed         = errors.MustNewCode("duckdb.query_failed")
	ScanFailed          = errors.MustNewCode("duckdb.scan_failed")
	CloseFailed         = errors.MustNewCode("duckdb.close_failed")
)
