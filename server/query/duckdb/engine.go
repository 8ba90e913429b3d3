package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
)

// ComponentType defines the DuckDB engine component type identifier
const ComponentType = "duckdb"

// DefaultMaxRows caps the rows a single query materializes.
const DefaultMaxRows = 100000

var allowedStatements = []string{"SELECT", "WITH", "DESCRIBE", "SHOW", "EXPLAIN", "SUMMARIZE", "FROM"}

// Result is a fully materialized query result
type Result struct {
	Columns   []string
	Rows      [][]any
	RowCount  int64
	Truncated bool
	Duration  time.Duration
}

// Engine runs read-only SQL over the data files of catalog tables. Tables are
// located by their catalog location and the hive directory layout alone, so
// it only needs the files to be on a local filesystem.
type Engine struct {
	db      *sql.DB
	catalog catalog.Client
	maxRows int
	logger  zerolog.Logger
}

// NewEngine opens an in-memory DuckDB database
func NewEngine(client catalog.Client, logger zerolog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.New(ConnectionFailed, "failed to open DuckDB", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.New(ConnectionFailed, "failed to ping DuckDB", err)
	}

	return &Engine{
		db:      db,
		catalog: client,
		maxRows: DefaultMaxRows,
		logger:  logger.With().Str("component", ComponentType).Logger(),
	}, nil
}

// SetMaxRows changes the result cap; n <= 0 removes it.
func (e *Engine) SetMaxRows(n int) {
	e.maxRows = n
}

// ViewName is the name RegisterTable gives database.table
func ViewName(database, table string) string {
	return database + "_" + table
}

// RegisterTable creates or replaces a view named ViewName(database, table)
// over the table's files. Partition columns come from the directory names
// and are cast back to their catalog types.
func (e *Engine) RegisterTable(ctx context.Context, database, table string) (string, error) {
	h, err := e.catalog.GetTable(ctx, database, table)
	if err != nil {
		return "", err
	}

	stmt, err := viewStatement(h)
	if err != nil {
		return "", err
	}
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return "", errors.New(ViewCreateFailed, "failed to create view over table files", err).
			AddContext("database", database).
			AddContext("table", table).
			AddContext("location", h.Location)
	}

	view := ViewName(database, table)
	e.logger.Debug().Str("view", view).Str("location", h.Location).Msg("Registered table")
	return view, nil
}

func viewStatement(h *catalog.TableHandle) (string, error) {
	glob := quoteString(path.Join(h.Location, "**", "*.parquet"))
	view := quoteName(ViewName(h.Database, h.Name))

	if !h.IsPartitioned() {
		return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)", view, glob), nil
	}

	hiveTypes := make([]string, len(h.PartitionKeys))
	exclude := make([]string, len(h.PartitionKeys))
	casts := make([]string, len(h.PartitionKeys))
	for i, key := range h.PartitionKeys {
		expr, err := partitionColumn(key)
		if err != nil {
			return "", err
		}
		hiveTypes[i] = fmt.Sprintf("%s: 'VARCHAR'", quoteString(key.Name))
		exclude[i] = quoteName(key.Name)
		casts[i] = expr
	}

	return fmt.Sprintf(
		"CREATE OR REPLACE VIEW %s AS SELECT * EXCLUDE (%s), %s FROM read_parquet(%s, hive_partitioning = true, hive_types = {%s})",
		view,
		strings.Join(exclude, ", "),
		strings.Join(casts, ", "),
		glob,
		strings.Join(hiveTypes, ", "),
	), nil
}

// partitionColumn turns the raw directory value back into a typed column,
// mapping the default partition to NULL.
func partitionColumn(key catalog.Column) (string, error) {
	t, err := catalog.ParseType(key.Type, catalog.ReadOptions{})
	if err != nil {
		return "", err
	}
	raw := fmt.Sprintf("NULLIF(%s, %s)", quoteName(key.Name), quoteString(schema.DefaultPartitionName))

	var expr string
	switch t.Kind {
	case schema.KindString:
		expr = raw
	case schema.KindBinary:
		expr = fmt.Sprintf("unhex(%s)", raw)
	default:
		expr = fmt.Sprintf("CAST(%s AS %s)", raw, sqlType(t))
	}
	return fmt.Sprintf("%s AS %s", expr, quoteName(key.Name)), nil
}

func sqlType(t schema.Type) string {
	switch t.Kind {
	case schema.KindBoolean:
		return "BOOLEAN"
	case schema.KindInt16:
		return "SMALLINT"
	case schema.KindInt32:
		return "INTEGER"
	case schema.KindInt64:
		return "BIGINT"
	case schema.KindFloat32:
		return "FLOAT"
	case schema.KindFloat64:
		return "DOUBLE"
	case schema.KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case schema.KindDate:
		return "DATE"
	case schema.KindTimestampMillis:
		return "TIMESTAMP"
	}
	return "VARCHAR"
}

// Query runs a read-only statement and materializes up to the row cap.
func (e *Engine) Query(ctx context.Context, query string) (*Result, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.New(QueryFailed, "query failed", err).AddContext("query", query)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.New(QueryFailed, "failed to read result columns", err)
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		if e.maxRows > 0 && result.RowCount >= int64(e.maxRows) {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.New(ScanFailed, "failed to scan row", err).
				AddContext("row", fmt.Sprintf("%d", result.RowCount))
		}
		result.Rows = append(result.Rows, values)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(QueryFailed, "failed to iterate rows", err)
	}

	result.Duration = time.Since(start)
	if result.Truncated {
		e.logger.Warn().Int("max_rows", e.maxRows).Msg("Query result truncated")
	}
	e.logger.Debug().Int64("rows", result.RowCount).Dur("duration", result.Duration).Msg("Query completed")
	return result, nil
}

// QueryTable registers database.table and runs query against it. The
// placeholder {table} in query is replaced by the view name.
func (e *Engine) QueryTable(ctx context.Context, database, table, query string) (*Result, error) {
	view, err := e.RegisterTable(ctx, database, table)
	if err != nil {
		return nil, err
	}
	return e.Query(ctx, strings.ReplaceAll(query, "{table}", quoteName(view)))
}

// Close closes the DuckDB database
func (e *Engine) Close() error {
	if err := e.db.Close(); err != nil {
		return errors.New(CloseFailed, "failed to close DuckDB", err)
	}
	return nil
}

func validateQuery(query string) error {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	if normalized == "" {
		return errors.New(StatementNotAllowed, "empty query", nil)
	}
	if strings.Contains(strings.TrimSuffix(normalized, ";"), ";") {
		return errors.New(StatementNotAllowed, "multiple statements are not allowed", nil)
	}
	for _, stmt := range allowedStatements {
		if strings.HasPrefix(normalized, stmt) {
			return nil
		}
	}
	return errors.New(StatementNotAllowed, "only read-only statements are allowed", nil).
		AddContext("statement", strings.Fields(normalized)[0])
}

func quoteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
