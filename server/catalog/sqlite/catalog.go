package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/paths"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// ComponentType defines the SQLite catalog component type identifier
const ComponentType = "catalog"

// Catalog implements catalog.Client on a local SQLite database through bun
type Catalog struct {
	db          *bun.DB
	pathManager paths.PathManager
	logger      zerolog.Logger
}

var _ catalog.Client = (*Catalog)(nil)

// NewCatalog opens (creating if needed) the SQLite catalog at dbPath and
// migrates it to the latest schema.
func NewCatalog(ctx context.Context, dbPath string, pathManager paths.PathManager, logger zerolog.Logger) (*Catalog, error) {
	if dbPath == "" {
		return nil, catalog.NewInvalidInput("catalog_path", "catalog path is required for SQLite catalog")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.New(ErrCatalogDirectoryCreateFailed, "failed to create catalog directory", err).AddContext("path", dbPath)
	}

	sqldb, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.New(ErrDatabaseOpenFailed, "failed to open SQLite database", err).AddContext("path", dbPath)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between our own goroutines.
	sqldb.SetMaxOpenConns(1)

	c := NewCatalogWithDB(bun.NewDB(sqldb, sqlitedialect.New()), pathManager, logger)
	if err := c.Migrate(ctx); err != nil {
		c.db.Close()
		return nil, err
	}

	c.logger.Debug().Str("path", dbPath).Msg("SQLite catalog ready")
	return c, nil
}

// NewCatalogWithDB wraps an existing bun database without migrating it
func NewCatalogWithDB(db *bun.DB, pathManager paths.PathManager, logger zerolog.Logger) *Catalog {
	return &Catalog{
		db:          db,
		pathManager: pathManager,
		logger:      logger.With().Str("component", "sqlite-catalog").Logger(),
	}
}

// Migrate applies pending schema migrations
func (c *Catalog) Migrate(ctx context.Context) error {
	m := &migrator{db: c.db, logger: c.logger}
	return m.MigrateToLatest(ctx)
}

// GetType returns the component type identifier
func (c *Catalog) GetType() string {
	return ComponentType
}

// Close closes the database connection
func (c *Catalog) Close() error {
	if err := c.db.Close(); err != nil {
		return errors.New(ErrDatabaseCloseFailed, "failed to close SQLite catalog", err)
	}
	return nil
}

// CreateDatabase registers a database; an existing database is left untouched
func (c *Catalog) CreateDatabase(ctx context.Context, db catalog.Database) error {
	if strings.TrimSpace(db.Name) == "" {
		return catalog.NewInvalidInput("database", "database name cannot be empty")
	}

	location := db.Location
	if location == "" {
		location = c.pathManager.GetDatabasePath(db.Name)
	}

	model := &databaseModel{
		Name:       db.Name,
		Location:   location,
		Properties: db.Properties,
	}
	if _, err := c.db.NewInsert().
		Model(model).
		On("CONFLICT (name) DO NOTHING").
		Returning("NULL").
		Exec(ctx); err != nil {
		return catalog.NewUnavailable("create_database", err).AddContext("database", db.Name)
	}
	return nil
}

// GetDatabase loads a database by name
func (c *Catalog) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	model, err := c.findDatabase(ctx, c.db, name)
	if err != nil {
		return nil, err
	}
	return &catalog.Database{
		Name:       model.Name,
		Location:   model.Location,
		Properties: model.Properties,
	}, nil
}

// CreateTable registers a table with its data columns and partition keys
func (c *Catalog) CreateTable(ctx context.Context, def catalog.TableDefinition) (*catalog.TableHandle, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, catalog.NewInvalidInput("table", "table name cannot be empty")
	}

	handle := def
	if handle.Kind == "" {
		handle.Kind = catalog.Managed
	}
	if handle.Format == "" {
		handle.Format = catalog.FormatParquet
	}

	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dbModel, err := c.findDatabase(ctx, tx, def.Database)
		if err != nil {
			return err
		}

		if handle.Location == "" {
			handle.Location = path.Join(dbModel.Location, def.Name)
		}

		table := &tableModel{
			DatabaseID: dbModel.ID,
			Name:       def.Name,
			Location:   handle.Location,
			Kind:       string(handle.Kind),
			Format:     handle.Format,
			Properties: handle.Properties,
		}
		if _, err := tx.NewInsert().Model(table).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return catalog.NewTableAlreadyExists(def.Database, def.Name)
			}
			return catalog.NewUnavailable("create_table", err)
		}

		columns := make([]*columnModel, 0, len(def.Columns)+len(def.PartitionKeys))
		for i, col := range def.Columns {
			columns = append(columns, newColumnModel(table.ID, i, col, false))
		}
		for i, col := range def.PartitionKeys {
			columns = append(columns, newColumnModel(table.ID, i, col, true))
		}
		if len(columns) > 0 {
			if _, err := tx.NewInsert().Model(&columns).Exec(ctx); err != nil {
				if isUniqueViolation(err) {
					return catalog.NewInvalidInput("columns", "duplicate column name").
						AddContext("table", def.Name)
				}
				return catalog.NewUnavailable("create_table", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("database", handle.Database).
		Str("table", handle.Name).
		Str("location", handle.Location).
		Int("partition_keys", len(handle.PartitionKeys)).
		Msg("Created table")
	return &handle, nil
}

// GetTable loads a table with its columns in schema order
func (c *Catalog) GetTable(ctx context.Context, database, table string) (*catalog.TableHandle, error) {
	model, err := c.loadTable(ctx, database, table)
	if err != nil {
		return nil, err
	}

	handle := &catalog.TableHandle{
		Database:   database,
		Name:       model.Name,
		Location:   model.Location,
		Kind:       catalog.TableKind(model.Kind),
		Format:     model.Format,
		Properties: model.Properties,
	}
	for _, col := range model.Columns {
		column := catalog.Column{Name: col.Name, Type: col.DataType, Nullable: col.IsNullable}
		if col.IsPartitionKey {
			handle.PartitionKeys = append(handle.PartitionKeys, column)
		} else {
			handle.Columns = append(handle.Columns, column)
		}
	}
	return handle, nil
}

// DropTable removes a table and everything registered under it. Data files
// are not touched.
func (c *Catalog) DropTable(ctx context.Context, database, table string) error {
	return c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		id, err := c.tableID(ctx, tx, database, table)
		if err != nil {
			return err
		}

		if _, err := tx.NewDelete().Model((*partitionModel)(nil)).Where("table_id = ?", id).Exec(ctx); err != nil {
			return catalog.NewUnavailable("drop_table", err)
		}
		if _, err := tx.NewDelete().Model((*columnModel)(nil)).Where("table_id = ?", id).Exec(ctx); err != nil {
			return catalog.NewUnavailable("drop_table", err)
		}
		if _, err := tx.NewDelete().Model((*tableModel)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return catalog.NewUnavailable("drop_table", err)
		}
		return nil
	})
}

// ListPartitions returns partitions in registration order
func (c *Catalog) ListPartitions(ctx context.Context, database, table string, limit int) ([]catalog.Partition, error) {
	id, err := c.tableID(ctx, c.db, database, table)
	if err != nil {
		return nil, err
	}

	var models []partitionModel
	q := c.db.NewSelect().
		Model(&models).
		Where("table_id = ?", id).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, catalog.NewUnavailable("list_partitions", err)
	}

	partitions := make([]catalog.Partition, 0, len(models))
	for _, m := range models {
		values, err := decodeValues(m.Values)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, catalog.Partition{Values: values, Location: m.Location})
	}
	return partitions, nil
}

// GetPartition looks up one partition by its formatted values
func (c *Catalog) GetPartition(ctx context.Context, database, table string, values []string) (*catalog.Partition, error) {
	id, err := c.tableID(ctx, c.db, database, table)
	if err != nil {
		return nil, err
	}
	key, err := encodeValues(values)
	if err != nil {
		return nil, err
	}

	model := new(partitionModel)
	err = c.db.NewSelect().
		Model(model).
		Where("table_id = ?", id).
		Where("partition_values = ?", key).
		Scan(ctx)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, catalog.NewPartitionNotFound(database, table, values)
	}
	if err != nil {
		return nil, catalog.NewUnavailable("get_partition", err)
	}
	return &catalog.Partition{Values: values, Location: model.Location}, nil
}

// AddPartition registers a partition; registering it again is a no-op
func (c *Catalog) AddPartition(ctx context.Context, database, table string, partition catalog.Partition) error {
	model, err := c.loadTable(ctx, database, table)
	if err != nil {
		return err
	}

	keys := 0
	for _, col := range model.Columns {
		if col.IsPartitionKey {
			keys++
		}
	}
	if len(partition.Values) != keys {
		return catalog.NewInvalidInput("values", "partition value count does not match partition keys").
			AddContext("table", table)
	}

	key, err := encodeValues(partition.Values)
	if err != nil {
		return err
	}

	if _, err := c.db.NewInsert().
		Model(&partitionModel{
			TableID:  model.ID,
			Values:   key,
			Location: partition.Location,
		}).
		On("CONFLICT (table_id, partition_values) DO NOTHING").
		Returning("NULL").
		Exec(ctx); err != nil {
		return catalog.NewUnavailable("add_partition", err).
			AddContext("database", database).
			AddContext("table", table)
	}
	return nil
}

func (c *Catalog) loadTable(ctx context.Context, database, table string) (*tableModel, error) {
	model := new(tableModel)
	err := c.db.NewSelect().
		Model(model).
		Relation("Columns", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("is_partition_key ASC", "ordinal_position ASC")
		}).
		Join("JOIN databases AS d ON d.id = t.database_id").
		Where("d.name = ?", database).
		Where("t.name = ?", table).
		Scan(ctx)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, catalog.NewTableNotFound(database, table)
	}
	if err != nil {
		return nil, catalog.NewUnavailable("get_table", err).
			AddContext("database", database).
			AddContext("table", table)
	}
	return model, nil
}

func (c *Catalog) findDatabase(ctx context.Context, db bun.IDB, name string) (*databaseModel, error) {
	model := new(databaseModel)
	err := db.NewSelect().Model(model).Where("name = ?", name).Scan(ctx)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, catalog.NewDatabaseNotFound(name)
	}
	if err != nil {
		return nil, catalog.NewUnavailable("get_database", err).AddContext("database", name)
	}
	return model, nil
}

func (c *Catalog) tableID(ctx context.Context, db bun.IDB, database, table string) (int64, error) {
	var id int64
	err := db.NewSelect().
		Model((*tableModel)(nil)).
		ColumnExpr("t.id").
		Join("JOIN databases AS d ON d.id = t.database_id").
		Where("d.name = ?", database).
		Where("t.name = ?", table).
		Scan(ctx, &id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, catalog.NewTableNotFound(database, table)
	}
	if err != nil {
		return 0, catalog.NewUnavailable("get_table", err).
			AddContext("database", database).
			AddContext("table", table)
	}
	return id, nil
}

func newColumnModel(tableID int64, position int, col catalog.Column, partitionKey bool) *columnModel {
	return &columnModel{
		TableID:        tableID,
		Name:           col.Name,
		DataType:       col.Type,
		IsNullable:     col.Nullable,
		Position:       position,
		IsPartitionKey: partitionKey,
	}
}

func encodeValues(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", errors.New(ErrValuesEncodingFailed, "failed to encode partition values", err)
	}
	return string(data), nil
}

func decodeValues(data string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, errors.New(ErrValuesEncodingFailed, "failed to decode partition values", err).AddContext("values", data)
	}
	return values, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return stderrors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
