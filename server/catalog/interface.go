package catalog

import (
	"context"
	"strings"
)

// TableKind distinguishes tables whose data the warehouse owns from tables
// that only reference data elsewhere.
type TableKind string

const (
	Managed  TableKind = "managed"
	External TableKind = "external"
)

// FormatParquet is the only data file format written by hivewriter.
const FormatParquet = "parquet"

// Database is a namespace of tables
type Database struct {
	Name       string
	Location   string
	Properties map[string]string
}

// Column is a catalog-vocabulary column definition
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// TableHandle is the catalog's view of a table. Columns exclude partition
// keys and keep schema order; PartitionKeys keep plan order.
type TableHandle struct {
	Database      string
	Name          string
	Location      string
	Columns       []Column
	PartitionKeys []Column
	Kind          TableKind
	Format        string
	Properties    map[string]string
}

// TableDefinition describes a table to create. An empty Location lets the
// catalog choose <database location>/<table>.
type TableDefinition = TableHandle

// IsPartitioned reports whether the table has partition keys
func (t *TableHandle) IsPartitioned() bool {
	return len(t.PartitionKeys) > 0
}

// PartitionKeyNames returns the partition key names in order
func (t *TableHandle) PartitionKeyNames() []string {
	names := make([]string, len(t.PartitionKeys))
	for i, c := range t.PartitionKeys {
		names[i] = c.Name
	}
	return names
}

// Partition is a registered partition: formatted key values in plan order
// and the directory holding its files.
type Partition struct {
	Values   []string
	Location string
}

// Client is the metadata catalog. Implementations must make CreateDatabase
// and AddPartition idempotent, and return a TableNotFound coded error from
// GetTable for a missing table.
type Client interface {
	CreateDatabase(ctx context.Context, db Database) error
	GetDatabase(ctx context.Context, name string) (*Database, error)
	CreateTable(ctx context.Context, def TableDefinition) (*TableHandle, error)
	GetTable(ctx context.Context, database, table string) (*TableHandle, error)
	DropTable(ctx context.Context, database, table string) error
	// ListPartitions returns at most limit partitions; limit <= 0 means all.
	ListPartitions(ctx context.Context, database, table string, limit int) ([]Partition, error)
	GetPartition(ctx context.Context, database, table string, values []string) (*Partition, error)
	AddPartition(ctx context.Context, database, table string, partition Partition) error
	Close() error
}

func formatValues(values []string) string {
	return "[" + strings.Join(values, ", ") + "]"
}
