package sqlite

import (
	"time"

	"github.com/uptrace/bun"
)

type databaseModel struct {
	bun.BaseModel `bun:"table:databases,alias:d"`

	ID         int64             `bun:"id,pk,autoincrement"`
	Name       string            `bun:"name,notnull,unique"`
	Location   string            `bun:"location,notnull"`
	Properties map[string]string `bun:"properties,type:text"`
	CreatedAt  time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type tableModel struct {
	bun.BaseModel `bun:"table:tables,alias:t"`

	ID         int64             `bun:"id,pk,autoincrement"`
	DatabaseID int64             `bun:"database_id,notnull,unique:database_table"`
	Name       string            `bun:"name,notnull,unique:database_table"`
	Location   string            `bun:"location,notnull"`
	Kind       string            `bun:"kind,notnull"`
	Format     string            `bun:"format,notnull"`
	Properties map[string]string `bun:"properties,type:text"`
	CreatedAt  time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Columns []*columnModel `bun:"rel:has-many,join:id=table_id"`
}

// columnModel stores data columns and partition keys. Position orders each
// group independently.
type columnModel struct {
	bun.BaseModel `bun:"table:table_columns,alias:c"`

	ID             int64  `bun:"id,pk,autoincrement"`
	TableID        int64  `bun:"table_id,notnull,unique:table_column"`
	Name           string `bun:"name,notnull,unique:table_column"`
	DataType       string `bun:"data_type,notnull"`
	IsNullable     bool   `bun:"is_nullable,notnull"`
	Position       int    `bun:"ordinal_position,notnull"`
	IsPartitionKey bool   `bun:"is_partition_key,notnull"`
}

// partitionModel keys a partition by the JSON array of its formatted values.
type partitionModel struct {
	bun.BaseModel `bun:"table:table_partitions,alias:p"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TableID   int64     `bun:"table_id,notnull,unique:table_partition"`
	Values    string    `bun:"partition_values,notnull,unique:table_partition"`
	Location  string    `bun:"location,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
