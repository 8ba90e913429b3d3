package duckdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/catalog/sqlite"
	"github.com/gear6io/hivewriter/server/paths"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/storage/filesystem"
	"github.com/gear6io/hivewriter/server/storage/parquet"
	"github.com/gear6io/hivewriter/server/writer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	catalog *sqlite.Catalog
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	pm := paths.NewManager(root)

	cat, err := sqlite.NewCatalog(context.Background(), pm.GetCatalogDBPath(), pm, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	e, err := NewEngine(cat, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	return &fixture{catalog: cat, engine: e}
}

func (f *fixture) write(t *testing.T, table string, cfg writer.CreateTableConfig, records []schema.Record) {
	t.Helper()
	codec, err := parquet.NewCodec(parquet.Options{}, zerolog.Nop())
	require.NoError(t, err)

	w := writer.NewWriter("hr", table, cfg, f.catalog, filesystem.NewFileStorage(), codec, writer.Options{})
	require.NoError(t, w.Write(context.Background(), records))
	require.NoError(t, w.Close())
}

func employeeRecords(t *testing.T) (schema.Struct, []schema.Record) {
	t.Helper()
	s := schema.NewStruct(
		schema.NewField("name", schema.StringType),
		schema.NewField("title", schema.StringType),
		schema.NewField("salary", schema.Float64Type),
		schema.NewField("employed", schema.BooleanType),
	)
	rows := [][]any{
		{"tom", "mr", 4.0, true},
		{"lucy", "ms", 5.0, false},
		{"mike", "mr", 2.0, true},
		{"laura", "ms", 1.0, true},
		{"kelly", "ms", 3.0, false},
	}
	out := make([]schema.Record, len(rows))
	for i, r := range rows {
		rec, err := schema.NewRecord(s, r...)
		require.NoError(t, err)
		out[i] = rec
	}
	return s, out
}

func TestEngine_PartitionedTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, records := employeeRecords(t)
	f.write(t, "employees", writer.CreateTableConfig{Schema: s, Plan: schema.NewPartitionPlan("title")}, records)

	res, err := f.engine.QueryTable(ctx, "hr", "employees",
		"SELECT title, count(*) AS n, sum(salary) AS total FROM {table} GROUP BY title ORDER BY title")
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "n", "total"}, res.Columns)
	require.Equal(t, int64(2), res.RowCount)
	assert.Equal(t, []any{"mr", int64(2), 6.0}, res.Rows[0])
	assert.Equal(t, []any{"ms", int64(3), 9.0}, res.Rows[1])

	res, err = f.engine.Query(ctx, `SELECT * FROM "hr_employees" LIMIT 1`)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "salary", "employed", "title"}, res.Columns)
}

func TestEngine_UnpartitionedTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, records := employeeRecords(t)
	f.write(t, "staff", writer.CreateTableConfig{Schema: s}, records)

	res, err := f.engine.QueryTable(ctx, "hr", "staff", "SELECT name FROM {table}")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.RowCount)
}

func TestEngine_TypedPartitionColumns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s := schema.NewStruct(
		schema.NewField("id", schema.Int64Type),
		schema.NewField("day", schema.DateType),
		schema.NewField("shard", schema.Int16Type),
	)
	day := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	a, err := schema.NewRecord(s, int64(1), day, int16(3))
	require.NoError(t, err)
	b, err := schema.NewRecord(s, int64(2), nil, int16(4))
	require.NoError(t, err)
	f.write(t, "events", writer.CreateTableConfig{Schema: s, Plan: schema.NewPartitionPlan("day", "shard")}, []schema.Record{a, b})

	res, err := f.engine.QueryTable(ctx, "hr", "events", "SELECT id, day, shard FROM {table} ORDER BY id")
	require.NoError(t, err)
	require.Equal(t, int64(2), res.RowCount)

	got, ok := res.Rows[0][1].(time.Time)
	require.True(t, ok)
	assert.True(t, day.Equal(got))
	assert.Equal(t, int16(3), res.Rows[0][2])
	assert.Nil(t, res.Rows[1][1])
	assert.Equal(t, int16(4), res.Rows[1][2])
}

func TestEngine_MaxRows(t *testing.T) {
	f := newFixture(t)
	f.engine.SetMaxRows(3)

	res, err := f.engine.Query(context.Background(), "SELECT * FROM range(10)")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowCount)
	assert.True(t, res.Truncated)
}

func TestEngine_RejectsWrites(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{
		"",
		"CREATE TABLE x (id INT)",
		"COPY (SELECT 1) TO '/tmp/out.csv'",
		"SELECT 1; DROP TABLE x",
	} {
		_, err := f.engine.Query(context.Background(), q)
		require.Error(t, err, q)
		assert.True(t, errors.Is(err, StatementNotAllowed), q)
	}

	_, err := f.engine.Query(context.Background(), "SELECT 1;")
	assert.NoError(t, err)
}

func TestEngine_MissingTable(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.RegisterTable(context.Background(), "hr", "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.TableNotFound))
}

func TestViewStatement(t *testing.T) {
	h := &catalog.TableHandle{
		Database: "hr",
		Name:     "o'brien",
		Location: filepath.ToSlash("/lake/hr/o'brien"),
		PartitionKeys: []catalog.Column{
			{Name: "title", Type: "string"},
			{Name: "key", Type: "binary"},
			{Name: "amount", Type: "decimal(10,2)"},
		},
	}
	stmt, err := viewStatement(h)
	require.NoError(t, err)
	assert.Contains(t, stmt, `VIEW "hr_o'brien"`)
	assert.Contains(t, stmt, `read_parquet('/lake/hr/o''brien/**/*.parquet', hive_partitioning = true`)
	assert.Contains(t, stmt, `EXCLUDE ("title", "key", "amount")`)
	assert.Contains(t, stmt, `unhex(NULLIF("key", '__HIVE_DEFAULT_PARTITION__')) AS "key"`)
	assert.Contains(t, stmt, `CAST(NULLIF("amount", '__HIVE_DEFAULT_PARTITION__') AS DECIMAL(10,2)) AS "amount"`)

	h.PartitionKeys = []catalog.Column{{Name: "x", Type: "interval"}}
	_, err = viewStatement(h)
	assert.True(t, errors.Is(err, schema.UnsupportedType))
}
