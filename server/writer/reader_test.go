package writer

import (
	"context"
	stderrors "errors"
	"io"
	"testing"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_SkipsHiddenFiles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	w := h.writer(employeeConfig(), Options{})
	require.NoError(t, w.Write(ctx, employees(t)))
	require.NoError(t, w.Close())

	h.fs.WriteFile("warehouse/hr/employees/title=mr/_SUCCESS", nil)
	h.fs.WriteFile("warehouse/hr/employees/title=mr/.part.parquet.tmp", []byte("partial"))

	assert.Len(t, h.readAll(t), 5)
}

func TestReader_TypedPartitionValues(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	s := schema.NewStruct(
		schema.NewField("id", schema.Int64Type),
		schema.NewField("day", schema.DateType),
		schema.NewField("shard", schema.Int16Type),
	)
	day := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	a, err := schema.NewRecord(s, int64(1), day, int16(3))
	require.NoError(t, err)
	b, err := schema.NewRecord(s, int64(2), nil, int16(3))
	require.NoError(t, err)

	w := h.writer(CreateTableConfig{Schema: s, Plan: schema.NewPartitionPlan("day", "shard")}, Options{})
	require.NoError(t, w.Write(ctx, []schema.Record{a, b}))
	require.NoError(t, w.Close())

	partitions, err := h.catalog.ListPartitions(ctx, "hr", "employees", 0)
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, []string{"2024-05-17", "3"}, partitions[0].Values)
	assert.Equal(t, "warehouse/hr/employees/day=2024-05-17/shard=3", partitions[0].Location)
	assert.Equal(t, []string{schema.DefaultPartitionName, "3"}, partitions[1].Values)

	out := h.readAll(t)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"id", "day", "shard"}, out[0].Schema.Names())
	assert.True(t, day.Equal(out[0].Values[1].(time.Time)))
	assert.Equal(t, int16(3), out[0].Values[2])
	assert.Nil(t, out[1].Values[1])
}

func TestReader_MissingTable(t *testing.T) {
	h := newHarness(t)
	_, err := h.reader().ReadTable(context.Background(), "hr", "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.TableNotFound))
}

func TestReader_CloseEarly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	w := h.writer(employeeConfig(), Options{})
	require.NoError(t, w.Write(ctx, employees(t)))
	require.NoError(t, w.Close())

	it, err := h.reader().ReadTable(ctx, "hr", "employees")
	require.NoError(t, err)
	_, err = it.Next()
	require.NoError(t, err)
	require.NoError(t, it.Close())
	require.NoError(t, it.Close())

	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestAwaitPartitions(t *testing.T) {
	ctx := context.Background()
	policy := AwaitPolicy{Timeout: 2 * time.Second, Interval: 5 * time.Millisecond, MaxInterval: 20 * time.Millisecond}

	t.Run("becomes visible", func(t *testing.T) {
		cat := new(mockCatalog)
		cat.On("ListPartitions", ctx, "hr", "employees", 0).
			Return(nil, catalog.NewTableNotFound("hr", "employees")).Once()
		cat.On("ListPartitions", ctx, "hr", "employees", 0).
			Return([]catalog.Partition{{Values: []string{"mr"}}}, nil).Once()
		cat.On("ListPartitions", ctx, "hr", "employees", 0).
			Return([]catalog.Partition{{Values: []string{"mr"}}, {Values: []string{"ms"}}}, nil)

		err := AwaitPartitions(ctx, cat, "hr", "employees", [][]string{{"mr"}, {"ms"}}, policy)
		require.NoError(t, err)
		cat.AssertNumberOfCalls(t, "ListPartitions", 3)
	})

	t.Run("times out", func(t *testing.T) {
		cat := new(mockCatalog)
		cat.On("ListPartitions", ctx, "hr", "employees", 0).Return([]catalog.Partition{}, nil)

		short := AwaitPolicy{Timeout: 50 * time.Millisecond, Interval: 5 * time.Millisecond}
		err := AwaitPartitions(ctx, cat, "hr", "employees", [][]string{{"dr"}}, short)
		require.Error(t, err)
		assert.True(t, errors.Is(err, PartitionsNotVisible))
		assert.Equal(t, "[dr]", errors.GetContext(err)["missing"])
	})

	t.Run("catalog failure stops polling", func(t *testing.T) {
		cat := new(mockCatalog)
		cat.On("ListPartitions", ctx, "hr", "employees", 0).
			Return(nil, catalog.NewUnavailable("list_partitions", stderrors.New("refused")))

		err := AwaitPartitions(ctx, cat, "hr", "employees", [][]string{{"mr"}}, policy)
		require.Error(t, err)
		assert.True(t, errors.Is(err, catalog.Unavailable))
		cat.AssertNumberOfCalls(t, "ListPartitions", 1)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		cat := new(mockCatalog)
		cat.On("ListPartitions", cctx, "hr", "employees", 0).Return([]catalog.Partition{}, nil)

		err := AwaitPartitions(cctx, cat, "hr", "employees", [][]string{{"mr"}}, policy)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("against the sqlite catalog", func(t *testing.T) {
		h := newHarness(t)
		w := h.writer(employeeConfig(), Options{})
		require.NoError(t, w.Write(ctx, employees(t)))
		require.NoError(t, w.Close())
		require.NoError(t, AwaitPartitions(ctx, h.catalog, "hr", "employees", [][]string{{"ms"}, {"mr"}}, policy))
	})
}

