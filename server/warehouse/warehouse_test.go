package warehouse

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/config"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/storage/parquet"
	"github.com/gear6io/hivewriter/server/writer"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventSchema() schema.Struct {
	return schema.NewStruct(
		schema.NewField("id", schema.Int64Type),
		schema.NewField("kind", schema.StringType),
	)
}

func events(t *testing.T, kinds ...string) []schema.Record {
	t.Helper()
	out := make([]schema.Record, len(kinds))
	for i, k := range kinds {
		r, err := schema.NewRecord(eventSchema(), int64(i+1), k)
		require.NoError(t, err)
		out[i] = r
	}
	return out
}

func eventTable() writer.CreateTableConfig {
	return writer.CreateTableConfig{Schema: eventSchema(), Plan: schema.NewPartitionPlan("kind")}
}

func writeAndRead(t *testing.T, w *Warehouse) []schema.Record {
	t.Helper()
	ctx := context.Background()

	ww, err := w.NewWriter("ops", "events", eventTable())
	require.NoError(t, err)
	require.NoError(t, ww.Write(ctx, events(t, "click", "view", "click")))
	require.NoError(t, ww.Close())

	require.NoError(t, w.AwaitPartitions(ctx, "ops", "events", [][]string{{"click"}, {"view"}}))

	it, err := w.Reader(catalog.ReadOptions{}).ReadTable(ctx, "ops", "events")
	require.NoError(t, err)
	out, err := schema.Collect(it)
	require.NoError(t, err)
	return out
}

func TestOpen_Filesystem(t *testing.T) {
	root := t.TempDir()
	cfg := config.LoadDefaultConfig()
	cfg.Warehouse.Root = root

	w, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	assert.FileExists(t, filepath.Join(root, ".hivewriter", "catalog.db"))

	out := writeAndRead(t, w)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"id", "kind"}, out[0].Schema.Names())

	entries, err := os.ReadDir(filepath.Join(root, "ops", "events"))
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		dirs = append(dirs, e.Name())
	}
	assert.Equal(t, []string{"kind=click", "kind=view"}, dirs)
}

func TestOpen_Memory(t *testing.T) {
	cfg := config.LoadDefaultConfig()
	cfg.Warehouse.Storage.Type = config.StorageMemory
	cfg.Warehouse.Root = "lake"

	w, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	out := writeAndRead(t, w)
	assert.Len(t, out, 3)

	h, err := w.Catalog().GetTable(context.Background(), "ops", "events")
	require.NoError(t, err)
	assert.Equal(t, "lake/ops/events", h.Location)
}

func TestOpen_S3(t *testing.T) {
	faker := gofakes3.New(s3mem.New())
	server := httptest.NewServer(faker.Server())
	t.Cleanup(server.Close)

	endpoint := strings.TrimPrefix(server.URL, "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	require.NoError(t, client.MakeBucket(context.Background(), "lake", minio.MakeBucketOptions{Region: "us-east-1"}))

	cfg := config.LoadDefaultConfig()
	cfg.Warehouse.Root = "warehouse"
	cfg.Warehouse.Storage.Type = config.StorageS3
	cfg.Warehouse.Storage.S3 = config.S3Config{
		Endpoint: endpoint, Bucket: "lake", Region: "us-east-1", AccessKey: "key", SecretKey: "secret",
	}
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "catalog.db")

	w, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	out := writeAndRead(t, w)
	assert.Len(t, out, 3)

	var keys []string
	for obj := range client.ListObjects(context.Background(), "lake", minio.ListObjectsOptions{Recursive: true}) {
		require.NoError(t, obj.Err)
		keys = append(keys, obj.Key)
	}
	require.Len(t, keys, 2)
	assert.True(t, strings.HasPrefix(keys[0], "warehouse/ops/events/kind=click/hivewriter_"))
}

func TestOpen_InvalidConfig(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		cfg := config.LoadDefaultConfig()
		cfg.Writer.Mode = "upsert"
		_, err := Open(context.Background(), cfg, zerolog.Nop())
		require.Error(t, err)
		assert.True(t, errors.Is(err, config.ErrWriterOptionInvalid))
	})

	t.Run("compression", func(t *testing.T) {
		cfg := config.LoadDefaultConfig()
		cfg.Warehouse.Storage.Type = config.StorageMemory
		cfg.Writer.Compression = "lzo"
		_, err := Open(context.Background(), cfg, zerolog.Nop())
		require.Error(t, err)
		assert.True(t, errors.Is(err, parquet.CompressionUnsupported))
	})
}

func TestWarehouse_WriterOptions(t *testing.T) {
	cfg := config.LoadDefaultConfig()
	cfg.Warehouse.Storage.Type = config.StorageMemory
	cfg.Writer.Mode = config.ModeOverwrite
	cfg.Writer.FileNamer = config.NamerConstant
	cfg.Writer.ConstantFileName = "data.parquet"
	cfg.Writer.SchemaMismatch = config.MismatchTrust
	cfg.Writer.Parallelism = 4
	cfg.Writer.Await = config.AwaitConfig{Timeout: 5 * time.Second, Interval: 3 * time.Second}

	w, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	opts, err := w.WriterOptions()
	require.NoError(t, err)
	assert.Equal(t, writer.Overwrite, opts.Mode)
	assert.Equal(t, writer.MismatchTrust, opts.MismatchPolicy)
	assert.Equal(t, 4, opts.Parallelism)
	assert.Equal(t, 10000, opts.PartitionCacheSize)
	assert.False(t, opts.CloseClients)

	p := w.AwaitPolicy()
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.Equal(t, 3*time.Second, p.Interval)
	assert.Equal(t, 3*time.Second, p.MaxInterval)
}

func TestWarehouse_SessionOverrides(t *testing.T) {
	ctx := context.Background()
	cfg := config.LoadDefaultConfig()
	cfg.Warehouse.Storage.Type = config.StorageMemory

	w, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	for i := 0; i < 2; i++ {
		ww, err := w.NewWriter("ops", "events", eventTable(), func(o *writer.Options) {
			o.Mode = writer.Overwrite
			o.CloseClients = true
		})
		require.NoError(t, err)
		require.NoError(t, ww.Write(ctx, events(t, "click", "click")))
		require.NoError(t, ww.Close())
	}

	// the shared catalog survived both sessions
	it, err := w.Reader(catalog.ReadOptions{}).ReadTable(ctx, "ops", "events")
	require.NoError(t, err)
	out, err := schema.Collect(it)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestWarehouse_DropTable(t *testing.T) {
	ctx := context.Background()
	cfg := config.LoadDefaultConfig()
	cfg.Warehouse.Root = t.TempDir()

	w, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	writeAndRead(t, w)
	location := filepath.Join(cfg.Warehouse.Root, "ops", "events")
	assert.DirExists(t, location)

	require.NoError(t, w.DropTable(ctx, "ops", "events", false))
	assert.DirExists(t, location, "data stays without purge")

	_, err = w.Catalog().GetTable(ctx, "ops", "events")
	assert.True(t, errors.Is(err, catalog.TableNotFound))

	writeAndRead(t, w)
	require.NoError(t, w.DropTable(ctx, "ops", "events", true))
	assert.NoDirExists(t, location)

	err = w.DropTable(ctx, "ops", "events", true)
	assert.True(t, errors.Is(err, catalog.TableNotFound))
}
