package warehouse

import (
	"context"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/catalog/sqlite"
	"github.com/gear6io/hivewriter/server/config"
	"github.com/gear6io/hivewriter/server/paths"
	"github.com/gear6io/hivewriter/server/storage"
	"github.com/gear6io/hivewriter/server/storage/filesystem"
	"github.com/gear6io/hivewriter/server/storage/memory"
	"github.com/gear6io/hivewriter/server/storage/minio"
	"github.com/gear6io/hivewriter/server/storage/parquet"
	"github.com/gear6io/hivewriter/server/writer"
	"github.com/rs/zerolog"
)

// ComponentType defines the warehouse component type identifier
const ComponentType = "warehouse"

// InMemoryCatalog is the catalog path used with memory storage when none is configured.
const InMemoryCatalog = ":memory:"

// Warehouse holds the collaborators shared by every writer and reader of
// one configured warehouse.
type Warehouse struct {
	cfg     *config.Config
	paths   *paths.Manager
	fs      storage.FileSystem
	catalog *sqlite.Catalog
	codec   *parquet.Codec
	logger  zerolog.Logger
}

// Open validates cfg and builds the storage, catalog and codec it names.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Warehouse, error) {
	if cfg == nil {
		cfg = config.LoadDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(config.ErrConfigValidationFailed, "configuration validation failed", err)
	}
	logger = logger.With().Str("component", ComponentType).Logger()

	pm := paths.NewManager(cfg.Warehouse.Root)
	fs, catalogPath, err := openStorage(ctx, cfg, pm)
	if err != nil {
		return nil, err
	}

	codec, err := parquet.NewCodec(parquet.Options{
		Compression: parquet.CompressionOptions{
			Compression:      cfg.Writer.Compression,
			CompressionLevel: cfg.Writer.CompressionLevel,
		},
	}, logger)
	if err != nil {
		return nil, err
	}

	cat, err := sqlite.NewCatalog(ctx, catalogPath, pm, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("storage", cfg.Warehouse.Storage.Type).
		Str("root", pm.GetBasePath()).
		Str("catalog", catalogPath).
		Msg("Warehouse opened")

	return &Warehouse{cfg: cfg, paths: pm, fs: fs, catalog: cat, codec: codec, logger: logger}, nil
}

func openStorage(ctx context.Context, cfg *config.Config, pm *paths.Manager) (storage.FileSystem, string, error) {
	switch cfg.Warehouse.Storage.Type {
	case config.StorageMemory:
		return memory.NewMemoryStorage(), cfg.CatalogPath(InMemoryCatalog), nil

	case config.StorageS3:
		s3 := cfg.Warehouse.Storage.S3
		fs, err := minio.NewS3FileSystem(ctx, minio.Config{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, "", err
		}
		// the catalog stays local; the default lives under the working directory
		return fs, cfg.CatalogPath(paths.NewManager("").GetCatalogDBPath()), nil

	default:
		if err := pm.EnsureDirectoryStructure(); err != nil {
			return nil, "", err
		}
		return filesystem.NewFileStorage(), cfg.CatalogPath(pm.GetCatalogDBPath()), nil
	}
}

// Catalog returns the shared catalog client
func (w *Warehouse) Catalog() catalog.Client { return w.catalog }

// FileSystem returns the storage the warehouse lives on
func (w *Warehouse) FileSystem() storage.FileSystem { return w.fs }

// Paths returns the warehouse path layout
func (w *Warehouse) Paths() *paths.Manager { return w.paths }

// Codec returns the data file codec
func (w *Warehouse) Codec() *parquet.Codec { return w.codec }

// WriterOptions translates the configured writer defaults into writer.Options.
func (w *Warehouse) WriterOptions() (writer.Options, error) {
	wc := w.cfg.Writer

	mode, err := writer.ParseWriteMode(wc.Mode)
	if err != nil {
		return writer.Options{}, err
	}
	namer, err := writer.NewFileNamer(wc.FileNamer, wc.ConstantFileName)
	if err != nil {
		return writer.Options{}, err
	}
	policy, err := writer.ParseMismatchPolicy(wc.SchemaMismatch)
	if err != nil {
		return writer.Options{}, err
	}

	return writer.Options{
		Mode:               mode,
		FileManager:        writer.NewOptimisticFileManager(namer),
		MismatchPolicy:     policy,
		Parallelism:        wc.Parallelism,
		PartitionCacheSize: wc.PartitionCacheSize,
		Logger:             w.logger,
	}, nil
}

// NewWriter opens a writer session on database.table with the configured
// defaults. Each option function may adjust them for this session only.
func (w *Warehouse) NewWriter(database, table string, cfg writer.CreateTableConfig, adjust ...func(*writer.Options)) (*writer.Writer, error) {
	opts, err := w.WriterOptions()
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(&opts)
	}
	// the warehouse owns the shared clients
	opts.CloseClients = false
	return writer.NewWriter(database, table, cfg, w.catalog, w.fs, w.codec, opts), nil
}

// Reader returns a reader over the warehouse's tables
func (w *Warehouse) Reader(opts catalog.ReadOptions) *writer.Reader {
	return writer.NewReader(w.catalog, w.fs, w.codec, opts, w.logger)
}

// AwaitPolicy returns the configured partition visibility bounds
func (w *Warehouse) AwaitPolicy() writer.AwaitPolicy {
	p := writer.DefaultAwaitPolicy()
	p.Timeout = w.cfg.Writer.Await.Timeout
	p.Interval = w.cfg.Writer.Await.Interval
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	return p
}

// AwaitPartitions waits until every wanted partition is visible in the catalog
func (w *Warehouse) AwaitPartitions(ctx context.Context, database, table string, want [][]string) error {
	return writer.AwaitPartitions(ctx, w.catalog, database, table, want, w.AwaitPolicy())
}

// DropTable removes the table from the catalog. With purge, the data of a
// managed table is deleted as well; external data is never touched.
func (w *Warehouse) DropTable(ctx context.Context, database, table string, purge bool) error {
	h, err := w.catalog.GetTable(ctx, database, table)
	if err != nil {
		return err
	}
	if err := w.catalog.DropTable(ctx, database, table); err != nil {
		return err
	}

	log := w.logger.Info().Str("database", database).Str("table", table)
	if purge && h.Kind == catalog.Managed {
		if err := w.fs.Delete(ctx, h.Location, true); err != nil {
			return err
		}
		log = log.Str("purged", h.Location)
	}
	log.Msg("Dropped table")
	return nil
}

// Close releases the catalog and, when it holds resources, the filesystem.
func (w *Warehouse) Close() error {
	var errs []error
	if err := w.catalog.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := w.fs.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
