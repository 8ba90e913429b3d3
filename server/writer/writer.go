package writer

import (
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/storage"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultPartitionCacheSize = 10000

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateWriting
	stateClosed
)

// Options tunes a Writer. The zero value appends with the default namer,
// one partition at a time, and fails on definition mismatches.
type Options struct {
	Mode WriteMode
	// Partitioner overrides the strategy chosen from the table's keys
	Partitioner    Partitioner
	FileManager    FileManager
	MismatchPolicy MismatchPolicy
	// Parallelism > 1 encodes that many partition groups concurrently
	Parallelism int
	// PartitionCacheSize bounds the partitions remembered as registered
	PartitionCacheSize int
	// CloseClients makes Close also close the catalog and, when it is an
	// io.Closer, the filesystem.
	CloseClients bool
	Logger       zerolog.Logger
}

// Writer writes record batches into one catalog table. It is meant for
// sequential use; callers synchronize Write and Close.
type Writer struct {
	database string
	table    string
	cfg      CreateTableConfig

	catalog    catalog.Client
	fs         storage.FileSystem
	codec      Codec
	reconciler *Reconciler
	files      FileManager
	opts       Options
	logger     zerolog.Logger

	state      state
	handle     *catalog.TableHandle
	dataSchema schema.Struct
	keyFields  []schema.Field

	mu      sync.Mutex
	cleared map[string]struct{}
	known   *ttlcache.Cache[string, string]
}

// NewWriter returns a writer for database.table. cfg is only used if the
// table has to be created.
func NewWriter(database, table string, cfg CreateTableConfig, client catalog.Client, fs storage.FileSystem, codec Codec, opts Options) *Writer {
	if opts.FileManager == nil {
		opts.FileManager = NewOptimisticFileManager(DefaultFileNamer{})
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.PartitionCacheSize <= 0 {
		opts.PartitionCacheSize = defaultPartitionCacheSize
	}
	logger := opts.Logger.With().
		Str("component", "writer").
		Str("database", database).
		Str("table", table).
		Logger()

	return &Writer{
		database:   database,
		table:      table,
		cfg:        cfg,
		catalog:    client,
		fs:         fs,
		codec:      codec,
		reconciler: NewReconciler(client, opts.MismatchPolicy, opts.Logger),
		files:      opts.FileManager,
		opts:       opts,
		logger:     logger,
		cleared:    make(map[string]struct{}),
		known: ttlcache.New[string, string](
			ttlcache.WithCapacity[string, string](uint64(opts.PartitionCacheSize)),
		),
	}
}

// Table returns the table handle once the first Write has reconciled it
func (w *Writer) Table() *catalog.TableHandle {
	return w.handle
}

// Write encodes records into the table. The first call reconciles the
// table with the catalog.
//
// Write is not transactional. When a file is written but registering its
// partition fails, the file stays on storage and the returned error carries
// its path; writing the same partition again registers it.
func (w *Writer) Write(ctx context.Context, records []schema.Record) error {
	if w.state == stateClosed {
		return newWriterClosed(w.database, w.table)
	}
	if w.state == stateUninitialized {
		if err := w.initialize(ctx); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return nil
	}

	w.state = stateWriting
	defer func() { w.state = stateReady }()

	plan := schema.NewPartitionPlan(w.handle.PartitionKeyNames()...)
	partitioner := w.opts.Partitioner
	if partitioner == nil {
		partitioner = PartitionerFor(plan)
	}
	groups, err := partitioner.Partition(records, plan)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if err := w.checkGroup(g); err != nil {
			return err
		}
	}

	if w.opts.Parallelism == 1 || len(groups) == 1 {
		for _, g := range groups {
			if err := w.writeGroup(ctx, g); err != nil {
				return err
			}
		}
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(w.opts.Parallelism)
	for _, g := range groups {
		eg.Go(func() error {
			return w.writeGroup(egCtx, g)
		})
	}
	return eg.Wait()
}

func (w *Writer) initialize(ctx context.Context) error {
	handle, err := w.reconciler.Reconcile(ctx, w.database, w.table, w.cfg)
	if err != nil {
		return err
	}
	data, keys, err := catalog.TableSchema(handle, catalog.ReadOptions{})
	if err != nil {
		return err
	}
	w.handle = handle
	w.dataSchema = data
	w.keyFields = keys
	w.state = stateReady

	w.logger.Debug().
		Str("location", handle.Location).
		Str("mode", w.opts.Mode.String()).
		Msg("Writer ready")
	return nil
}

// checkGroup verifies that stripped records match the table's data columns
func (w *Writer) checkGroup(g PartitionGroup) error {
	if len(g.Values) != len(w.keyFields) {
		return errors.New(SchemaMismatch, "partition values do not match the table partition keys", nil).
			AddContext("database", w.database).
			AddContext("table", w.table)
	}
	for i, r := range g.Records {
		if !r.Schema.Equal(w.dataSchema) {
			return newSchemaMismatch(w.database, w.table, "record schema "+r.Schema.String()+", table columns "+w.dataSchema.String()).
				AddContext("record", strconv.Itoa(i))
		}
	}
	return nil
}

func (w *Writer) writeGroup(ctx context.Context, g PartitionGroup) error {
	var (
		values     []string
		partPath   string
		dir        = w.handle.Location
		registered = true
	)
	if w.handle.IsPartitioned() {
		var err error
		values, partPath, err = schema.FormatPartition(w.keyFields, g.Values)
		if err != nil {
			return err
		}
		if loc, ok := w.knownPartition(partPath); ok {
			dir = loc
		} else if dir, registered, err = w.reconciler.ResolvePartition(ctx, w.handle, values); err != nil {
			return err
		}
	}

	mode := w.effectiveMode(dir)
	filePath, err := w.files.Prepare(ctx, w.fs, dir, mode)
	if err != nil {
		return err
	}
	w.markCleared(dir)

	if err := w.codec.Encode(ctx, w.fs, filePath, w.dataSchema, g.Records); err != nil {
		return err
	}
	w.logger.Debug().
		Str("path", filePath).
		Str("mode", mode.String()).
		Int("records", len(g.Records)).
		Msg("Wrote data file")

	if !w.handle.IsPartitioned() {
		return nil
	}
	if !registered {
		if err := w.reconciler.RegisterPartition(ctx, w.handle, values, dir); err != nil {
			w.logger.Error().Err(err).
				Str("path", filePath).
				Strs("values", values).
				Msg("Data file written but partition not registered")
			return errors.New(RegistrationFailed, "partition registration failed after the data file was written", err).
				AddContext("path", filePath).
				AddContext("partition", partPath)
		}
	}
	w.rememberPartition(partPath, dir)
	return nil
}

// effectiveMode applies Overwrite only to the first write of a scope in
// this session; later writes to the scope append to it.
func (w *Writer) effectiveMode(dir string) WriteMode {
	if w.opts.Mode != Overwrite {
		return Append
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.cleared[dir]; done {
		return Append
	}
	return Overwrite
}

func (w *Writer) markCleared(dir string) {
	w.mu.Lock()
	w.cleared[dir] = struct{}{}
	w.mu.Unlock()
}

func (w *Writer) knownPartition(partPath string) (string, bool) {
	item := w.known.Get(partPath)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

func (w *Writer) rememberPartition(partPath, location string) {
	w.known.Set(partPath, location, ttlcache.NoTTL)
}

// Close releases the writer. It is idempotent. With CloseClients every
// client is closed even if an earlier one fails; the failures are joined.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	w.state = stateClosed
	w.known.DeleteAll()
	w.handle = nil

	var errs []error
	if w.opts.CloseClients {
		if err := w.catalog.Close(); err != nil {
			errs = append(errs, err)
		}
		if c, ok := w.fs.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	w.logger.Debug().Msg("Writer closed")
	return errors.Join(errs...)
}
