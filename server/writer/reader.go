package writer

import (
	"context"
	"io"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/storage"
	"github.com/rs/zerolog"
)

// Reader reads tables back through the catalog. The codec must be built
// with the same DecimalAsBinary choice as ReadOptions.
type Reader struct {
	catalog catalog.Client
	fs      storage.FileSystem
	codec   Codec
	opts    catalog.ReadOptions
	logger  zerolog.Logger
}

func NewReader(client catalog.Client, fs storage.FileSystem, codec Codec, opts catalog.ReadOptions, logger zerolog.Logger) *Reader {
	return &Reader{
		catalog: client,
		fs:      fs,
		codec:   codec,
		opts:    opts,
		logger:  logger.With().Str("component", "reader").Logger(),
	}
}

// ReadFile reads a single data file
func (r *Reader) ReadFile(ctx context.Context, path string) (schema.RecordIterator, error) {
	return r.codec.Open(ctx, r.fs, path)
}

type fileSource struct {
	path   string
	values []any
}

// ReadTable returns every record of the table. Partitioned tables are read
// partition by partition in registration order, and the partition key
// values are appended after the data columns. Files within a directory are
// read in name order and hidden files are skipped.
func (r *Reader) ReadTable(ctx context.Context, database, table string) (schema.RecordIterator, error) {
	handle, err := r.catalog.GetTable(ctx, database, table)
	if err != nil {
		return nil, err
	}
	data, keys, err := catalog.TableSchema(handle, r.opts)
	if err != nil {
		return nil, err
	}

	var sources []fileSource
	if !handle.IsPartitioned() {
		if sources, err = r.listSources(ctx, handle.Location, nil); err != nil {
			return nil, err
		}
	} else {
		partitions, err := r.catalog.ListPartitions(ctx, database, table, 0)
		if err != nil {
			return nil, err
		}
		for _, p := range partitions {
			values, err := parsePartitionValues(keys, p.Values)
			if err != nil {
				return nil, errors.AsError(err).AddContext("location", p.Location)
			}
			files, err := r.listSources(ctx, p.Location, values)
			if err != nil {
				return nil, err
			}
			sources = append(sources, files...)
		}
	}

	r.logger.Debug().
		Str("database", database).
		Str("table", table).
		Int("files", len(sources)).
		Msg("Reading table")

	out := schema.NewStruct(append(append([]schema.Field{}, data.Fields...), keys...)...)
	return &tableIterator{
		ctx:     ctx,
		reader:  r,
		data:    data,
		keys:    keys,
		schema:  out,
		sources: sources,
	}, nil
}

func (r *Reader) listSources(ctx context.Context, dir string, values []any) ([]fileSource, error) {
	files, err := r.fs.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	files = storage.DataFiles(files)
	sources := make([]fileSource, len(files))
	for i, f := range files {
		sources[i] = fileSource{path: f.Path, values: values}
	}
	return sources, nil
}

func parsePartitionValues(keys []schema.Field, formatted []string) ([]any, error) {
	if len(keys) != len(formatted) {
		return nil, errors.New(schema.ValueCountMismatch, "partition values do not match partition keys", nil)
	}
	values := make([]any, len(keys))
	for i, k := range keys {
		v, err := schema.ParseValue(formatted[i], k.Type)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// tableIterator opens one file at a time and owns the open file
type tableIterator struct {
	ctx     context.Context
	reader  *Reader
	data    schema.Struct
	keys    []schema.Field
	schema  schema.Struct
	sources []fileSource
	current schema.RecordIterator
	values  []any
	closed  bool
}

func (it *tableIterator) Schema() schema.Struct { return it.schema }

func (it *tableIterator) Next() (schema.Record, error) {
	for !it.closed {
		if it.current == nil {
			if len(it.sources) == 0 {
				it.closed = true
				return schema.Record{}, io.EOF
			}
			src := it.sources[0]
			it.sources = it.sources[1:]
			cur, err := it.reader.codec.Open(it.ctx, it.reader.fs, src.path)
			if err != nil {
				return schema.Record{}, err
			}
			if !cur.Schema().Equal(it.data) {
				cur.Close()
				return schema.Record{}, errors.New(SchemaMismatch, "data file does not match the table columns", nil).
					AddContext("path", src.path).
					AddContext("file_schema", cur.Schema().String()).
					AddContext("table_schema", it.data.String())
			}
			it.current = cur
			it.values = src.values
		}

		rec, err := it.current.Next()
		if err == io.EOF {
			it.current = nil
			continue
		}
		if err != nil {
			return schema.Record{}, err
		}
		if len(it.keys) == 0 {
			return rec, nil
		}
		return rec.Extend(it.keys, it.values), nil
	}
	return schema.Record{}, io.EOF
}

func (it *tableIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.sources = nil
	if it.current != nil {
		err := it.current.Close()
		it.current = nil
		return err
	}
	return nil
}
