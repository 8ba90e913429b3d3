package parquet

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultBatchSize = 64 * 1024

// Options configures a Codec
type Options struct {
	Compression CompressionOptions
	Read        ReadOptions
	// BatchSize is the number of rows decoded at a time
	BatchSize int64
	Allocator memory.Allocator
}

// Codec encodes record batches to Parquet files and decodes them back
// through pqarrow. A Codec is safe for concurrent use.
type Codec struct {
	opts   Options
	alloc  memory.Allocator
	logger zerolog.Logger
}

// NewCodec validates opts and returns a codec
func NewCodec(opts Options, logger zerolog.Logger) (*Codec, error) {
	if err := opts.Compression.Validate(); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	alloc := opts.Allocator
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	return &Codec{
		opts:   opts,
		alloc:  alloc,
		logger: logger.With().Str("component", "parquet").Logger(),
	}, nil
}

func (c *Codec) writerProperties(s schema.Struct) (*pq.WriterProperties, error) {
	codec, err := GetCompressionCodec(c.opts.Compression.Compression)
	if err != nil {
		return nil, err
	}
	props := []pq.WriterProperty{
		pq.WithAllocator(c.alloc),
		pq.WithCompression(codec),
		pq.WithCreatedBy("hivewriter"),
	}
	if c.opts.Compression.CompressionLevel > 0 && requiresCompressionLevel(c.opts.Compression.Compression) {
		props = append(props, pq.WithCompressionLevel(c.opts.Compression.CompressionLevel))
	}
	for _, f := range s.Fields {
		name := c.opts.Compression.ForColumn(f.Name)
		if name == c.opts.Compression.Compression {
			continue
		}
		colCodec, err := GetCompressionCodec(name)
		if err != nil {
			return nil, err
		}
		props = append(props, pq.WithCompressionFor(f.Name, colCodec))
	}
	return pq.NewWriterProperties(props...), nil
}

// Encode writes records as one Parquet file at path. Every record must
// carry s's fields in order. On failure the partial file is removed.
func (c *Codec) Encode(ctx context.Context, fs storage.FileSystem, path string, s schema.Struct, records []schema.Record) (err error) {
	as, err := ToArrowSchema(s)
	if err != nil {
		return err
	}
	props, err := c.writerProperties(s)
	if err != nil {
		return err
	}
	rec, err := c.buildRecord(as, s, records)
	if err != nil {
		return newEncodeFailed(path, err)
	}
	defer rec.Release()

	if err := ctx.Err(); err != nil {
		return err
	}
	sink, err := fs.Create(ctx, path)
	if err != nil {
		return storage.NewFileWriteFailed(path, err)
	}
	out := &onceCloser{WriteCloser: sink}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = storage.NewFileWriteFailed(path, cerr)
		}
		if err != nil {
			if derr := fs.Delete(context.WithoutCancel(ctx), path, false); derr != nil {
				c.logger.Warn().Err(derr).Str("path", path).Msg("Failed to remove partial file")
			}
		}
	}()

	w, err := pqarrow.NewFileWriter(as, out, props,
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(c.alloc)))
	if err != nil {
		return newEncodeFailed(path, err)
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return newEncodeFailed(path, err)
	}
	if err := w.Close(); err != nil {
		return storage.NewFileWriteFailed(path, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("rows", len(records)).
		Msg("Encoded parquet file")
	return nil
}

func (c *Codec) buildRecord(as *arrow.Schema, s schema.Struct, records []schema.Record) (arrow.Record, error) {
	b := array.NewRecordBuilder(c.alloc, as)
	defer b.Release()

	for row, r := range records {
		if len(r.Values) != s.Len() {
			return nil, errors.New(schema.ValueCountMismatch, "record does not match file schema", nil).
				AddContext("row", strconv.Itoa(row)).
				AddContext("expected", strconv.Itoa(s.Len())).
				AddContext("actual", strconv.Itoa(len(r.Values)))
		}
		for i, f := range s.Fields {
			v, err := schema.Coerce(r.Values[i], f.Type)
			if err != nil {
				return nil, errors.AsError(err).AddContext("field", f.Name).AddContext("row", strconv.Itoa(row))
			}
			if v == nil && !f.Nullable {
				return nil, errors.New(errors.CommonInvalidInput, "null value in required field", nil).
					AddContext("field", f.Name).
					AddContext("row", strconv.Itoa(row))
			}
			if err := appendValue(b.Field(i), f.Type, v); err != nil {
				return nil, errors.AsError(err).AddContext("field", f.Name).AddContext("row", strconv.Itoa(row))
			}
		}
	}
	return b.NewRecord(), nil
}

// appendValue expects v already coerced by schema.Coerce
func appendValue(fb array.Builder, t schema.Type, v any) error {
	if v == nil {
		fb.AppendNull()
		return nil
	}
	switch t.Kind {
	case schema.KindBoolean:
		fb.(*array.BooleanBuilder).Append(v.(bool))
	case schema.KindInt16:
		fb.(*array.Int16Builder).Append(v.(int16))
	case schema.KindInt32:
		fb.(*array.Int32Builder).Append(v.(int32))
	case schema.KindInt64:
		fb.(*array.Int64Builder).Append(v.(int64))
	case schema.KindFloat32:
		fb.(*array.Float32Builder).Append(v.(float32))
	case schema.KindFloat64:
		fb.(*array.Float64Builder).Append(v.(float64))
	case schema.KindString:
		fb.(*array.StringBuilder).Append(v.(string))
	case schema.KindBinary:
		fb.(*array.BinaryBuilder).Append(v.([]byte))
	case schema.KindDecimal:
		d := v.(decimal.Decimal)
		unscaled := d.Shift(t.Scale).BigInt()
		if len(unscaled.Abs(unscaled).String()) > int(t.Precision) {
			return errors.New(errors.CommonInvalidInput, "decimal does not fit the column", nil).
				AddContext("type", t.String()).
				AddContext("value", d.String())
		}
		n, err := decimal128.FromString(d.StringFixed(t.Scale), t.Precision, t.Scale)
		if err != nil {
			return errors.New(errors.CommonInvalidInput, "decimal does not fit the column", err).
				AddContext("type", t.String()).
				AddContext("value", d.String())
		}
		fb.(*array.Decimal128Builder).Append(n)
	case schema.KindDate:
		fb.(*array.Date32Builder).Append(arrow.Date32FromTime(v.(time.Time)))
	case schema.KindTimestampMillis:
		fb.(*array.TimestampBuilder).Append(arrow.Timestamp(v.(time.Time).UnixMilli()))
	default:
		return schema.NewUnsupportedType(t.String(), "semantic")
	}
	return nil
}

// Open returns an iterator over the records of one Parquet file. The
// iterator owns the file handle.
func (c *Codec) Open(ctx context.Context, fs storage.FileSystem, path string) (schema.RecordIterator, error) {
	f, err := fs.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	it, err := c.newIterator(ctx, f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return it, nil
}

func (c *Codec) newIterator(ctx context.Context, f storage.File, path string) (*Iterator, error) {
	pf, err := file.NewParquetReader(f, file.WithReadProps(pq.NewReaderProperties(c.alloc)))
	if err != nil {
		return nil, newDecodeFailed(path, err)
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: c.opts.BatchSize}, c.alloc)
	if err != nil {
		return nil, newDecodeFailed(path, err)
	}
	as, err := fr.Schema()
	if err != nil {
		return nil, newDecodeFailed(path, err)
	}
	s, err := FromArrowSchema(as, c.opts.Read)
	if err != nil {
		return nil, errors.AsError(err).AddContext("path", path)
	}
	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, newDecodeFailed(path, err)
	}
	return &Iterator{
		path:   path,
		schema: s,
		opts:   c.opts.Read,
		file:   f,
		rr:     rr,
	}, nil
}

type onceCloser struct {
	io.WriteCloser
	once sync.Once
	err  error
}

func (o *onceCloser) Close() error {
	o.once.Do(func() { o.err = o.WriteCloser.Close() })
	return o.err
}
