package parquet

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/storage"
	"github.com/shopspring/decimal"
)

// Iterator decodes one file a batch at a time
type Iterator struct {
	path   string
	schema schema.Struct
	opts   ReadOptions
	file   storage.File
	rr     pqarrow.RecordReader
	cur    arrow.Record
	row    int64
	closed bool
}

func (it *Iterator) Schema() schema.Struct { return it.schema }

// Next returns the next record or io.EOF. The file is released as soon
// as the last batch has been consumed.
func (it *Iterator) Next() (schema.Record, error) {
	if it.closed {
		return schema.Record{}, io.EOF
	}
	for it.cur == nil || it.row >= it.cur.NumRows() {
		if !it.rr.Next() {
			err := it.rr.Err()
			if cerr := it.Close(); err == nil || err == io.EOF {
				if cerr != nil {
					return schema.Record{}, storage.NewFileReadFailed(it.path, cerr)
				}
				return schema.Record{}, io.EOF
			}
			return schema.Record{}, newDecodeFailed(it.path, err)
		}
		it.cur = it.rr.Record()
		it.row = 0
	}

	values := make([]any, len(it.schema.Fields))
	for i := range it.schema.Fields {
		values[i] = readValue(it.cur.Column(i), int(it.row), it.opts)
	}
	it.row++
	return schema.Record{Schema: it.schema, Values: values}, nil
}

// Close releases the batch reader and the file. Safe to call twice.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.cur = nil
	it.rr.Release()
	return it.file.Close()
}

func readValue(col arrow.Array, i int, opts ReadOptions) any {
	if col.IsNull(i) {
		return nil
	}
	switch a := col.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int16:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return strings.Clone(a.Value(i))
	case *array.Binary:
		return bytes.Clone(a.Value(i))
	case *array.FixedSizeBinary:
		return bytes.Clone(a.Value(i))
	case *array.Decimal128:
		n := a.Value(i)
		if opts.DecimalAsBinary {
			return unscaledBytes(n)
		}
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(n.BigInt(), -scale)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Timestamp:
		return time.UnixMilli(int64(a.Value(i))).UTC()
	default:
		return nil
	}
}

// unscaledBytes is the 16-byte big-endian two's-complement form of n
func unscaledBytes(n decimal128.Num) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[:8], uint64(n.HighBits()))
	binary.BigEndian.PutUint64(out[8:], n.LowBits())
	return out
}
