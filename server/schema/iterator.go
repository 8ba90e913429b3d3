package schema

import (
	"io"
	"iter"
)

// RecordIterator is a lazy, finite, non-restartable sequence of records.
// Next returns io.EOF once exhausted. Close is idempotent.
type RecordIterator interface {
	Schema() Struct
	Next() (Record, error)
	Close() error
}

// All adapts an iterator to a range-over-func sequence. The iterator is
// closed when the loop ends, early or not.
func All(it RecordIterator) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		defer it.Close()
		for {
			rec, err := it.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains it into a slice and closes it.
func Collect(it RecordIterator) ([]Record, error) {
	var out []Record
	for rec, err := range All(it) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// SliceIterator serves records already in memory
type SliceIterator struct {
	schema  Struct
	records []Record
	pos     int
}

func NewSliceIterator(s Struct, records []Record) *SliceIterator {
	return &SliceIterator{schema: s, records: records}
}

func (it *SliceIterator) Schema() Struct { return it.schema }

func (it *SliceIterator) Next() (Record, error) {
	if it.pos >= len(it.records) {
		return Record{}, io.EOF
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, nil
}

func (it *SliceIterator) Close() error {
	it.pos = len(it.records)
	return nil
}
