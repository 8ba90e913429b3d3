package writer

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/shopspring/decimal"
)

// PartitionGroup holds the records sharing one tuple of partition values.
// Records have the partition-key fields removed.
type PartitionGroup struct {
	Values  []any
	Records []schema.Record
}

// Partitioner splits a batch into partition groups
type Partitioner interface {
	Partition(records []schema.Record, plan schema.PartitionPlan) ([]PartitionGroup, error)
}

// DynamicPartitioner groups records by the values of the plan keys in
// first-seen order.
type DynamicPartitioner struct{}

// NoPartitioner puts every record in a single group
type NoPartitioner struct{}

// PartitionerFor picks the strategy matching a plan
func PartitionerFor(plan schema.PartitionPlan) Partitioner {
	if plan.IsEmpty() {
		return NoPartitioner{}
	}
	return DynamicPartitioner{}
}

func (NoPartitioner) Partition(records []schema.Record, _ schema.PartitionPlan) ([]PartitionGroup, error) {
	if len(records) == 0 {
		return nil, nil
	}
	return []PartitionGroup{{Values: []any{}, Records: records}}, nil
}

func (DynamicPartitioner) Partition(records []schema.Record, plan schema.PartitionPlan) ([]PartitionGroup, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var groups []PartitionGroup
	index := make(map[string]int)
	for row, r := range records {
		if err := r.CheckShape(); err != nil {
			return nil, errors.AsError(err).AddContext("row", strconv.Itoa(row))
		}
		values := make([]any, len(plan.Keys))
		keyParts := make([]string, len(plan.Keys))
		for i, key := range plan.Keys {
			pos := r.Schema.IndexOf(key)
			if pos < 0 {
				return nil, schema.NewPartitionKeyNotInSchema(key).AddContext("row", strconv.Itoa(row))
			}
			field := r.Schema.Fields[pos]
			v, err := schema.Coerce(r.Values[pos], field.Type)
			if err != nil {
				return nil, errors.AsError(err).AddContext("field", key).AddContext("row", strconv.Itoa(row))
			}
			values[i] = v
			keyParts[i] = valueKey(v)
		}

		k := strings.Join(keyParts, "\x00")
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, PartitionGroup{Values: values})
		}
		groups[g].Records = append(groups[g].Records, r.Without(plan.Keys...))
	}
	return groups, nil
}

// valueKey renders a coerced value so that equal values give equal keys
func valueKey(v any) string {
	switch v := v.(type) {
	case nil:
		return "n"
	case []byte:
		return "b" + hex.EncodeToString(v)
	case time.Time:
		return "t" + strconv.FormatInt(v.UnixMilli(), 10)
	case decimal.Decimal:
		return "d" + v.String()
	case string:
		return "s" + v
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
