package writer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
)

// AwaitPolicy bounds AwaitPartitions
type AwaitPolicy struct {
	Timeout  time.Duration
	Interval time.Duration
	// MaxInterval caps the exponential growth of the poll interval
	MaxInterval time.Duration
}

// DefaultAwaitPolicy polls for up to 30 seconds starting at 200ms
func DefaultAwaitPolicy() AwaitPolicy {
	return AwaitPolicy{Timeout: 30 * time.Second, Interval: 200 * time.Millisecond, MaxInterval: 2 * time.Second}
}

func (p AwaitPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Interval
	b.MaxElapsedTime = p.Timeout
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// AwaitPartitions polls the catalog until every wanted partition value
// tuple is listed for the table. A missing table is polled like a missing
// partition; any other catalog failure stops the wait.
func AwaitPartitions(ctx context.Context, client catalog.Client, database, table string, want [][]string, policy AwaitPolicy) error {
	var missing []string
	poll := func() error {
		partitions, err := client.ListPartitions(ctx, database, table, 0)
		if err != nil && !errors.Is(err, catalog.TableNotFound) {
			return backoff.Permanent(err)
		}
		visible := make(map[string]struct{}, len(partitions))
		for _, p := range partitions {
			visible[partitionKey(p.Values)] = struct{}{}
		}

		missing = missing[:0]
		for _, values := range want {
			if _, ok := visible[partitionKey(values)]; !ok {
				missing = append(missing, "["+strings.Join(values, ", ")+"]")
			}
		}
		if len(missing) > 0 || err != nil {
			return errors.New(PartitionsNotVisible, "partitions are not visible yet", err).
				AddContext("database", database).
				AddContext("table", table).
				AddContext("missing", strings.Join(missing, " ")).
				AddContext("missing_count", strconv.Itoa(len(missing)))
		}
		return nil
	}
	return backoff.Retry(poll, policy.backOff(ctx))
}

func partitionKey(values []string) string {
	return strings.Join(values, "\x00")
}
