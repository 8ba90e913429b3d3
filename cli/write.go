package cli

import (
	"io"
	"os"
	"strings"

	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/gear6io/hivewriter/server/writer"
	"github.com/spf13/cobra"
)

type writeOptions struct {
	schema      string
	partitionBy []string
	input       string
	mode        string
	batchSize   int
	external    string
	properties  map[string]string
	await       bool
}

func newWriteCommand(root *rootOptions) *cobra.Command {
	opts := &writeOptions{}

	cmd := &cobra.Command{
		Use:   "write <database>.<table>",
		Short: "Write JSON-lines records into a table",
		Long: `Read one JSON object per line and write the records into a table,
creating the database and table on first use.

Each line is decoded against --schema. Members missing from a line are
written as nulls; members not in the schema are ignored.

Examples:
  hivewriter write hr.employees --schema "name:string,title:string,salary:double,employed:boolean" \
      --partition-by title --input employees.jsonl
  cat events.jsonl | hivewriter write ops.events --schema "id:bigint!,day:date,kind:string" \
      --partition-by day,kind --mode overwrite --await`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.schema, "schema", "", "record schema: name:type[!],... (! marks a required field)")
	cmd.Flags().StringSliceVar(&opts.partitionBy, "partition-by", nil, "partition key fields in directory order")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "JSON-lines input file, - for stdin")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "write mode for this session: append or overwrite (default from config)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 10000, "records per write")
	cmd.Flags().StringVar(&opts.external, "external-location", "", "create an external table at this location")
	cmd.Flags().StringToStringVar(&opts.properties, "property", nil, "table properties (key=value)")
	cmd.Flags().BoolVar(&opts.await, "await", false, "wait until written partitions are visible in the catalog")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runWrite(cmd *cobra.Command, root *rootOptions, opts *writeOptions, identifier string) error {
	ctx := cmd.Context()

	database, table, err := parseIdentifier(identifier)
	if err != nil {
		return err
	}
	s, err := parseSchema(opts.schema)
	if err != nil {
		return err
	}
	plan := schema.NewPartitionPlan(opts.partitionBy...)
	if err := plan.Validate(s); err != nil {
		return err
	}
	keys, err := plan.Fields(s)
	if err != nil {
		return err
	}

	var mode writer.WriteMode
	if opts.mode != "" {
		if mode, err = writer.ParseWriteMode(opts.mode); err != nil {
			return err
		}
	}

	in := io.Reader(cmd.InOrStdin())
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	sess, err := root.openSession(cmd, "write")
	if err != nil {
		return err
	}
	defer sess.Close()
	d := sess.display

	tableCfg := writer.CreateTableConfig{Schema: s, Plan: plan, Properties: opts.properties}
	if opts.external != "" {
		tableCfg.Kind = catalog.External
		tableCfg.Location = opts.external
	}

	w, err := sess.warehouse.NewWriter(database, table, tableCfg, func(o *writer.Options) {
		if opts.mode != "" {
			o.Mode = mode
		}
	})
	if err != nil {
		return err
	}

	var (
		batch    []schema.Record
		total    int
		batches  int
		seen     = map[string]struct{}{}
		visible  [][]string
		batchMax = max(opts.batchSize, 1)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.Write(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batches++
		batch = batch[:0]
		return nil
	}

	dec := newRecordDecoder(in, s)
	for {
		rec, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Close()
			d.Error("Failed to read input: %v", err)
			return err
		}

		if len(keys) > 0 {
			values := make([]any, len(keys))
			for i, k := range keys {
				values[i], _ = rec.Get(k.Name)
			}
			formatted, _, err := schema.FormatPartition(keys, values)
			if err != nil {
				w.Close()
				return err
			}
			if id := strings.Join(formatted, "\x00"); !hasKey(seen, id) {
				seen[id] = struct{}{}
				visible = append(visible, formatted)
			}
		}

		batch = append(batch, rec)
		if len(batch) >= batchMax {
			if err := flush(); err != nil {
				w.Close()
				d.Error("Write failed: %v", err)
				return err
			}
		}
	}
	if err := flush(); err != nil {
		w.Close()
		d.Error("Write failed: %v", err)
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if opts.await && len(visible) > 0 {
		if err := sess.warehouse.AwaitPartitions(ctx, database, table, visible); err != nil {
			d.Error("Partitions not visible: %v", err)
			return err
		}
	}

	sess.logger.Info().
		Str("database", database).
		Str("table", table).
		Int("records", total).
		Int("batches", batches).
		Int("partitions", len(visible)).
		Msg("Write completed")
	d.Success("Wrote %d records to %s.%s (%d partitions)", total, database, table, len(visible))
	return nil
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
