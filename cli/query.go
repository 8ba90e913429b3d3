package cli

import (
	"encoding/json"
	"strings"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/config"
	"github.com/gear6io/hivewriter/server/query/duckdb"
	"github.com/spf13/cobra"
)

type queryOptions struct {
	tables  []string
	maxRows int
	format  string
}

func newQueryCommand(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run SQL over table files with DuckDB",
		Long: `Run a read-only SQL statement with DuckDB directly over the Parquet
files of the given tables. Each table is exposed as a view named
<database>_<table>; the first one is also available as {table}.

Only filesystem warehouses can be queried.

Examples:
  hivewriter query --table hr.employees "SELECT title, count(*) FROM {table} GROUP BY title"
  hivewriter query --table hr.employees --table hr.titles \
      "SELECT * FROM hr_employees JOIN hr_titles USING (title)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.tables, "table", "t", nil, "table to expose, as <database>.<table>")
	cmd.Flags().IntVar(&opts.maxRows, "max-rows", 1000, "maximum rows to return, 0 for all")
	cmd.Flags().StringVar(&opts.format, "format", formatTable, "output format: table or json")
	return cmd
}

func runQuery(cmd *cobra.Command, root *rootOptions, opts *queryOptions, sql string) error {
	ctx := cmd.Context()
	if opts.format != formatTable && opts.format != formatJSON {
		return errors.New(UnsupportedOutput, "unsupported output format", nil).AddContext("format", opts.format)
	}

	sess, err := root.openSession(cmd, "query")
	if err != nil {
		return err
	}
	defer sess.Close()
	d := sess.display

	if sess.cfg.Warehouse.Storage.Type != config.StorageFilesystem {
		return errors.New(errors.CommonInvalidInput, "queries need a filesystem warehouse", nil).
			AddContext("storage", sess.cfg.Warehouse.Storage.Type)
	}

	engine, err := duckdb.NewEngine(sess.warehouse.Catalog(), sess.logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	engine.SetMaxRows(opts.maxRows)

	for i, id := range opts.tables {
		database, table, err := parseIdentifier(id)
		if err != nil {
			return err
		}
		view, err := engine.RegisterTable(ctx, database, table)
		if err != nil {
			d.Error("Failed to register %s: %v", id, err)
			return err
		}
		if i == 0 {
			sql = strings.ReplaceAll(sql, "{table}", `"`+view+`"`)
		}
	}

	res, err := engine.Query(ctx, sql)
	if err != nil {
		d.Error("Query failed: %v", err)
		return err
	}

	if opts.format == formatJSON {
		for _, row := range res.Rows {
			obj := make(map[string]any, len(row))
			for i, v := range row {
				obj[res.Columns[i]] = v
			}
			b, err := json.Marshal(obj)
			if err != nil {
				return err
			}
			d.Line("%s", b)
		}
		return nil
	}

	rows := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = displayValue(v)
		}
	}
	if err := d.Table(res.Columns, rows); err != nil {
		return err
	}
	if res.Truncated {
		d.Warning("Result truncated at %d rows", opts.maxRows)
	}
	d.Info("%d rows in %s", res.RowCount, res.Duration)
	return nil
}
