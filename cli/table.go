package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/spf13/cobra"
)

func newDescribeCommand(root *rootOptions) *cobra.Command {
	var showProperties bool

	cmd := &cobra.Command{
		Use:   "describe <database>.<table>",
		Short: "Show a table's columns, partition keys and location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, table, err := parseIdentifier(args[0])
			if err != nil {
				return err
			}
			sess, err := root.openSession(cmd, "describe")
			if err != nil {
				return err
			}
			defer sess.Close()

			h, err := sess.warehouse.Catalog().GetTable(cmd.Context(), database, table)
			if err != nil {
				sess.display.Error("Failed to load %s.%s: %v", database, table, err)
				return err
			}
			return describeTable(sess.display, h, showProperties)
		},
	}
	cmd.Flags().BoolVar(&showProperties, "show-properties", false, "include table properties")
	return cmd
}

func describeTable(d *Display, h *catalog.TableHandle, showProperties bool) error {
	d.Section(fmt.Sprintf("%s.%s", h.Database, h.Name))
	d.Line("Location: %s", h.Location)
	d.Line("Kind:     %s", h.Kind)
	d.Line("Format:   %s", h.Format)
	if h.IsPartitioned() {
		d.Line("Partitioned by: %s", strings.Join(h.PartitionKeyNames(), ", "))
	}

	rows := make([][]string, 0, len(h.Columns)+len(h.PartitionKeys))
	for _, c := range h.Columns {
		rows = append(rows, []string{c.Name, c.Type, nullability(c.Nullable), ""})
	}
	for _, c := range h.PartitionKeys {
		rows = append(rows, []string{c.Name, c.Type, nullability(c.Nullable), "partition key"})
	}
	if err := d.Table([]string{"Column", "Type", "Null", "Role"}, rows); err != nil {
		return err
	}

	if showProperties && len(h.Properties) > 0 {
		keys := make([]string, 0, len(h.Properties))
		for k := range h.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		props := make([][]string, len(keys))
		for i, k := range keys {
			props[i] = []string{k, h.Properties[k]}
		}
		return d.Table([]string{"Property", "Value"}, props)
	}
	return nil
}

func nullability(nullable bool) string {
	if nullable {
		return "YES"
	}
	return "NO"
}

func newPartitionsCommand(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "partitions <database>.<table>",
		Short: "List a table's registered partitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, table, err := parseIdentifier(args[0])
			if err != nil {
				return err
			}
			sess, err := root.openSession(cmd, "partitions")
			if err != nil {
				return err
			}
			defer sess.Close()

			h, err := sess.warehouse.Catalog().GetTable(cmd.Context(), database, table)
			if err != nil {
				sess.display.Error("Failed to load %s.%s: %v", database, table, err)
				return err
			}
			partitions, err := sess.warehouse.Catalog().ListPartitions(cmd.Context(), database, table, limit)
			if err != nil {
				return err
			}

			header := append(h.PartitionKeyNames(), "Location")
			rows := make([][]string, len(partitions))
			for i, p := range partitions {
				rows[i] = append(append([]string{}, p.Values...), p.Location)
			}
			if err := sess.display.Table(header, rows); err != nil {
				return err
			}
			sess.display.Info("%d partitions", len(partitions))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum partitions to list, 0 for all")
	return cmd
}

func newDropCommand(root *rootOptions) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "drop <database>.<table>",
		Short: "Drop a table from the catalog",
		Long: `Drop a table and its registered partitions from the catalog. Data files
stay in place unless --purge is given; the data of external tables is
never deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, table, err := parseIdentifier(args[0])
			if err != nil {
				return err
			}
			sess, err := root.openSession(cmd, "drop")
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.warehouse.DropTable(cmd.Context(), database, table, purge); err != nil {
				sess.display.Error("Failed to drop %s.%s: %v", database, table, err)
				return err
			}
			sess.display.Success("Dropped %s.%s", database, table)
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete the data of a managed table")
	return cmd
}
