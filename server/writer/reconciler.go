package writer

import (
	"context"
	"fmt"
	"maps"
	"path"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/schema"
	"github.com/rs/zerolog"
)

// Reconciler makes the catalog hold the table a writer needs
type Reconciler struct {
	catalog catalog.Client
	policy  MismatchPolicy
	logger  zerolog.Logger
}

func NewReconciler(client catalog.Client, policy MismatchPolicy, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		catalog: client,
		policy:  policy,
		logger:  logger.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile returns the table, creating the database and table from cfg
// when the table is absent. An existing table is checked against cfg
// according to the mismatch policy.
func (r *Reconciler) Reconcile(ctx context.Context, db, table string, cfg CreateTableConfig) (*catalog.TableHandle, error) {
	handle, err := r.catalog.GetTable(ctx, db, table)
	if err == nil {
		return r.checkExisting(handle, cfg)
	}
	if !errors.Is(err, catalog.TableNotFound) {
		return nil, err
	}

	def, err := tableDefinition(db, table, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.catalog.CreateDatabase(ctx, catalog.Database{Name: db}); err != nil {
		return nil, err
	}

	handle, err = r.catalog.CreateTable(ctx, def)
	if errors.Is(err, catalog.AlreadyExists) {
		// created by someone else since GetTable
		if handle, err = r.catalog.GetTable(ctx, db, table); err != nil {
			return nil, err
		}
		return r.checkExisting(handle, cfg)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("database", db).
		Str("table", table).
		Str("location", handle.Location).
		Strs("partition_keys", handle.PartitionKeyNames()).
		Msg("Created table")
	return handle, nil
}

func tableDefinition(db, table string, cfg CreateTableConfig) (catalog.TableDefinition, error) {
	if err := cfg.Schema.Validate(); err != nil {
		return catalog.TableDefinition{}, err
	}
	keys, err := cfg.Plan.Fields(cfg.Schema)
	if err != nil {
		return catalog.TableDefinition{}, err
	}
	columns, err := catalog.ToColumns(cfg.Schema.Without(cfg.Plan.Keys...).Fields)
	if err != nil {
		return catalog.TableDefinition{}, err
	}
	partitionKeys, err := catalog.ToColumns(keys)
	if err != nil {
		return catalog.TableDefinition{}, err
	}

	props, err := catalog.IcebergProperties(cfg.Schema, cfg.Plan)
	if err != nil {
		return catalog.TableDefinition{}, err
	}
	maps.Copy(props, cfg.Properties)

	kind := cfg.Kind
	if kind == "" {
		kind = catalog.Managed
	}
	format := cfg.Format
	if format == "" {
		format = catalog.FormatParquet
	}
	return catalog.TableDefinition{
		Database:      db,
		Name:          table,
		Location:      cfg.Location,
		Columns:       columns,
		PartitionKeys: partitionKeys,
		Kind:          kind,
		Format:        format,
		Properties:    props,
	}, nil
}

func (r *Reconciler) checkExisting(handle *catalog.TableHandle, cfg CreateTableConfig) (*catalog.TableHandle, error) {
	mismatch := compareDefinition(handle, cfg)
	if mismatch == "" {
		return handle, nil
	}
	if r.policy == MismatchTrust {
		r.logger.Warn().
			Str("database", handle.Database).
			Str("table", handle.Name).
			Str("mismatch", mismatch).
			Msg("Existing table differs from the requested definition, writing against the existing table")
		return handle, nil
	}
	return nil, newSchemaMismatch(handle.Database, handle.Name, mismatch)
}

// compareDefinition describes the first difference between the existing
// table and cfg, or returns "" when they agree.
func compareDefinition(handle *catalog.TableHandle, cfg CreateTableConfig) string {
	keys, err := cfg.Plan.Fields(cfg.Schema)
	if err != nil {
		return err.Error()
	}
	columns, err := catalog.ToColumns(cfg.Schema.Without(cfg.Plan.Keys...).Fields)
	if err != nil {
		return err.Error()
	}
	partitionKeys, err := catalog.ToColumns(keys)
	if err != nil {
		return err.Error()
	}
	if d := compareColumns("column", handle.Columns, columns); d != "" {
		return d
	}
	return compareColumns("partition key", handle.PartitionKeys, partitionKeys)
}

func compareColumns(what string, existing, wanted []catalog.Column) string {
	if len(existing) != len(wanted) {
		return fmt.Sprintf("%s count %d, requested %d", what, len(existing), len(wanted))
	}
	for i := range existing {
		e, w := existing[i], wanted[i]
		switch {
		case e.Name != w.Name:
			return fmt.Sprintf("%s %d is %q, requested %q", what, i, e.Name, w.Name)
		case e.Type != w.Type:
			return fmt.Sprintf("%s %q has type %s, requested %s", what, e.Name, e.Type, w.Type)
		case e.Nullable != w.Nullable:
			return fmt.Sprintf("%s %q nullable=%t, requested %t", what, e.Name, e.Nullable, w.Nullable)
		}
	}
	return ""
}

// ResolvePartition returns the catalog location of a registered partition,
// or the default <table location>/<k=v...> when it is not registered.
func (r *Reconciler) ResolvePartition(ctx context.Context, handle *catalog.TableHandle, values []string) (location string, registered bool, err error) {
	p, err := r.catalog.GetPartition(ctx, handle.Database, handle.Name, values)
	if err == nil {
		return p.Location, true, nil
	}
	if !errors.Is(err, catalog.PartitionNotFound) {
		return "", false, err
	}
	rel, err := schema.PartitionPath(handle.PartitionKeyNames(), values)
	if err != nil {
		return "", false, err
	}
	return path.Join(handle.Location, rel), false, nil
}

// RegisterPartition adds the partition to the catalog. Registering an
// existing partition is not an error.
func (r *Reconciler) RegisterPartition(ctx context.Context, handle *catalog.TableHandle, values []string, location string) error {
	err := r.catalog.AddPartition(ctx, handle.Database, handle.Name, catalog.Partition{Values: values, Location: location})
	if err != nil {
		return err
	}
	r.logger.Debug().
		Str("database", handle.Database).
		Str("table", handle.Name).
		Strs("values", values).
		Str("location", location).
		Msg("Registered partition")
	return nil
}
