package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// Migration is one forward-only schema step
type Migration interface {
	Version() int
	Name() string
	Description() string
	Up(ctx context.Context, tx bun.Tx) error
}

// migrationInitial creates the catalog schema
type migrationInitial struct{}

func (m *migrationInitial) Version() int { return 1 }

func (m *migrationInitial) Name() string { return "initial_catalog_schema" }

func (m *migrationInitial) Description() string {
	return "Databases, tables, columns and partitions"
}

func (m *migrationInitial) Up(ctx context.Context, tx bun.Tx) error {
	if _, err := tx.NewCreateTable().
		Model((*databaseModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(ErrMigrationFailed, "failed to create databases table", err)
	}

	if _, err := tx.NewCreateTable().
		Model((*tableModel)(nil)).
		ForeignKey(`("database_id") REFERENCES "databases" ("id") ON DELETE CASCADE`).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(ErrMigrationFailed, "failed to create tables table", err)
	}

	if _, err := tx.NewCreateTable().
		Model((*columnModel)(nil)).
		ForeignKey(`("table_id") REFERENCES "tables" ("id") ON DELETE CASCADE`).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(ErrMigrationFailed, "failed to create table_columns table", err)
	}

	if _, err := tx.NewCreateTable().
		Model((*partitionModel)(nil)).
		ForeignKey(`("table_id") REFERENCES "tables" ("id") ON DELETE CASCADE`).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(ErrMigrationFailed, "failed to create table_partitions table", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_tables_database ON tables(database_id)`,
		`CREATE INDEX IF NOT EXISTS idx_columns_table ON table_columns(table_id, ordinal_position)`,
		`CREATE INDEX IF NOT EXISTS idx_partitions_table ON table_partitions(table_id)`,
	}
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.New(ErrMigrationFailed, "failed to create index", err).AddContext("statement", stmt)
		}
	}

	return nil
}

type migrator struct {
	db     *bun.DB
	logger zerolog.Logger
}

func availableMigrations() []Migration {
	return []Migration{
		&migrationInitial{},
	}
}

// MigrateToLatest applies all pending migrations in a single transaction
func (m *migrator) MigrateToLatest(ctx context.Context) error {
	current, err := m.currentVersion(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, migration := range availableMigrations() {
		if migration.Version() > current {
			pending = append(pending, migration)
		}
	}
	if len(pending) == 0 {
		m.logger.Debug().Int("version", current).Msg("Catalog schema up to date")
		return nil
	}

	return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339)
		for _, migration := range pending {
			m.logger.Info().
				Int("version", migration.Version()).
				Str("name", migration.Name()).
				Msg("Running catalog migration")

			if err := migration.Up(ctx, tx); err != nil {
				return errors.New(ErrMigrationFailed, "migration failed", err).
					AddContext("migration", migration.Name())
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO bun_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				migration.Version(), migration.Name(), now); err != nil {
				return errors.New(ErrMigrationFailed, "failed to record migration", err).
					AddContext("migration", migration.Name())
			}
		}
		return nil
	})
}

func (m *migrator) currentVersion(ctx context.Context) (int, error) {
	if _, err := m.db.NewCreateTable().
		Model(&struct {
			bun.BaseModel `bun:"table:bun_migrations"`
			Version       int    `bun:"version,pk,type:integer"`
			Name          string `bun:"name,type:text,notnull"`
			AppliedAt     string `bun:"applied_at,type:text,notnull"`
		}{}).
		IfNotExists().
		Exec(ctx); err != nil {
		return 0, errors.New(ErrMigrationFailed, "failed to create migrations table", err)
	}

	var version int
	err := m.db.NewSelect().
		ColumnExpr("version").
		Table("bun_migrations").
		Order("version DESC").
		Limit(1).
		Scan(ctx, &version)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.New(ErrMigrationFailed, "failed to read migration version", err)
	}
	return version, nil
}
