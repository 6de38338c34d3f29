// Package migrations contains database migration definitions for the spond_sync run state.
package migrations

import (
	"context"
	"fmt"
	"sync"

	migrator "github.com/cybertec-postgresql/pgx-migrator"
	"github.com/jackc/pgx/v5"
)

// TableName is where the migrator records applied migrations
const TableName = "spond_sync_migrations"

// migrations holds function returning all upgrade migrations needed
var migrations func() migrator.Option = func() migrator.Option {
	return migrator.Migrations(
		&migrator.Migration{
			Name: "001_create_sync_state",
			Func: func(ctx context.Context, tx pgx.Tx) error {
				_, err := tx.Exec(ctx, createSyncStateSQL)
				return err
			},
		},
		// adding new migration here

		// &migrator.Migration{
		// 	Name: "Short description of a migration",
		// 	Func: func(ctx context.Context, tx pgx.Tx) error {
		// 		...
		// 	},
		// },
	)
}

// createSyncStateSQL keeps one row per job describing its latest run
const createSyncStateSQL = `
	CREATE TABLE sync_state (
		job text PRIMARY KEY,
		run_id uuid NOT NULL,
		started_at timestamp with time zone NOT NULL,
		finished_at timestamp with time zone NOT NULL,
		dry_run boolean NOT NULL DEFAULT false,
		inserted integer NOT NULL DEFAULT 0,
		updated integer NOT NULL DEFAULT 0,
		deleted integer NOT NULL DEFAULT 0,
		quarantined integer NOT NULL DEFAULT 0,
		error text,
		last_success_at timestamp with time zone
	);
`

var (
	migratorInstance *migrator.Migrator
	once             sync.Once
)

// getMigrator returns a singleton migrator instance
func getMigrator() (*migrator.Migrator, error) {
	var err error
	once.Do(func() {
		migratorInstance, err = migrator.New(
			migrations(),
			migrator.TableName(TableName),
		)
	})
	return migratorInstance, err
}

// Apply applies all pending migrations to the database
func Apply(ctx context.Context, conn *pgx.Conn) error {
	m, err := getMigrator()
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Migrate(ctx, conn); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// NeedsUpgrade checks if the database needs migration
func NeedsUpgrade(ctx context.Context, conn *pgx.Conn) (bool, error) {
	m, err := getMigrator()
	if err != nil {
		return false, fmt.Errorf("failed to create migrator: %w", err)
	}

	needUpgrade, err := m.NeedUpgrade(ctx, conn)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}

	return needUpgrade, nil
}
