package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the
// application expects.
const ExpectedSchemaVersion = 1

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Snapshot schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS snapshots (
					scope_account TEXT NOT NULL,
					statement_period TEXT NOT NULL,
					fetched_at DATETIME NOT NULL,
					PRIMARY KEY (scope_account, statement_period)
				)`,

				`CREATE TABLE IF NOT EXISTS snapshot_rows (
					scope_account TEXT NOT NULL,
					statement_period TEXT NOT NULL,
					position INTEGER NOT NULL,
					id TEXT NOT NULL,
					account TEXT NOT NULL,
					name TEXT NOT NULL,
					amount TEXT NOT NULL,
					category TEXT,
					criticality TEXT,
					payment_method TEXT,
					memo TEXT,
					transaction_date DATETIME NOT NULL,
					source TEXT NOT NULL,
					PRIMARY KEY (scope_account, statement_period, id)
				)`,
				`CREATE INDEX idx_snapshot_rows_scope
					ON snapshot_rows(scope_account, statement_period, position)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the snapshot database up to the expected schema version.
func (s *SnapshotStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	var current sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM schema_versions`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if current.Valid && migration.Version <= int(current.Int64) {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, migration.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied schema migration",
			"version", migration.Version,
			"description", migration.Description)
	}
	return nil
}
