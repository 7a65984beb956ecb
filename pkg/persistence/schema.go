package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the version migrate brings a database to.
const CurrentSchemaVersion = 2

// migrations[i] upgrades a database from version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS workflow_runs (
			id             TEXT PRIMARY KEY,
			request        TEXT NOT NULL,
			final_state    TEXT NOT NULL,
			abort_reason   TEXT NOT NULL DEFAULT '',
			tech_stack     TEXT NOT NULL DEFAULT '',
			test_framework TEXT NOT NULL DEFAULT '',
			ui_framework   TEXT NOT NULL DEFAULT '',
			states         TEXT NOT NULL DEFAULT '',
			started_at     TEXT NOT NULL,
			finished_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_artifacts (
			id       TEXT PRIMARY KEY,
			run_id   TEXT NOT NULL REFERENCES workflow_runs(id) ON DELETE CASCADE,
			kind     TEXT NOT NULL,
			path     TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_artifacts_run ON run_artifacts(run_id)`,
	},
	{
		`CREATE TABLE IF NOT EXISTS glossary_terms (
			term       TEXT PRIMARY KEY COLLATE NOCASE,
			definition TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	},
}

func migrate(ctx context.Context, db *sql.DB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for version := current + 1; version <= CurrentSchemaVersion; version++ {
		for _, stmt := range migrations[version-1] {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration to version %d failed: %w", version, err)
			}
		}
		if _, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, or 0 for a fresh database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("schema version scan error: %w", err)
	}
	return version, nil
}
