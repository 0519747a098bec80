package sqlstorage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Migration struct {
	Version     int
	Description string
	Statements  func(d dialect) []string
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create events, users and calendar tables",
		Statements: func(d dialect) []string {
			return []string{
				`CREATE TABLE IF NOT EXISTS events (
					id ` + d.identity + `,
					name TEXT NOT NULL DEFAULT '',
					"date" TEXT NOT NULL DEFAULT '',
					"time" TEXT NOT NULL DEFAULT '',
					place TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					image_url TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE IF NOT EXISTS users (
					id ` + d.identity + `,
					login TEXT NOT NULL UNIQUE,
					password TEXT NOT NULL
				)`,
				// References are checked by the application only.
				`CREATE TABLE IF NOT EXISTS calendar (
					id ` + d.identity + `,
					user_id BIGINT NOT NULL,
					event_id BIGINT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS calendar_user_id_idx ON calendar (user_id)`,
			}
		},
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// RunMigrations applies every migration newer than the recorded schema
// version inside a single transaction.
func RunMigrations(ctx context.Context, db *sqlx.DB, d dialect, migrations []Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := tx.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		for _, stmt := range m.Statements(d) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
		}
		_, err := tx.ExecContext(
			ctx,
			tx.Rebind("INSERT INTO schema_migrations(version, description) VALUES(?, ?)"),
			m.Version, m.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		current = m.Version
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	return nil
}
