// Package migrate applies an ordered set of versioned SQL steps to a
// database, tracking the current version in a small bookkeeping table.
// The shape (Migration, Step, CurrentVersion, Run) follows storj's
// private/migrate package; the implementation here is rebuilt against
// database/sql and modernc.org/sqlite rather than storj's driver wrapper.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// Step is one schema version: a human description and the SQL statements
// that advance the database from Version-1 to Version. Statements run in
// order inside a single transaction.
type Step struct {
	Version     int
	Description string
	SQL         []string
}

// Migration is an ordered list of Steps. Steps must be sorted ascending by
// Version with no gaps starting at 1; Run does not sort or validate beyond
// refusing to go backwards.
type Migration struct {
	Steps []Step
}

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL
)`

// CurrentVersion returns the database's recorded schema version, or 0 for
// a database that has never been migrated.
func (m Migration) CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return 0, fmt.Errorf("migrate: creating schema_version table: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migrate: reading schema_version: %w", err)
	}
	return version, nil
}

// Run advances db to the highest version named in m, applying each
// pending Step in its own transaction. Run is idempotent: calling it again
// on an up-to-date database is a no-op.
func (m Migration) Run(ctx context.Context, db *sql.DB) error {
	current, err := m.CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, step := range m.Steps {
		if step.Version <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrate: starting transaction for step %d: %w", step.Version, err)
		}

		if err := applyStep(ctx, tx, step); err != nil {
			tx.Rollback()
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schema_version (id, version) VALUES (1, ?)
			ON CONFLICT (id) DO UPDATE SET version = excluded.version`, step.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: recording step %d: %w", step.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate: committing step %d: %w", step.Version, err)
		}
		current = step.Version
	}
	return nil
}

func applyStep(ctx context.Context, tx *sql.Tx, step Step) error {
	for _, stmt := range step.SQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: step %d (%s): %w", step.Version, step.Description, err)
		}
	}
	return nil
}
