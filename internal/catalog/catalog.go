package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/siloworks/silo/internal/log"
	"github.com/siloworks/silo/internal/types"
)

// Catalog is the open handle onto the SQLite-backed catalog database.
type Catalog struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Open opens (creating if absent) the SQLite database at path, applies
// pragmas matching the concurrency model in spec (WAL mode, a 5s busy
// timeout, foreign keys enforced), and migrates it to the current schema
// version. It never returns a Catalog pointed at a stale schema.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, types.NewInitError("creating catalog directory", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, types.NewInitError("opening catalog database", err)
	}
	db.SetMaxOpenConns(1)

	if err := schemaMigration.Run(ctx, db); err != nil {
		db.Close()
		return nil, types.NewInitError("migrating catalog schema", err)
	}

	return &Catalog{db: db, path: path, logger: log.WithComponent("catalog")}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB exposes the underlying connection for read-only pre-commit checks
// that must run outside any transaction (see spec §4.5). Callers must not
// use it to open a second, competing transaction.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting CRUD helpers
// run either standalone or inside a WithTransaction closure.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTransaction runs fn inside a single SQLite transaction, committing on
// a nil return and rolling back otherwise. Transactions do not nest: fn must
// not call WithTransaction again on the same Catalog.
func (c *Catalog) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteError(err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error().Err(rbErr).Msg("rolling back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// mapSQLiteError classifies a raw driver error into the closed error
// taxonomy. modernc.org/sqlite surfaces constraint violations as plain
// errors with a SQLite-formatted message rather than a distinct Go type per
// constraint kind, so classification is by substring, matching the message
// text SQLite itself emits.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return types.NewConflictError("unique constraint violated: " + msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return types.NewReferentialIntegrityError("referential integrity violated: " + msg)
	case strings.Contains(msg, "CHECK constraint failed"):
		return types.NewConflictError("check constraint violated: " + msg)
	default:
		return types.NewDatabaseError("catalog operation failed", err)
	}
}
