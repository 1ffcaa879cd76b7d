package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// InsertRepository records a newly configured remote package source.
func InsertRepository(ctx context.Context, q querier, r types.Repository) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO repositories
			(name, url, format, enabled, priority, gpg_check, gpg_key_url, metadata_expire_secs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.URL, string(r.Format), r.Enabled, r.Priority, r.GPGCheck, r.GPGKeyURL,
		r.MetadataExpireSecs, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

// DeleteRepository removes a Repository row; ON DELETE CASCADE takes its
// RepositoryPackages and PackageDeltas with it.
func DeleteRepository(ctx context.Context, q querier, name string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM repositories WHERE name = ?`, name)
	return mapSQLiteError(err)
}

// SetRepositoryEnabled flips a Repository's enabled flag by name.
func SetRepositoryEnabled(ctx context.Context, q querier, name string, enabled bool) error {
	_, err := q.ExecContext(ctx, `UPDATE repositories SET enabled = ? WHERE name = ?`, enabled, name)
	return mapSQLiteError(err)
}

// UpdateRepositoryLastSync stamps a Repository's last_sync time to now.
func UpdateRepositoryLastSync(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, `UPDATE repositories SET last_sync = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id)
	return mapSQLiteError(err)
}

const repositoryColumns = `id, name, url, format, enabled, priority, gpg_check, gpg_key_url, metadata_expire_secs, last_sync, created_at`

func scanRepository(row interface{ Scan(dest ...any) error }) (types.Repository, error) {
	var r types.Repository
	var format string
	var gpgKeyURL sql.NullString
	var lastSync sql.NullString
	var createdAt string
	err := row.Scan(&r.ID, &r.Name, &r.URL, &format, &r.Enabled, &r.Priority, &r.GPGCheck,
		&gpgKeyURL, &r.MetadataExpireSecs, &lastSync, &createdAt)
	if err != nil {
		return types.Repository{}, err
	}
	r.Format = types.RepositoryFormat(format)
	r.GPGKeyURL = gpgKeyURL.String
	if lastSync.Valid {
		if ts, perr := time.Parse(time.RFC3339, lastSync.String); perr == nil {
			r.LastSync = &ts
		}
	}
	if ts, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		r.CreatedAt = ts
	}
	return r, nil
}

// FindRepositoryByName returns the Repository named name.
func FindRepositoryByName(ctx context.Context, q querier, name string) (types.Repository, error) {
	row := q.QueryRowContext(ctx, `SELECT `+repositoryColumns+` FROM repositories WHERE name = ?`, name)
	r, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return types.Repository{}, types.NewNotFoundError("no repository named " + name)
	}
	if err != nil {
		return types.Repository{}, mapSQLiteError(err)
	}
	return r, nil
}

// ListRepositories returns every configured Repository, highest priority
// first, then name, for deterministic provider selection and display.
func ListRepositories(ctx context.Context, q querier) ([]types.Repository, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+repositoryColumns+` FROM repositories ORDER BY priority DESC, name`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, r)
	}
	return out, mapSQLiteError(rows.Err())
}

// ListEnabledRepositories is ListRepositories filtered to enabled=true, the
// set the Resolver and repository sync are allowed to consult.
func ListEnabledRepositories(ctx context.Context, q querier) ([]types.Repository, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+repositoryColumns+` FROM repositories WHERE enabled = 1 ORDER BY priority DESC, name`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, r)
	}
	return out, mapSQLiteError(rows.Err())
}
