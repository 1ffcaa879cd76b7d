package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// InsertFile records one File owned by a Trove.
func InsertFile(ctx context.Context, q querier, f types.File) (int64, error) {
	installedAt := f.InstalledAt
	if installedAt.IsZero() {
		installedAt = time.Now().UTC()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO files (path, sha256_hash, size, mode, owner, group_name, trove_id, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Path, f.SHA256, f.Size, f.Mode, f.Owner, f.Group, f.TroveID, installedAt.Format(time.RFC3339))
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

// DeleteFile removes the File row for path.
func DeleteFile(ctx context.Context, q querier, path string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	return mapSQLiteError(err)
}

const fileColumns = `id, path, sha256_hash, size, mode, owner, group_name, trove_id, installed_at`

func scanFile(row interface{ Scan(dest ...any) error }) (types.File, error) {
	var f types.File
	var owner, group sql.NullString
	var installedAt string
	err := row.Scan(&f.ID, &f.Path, &f.SHA256, &f.Size, &f.Mode, &owner, &group, &f.TroveID, &installedAt)
	if err != nil {
		return types.File{}, err
	}
	f.Owner = owner.String
	f.Group = group.String
	if ts, perr := time.Parse(time.RFC3339, installedAt); perr == nil {
		f.InstalledAt = ts
	}
	return f, nil
}

// FindFileByPath returns the File tracked at path, or NotFound if no Trove
// owns it.
func FindFileByPath(ctx context.Context, q querier, path string) (types.File, error) {
	row := q.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return types.File{}, types.NewNotFoundError("no file tracked at path " + path)
	}
	if err != nil {
		return types.File{}, mapSQLiteError(err)
	}
	return f, nil
}

// ListFilesByTrove returns every File owned by troveID, ordered by path.
func ListFilesByTrove(ctx context.Context, q querier, troveID int64) ([]types.File, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+fileColumns+` FROM files WHERE trove_id = ? ORDER BY path`, troveID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, f)
	}
	return out, mapSQLiteError(rows.Err())
}
