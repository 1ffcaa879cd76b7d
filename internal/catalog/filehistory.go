package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// InsertFileHistory appends one FileHistory row. History is append-only:
// there is no update or delete for it.
func InsertFileHistory(ctx context.Context, q querier, h types.FileHistory) (int64, error) {
	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO file_history (changeset_id, path, sha256_hash, action, previous_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ChangesetID, h.Path, h.SHA256, string(h.Action), h.PreviousHash, createdAt.Format(time.RFC3339))
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

func scanFileHistory(row interface{ Scan(dest ...any) error }) (types.FileHistory, error) {
	var h types.FileHistory
	var sha256, previousHash sql.NullString
	var action, createdAt string
	err := row.Scan(&h.ID, &h.ChangesetID, &h.Path, &sha256, &action, &previousHash, &createdAt)
	if err != nil {
		return types.FileHistory{}, err
	}
	h.SHA256 = sha256.String
	h.Action = types.FileHistoryAction(action)
	h.PreviousHash = previousHash.String
	if ts, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		h.CreatedAt = ts
	}
	return h, nil
}

const fileHistoryColumns = `id, changeset_id, path, sha256_hash, action, previous_hash, created_at`

// ListFileHistoryByPath returns every FileHistory entry for path, oldest
// first, regardless of whether the path currently exists.
func ListFileHistoryByPath(ctx context.Context, q querier, path string) ([]types.FileHistory, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+fileHistoryColumns+` FROM file_history WHERE path = ? ORDER BY id`, path)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.FileHistory
	for rows.Next() {
		h, err := scanFileHistory(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, h)
	}
	return out, mapSQLiteError(rows.Err())
}

// ListFileHistoryByChangeset returns every FileHistory entry recorded by
// one changeset, in insertion order — the basis for reversing it.
func ListFileHistoryByChangeset(ctx context.Context, q querier, changesetID int64) ([]types.FileHistory, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+fileHistoryColumns+` FROM file_history WHERE changeset_id = ? ORDER BY id`, changesetID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.FileHistory
	for rows.Next() {
		h, err := scanFileHistory(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, h)
	}
	return out, mapSQLiteError(rows.Err())
}
