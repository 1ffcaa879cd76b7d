package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// UpsertFileContent records (or re-confirms) that a blob with hash sha256
// exists in the Object Store at contentPath, incrementing its reference
// count. Called once per File that points at that hash, so the count tracks
// how many installed Files currently share the blob.
func UpsertFileContent(ctx context.Context, q querier, sha256, contentPath string, size int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO file_contents (sha256_hash, content_path, size, ref_count, stored_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (sha256_hash) DO UPDATE SET ref_count = ref_count + 1`,
		sha256, contentPath, size, time.Now().UTC().Format(time.RFC3339))
	return mapSQLiteError(err)
}

// ReleaseFileContent decrements the reference count for sha256, returning
// the count after decrement. A caller that observes 0 should garbage
// collect the underlying blob from the Object Store and delete this row.
func ReleaseFileContent(ctx context.Context, q querier, sha256 string) (int64, error) {
	_, err := q.ExecContext(ctx, `UPDATE file_contents SET ref_count = ref_count - 1 WHERE sha256_hash = ?`, sha256)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	var count int64
	err = q.QueryRowContext(ctx, `SELECT ref_count FROM file_contents WHERE sha256_hash = ?`, sha256).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, mapSQLiteError(err)
}

// DeleteFileContent removes the index row for sha256. It does not touch the
// Object Store itself; callers unlink the blob separately once they've
// decided it is truly unreferenced.
func DeleteFileContent(ctx context.Context, q querier, sha256 string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM file_contents WHERE sha256_hash = ?`, sha256)
	return mapSQLiteError(err)
}

// FindFileContent returns the FileContent index entry for sha256.
func FindFileContent(ctx context.Context, q querier, sha256 string) (types.FileContent, error) {
	row := q.QueryRowContext(ctx, `SELECT sha256_hash, content_path, size, stored_at FROM file_contents WHERE sha256_hash = ?`, sha256)
	var fc types.FileContent
	var storedAt string
	err := row.Scan(&fc.SHA256, &fc.ContentPath, &fc.Size, &storedAt)
	if err == sql.ErrNoRows {
		return types.FileContent{}, types.NewNotFoundError("no content indexed for hash " + sha256)
	}
	if err != nil {
		return types.FileContent{}, mapSQLiteError(err)
	}
	if ts, perr := time.Parse(time.RFC3339, storedAt); perr == nil {
		fc.StoredAt = ts
	}
	return fc, nil
}
