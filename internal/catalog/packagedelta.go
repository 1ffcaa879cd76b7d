package catalog

import (
	"context"
	"database/sql"

	"github.com/siloworks/silo/internal/types"
)

// UpsertPackageDelta records a binary delta discovered during repository
// sync, replacing any prior entry for the same (repository, name,
// from_version, to_version).
func UpsertPackageDelta(ctx context.Context, q querier, d types.PackageDelta) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO package_deltas
			(repository_id, name, from_version, to_version, from_hash, to_hash, delta_url, delta_size, delta_checksum, compression_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, name, from_version, to_version) DO UPDATE SET
			from_hash = excluded.from_hash,
			to_hash = excluded.to_hash,
			delta_url = excluded.delta_url,
			delta_size = excluded.delta_size,
			delta_checksum = excluded.delta_checksum,
			compression_ratio = excluded.compression_ratio`,
		d.RepositoryID, d.Name, d.FromVersion, d.ToVersion, d.FromHash, d.ToHash,
		d.DeltaURL, d.DeltaSize, d.DeltaChecksum, d.CompressionRatio)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

const packageDeltaColumns = `id, repository_id, name, from_version, to_version, from_hash, to_hash, delta_url, delta_size, delta_checksum, compression_ratio`

func scanPackageDelta(row interface{ Scan(dest ...any) error }) (types.PackageDelta, error) {
	var d types.PackageDelta
	err := row.Scan(&d.ID, &d.RepositoryID, &d.Name, &d.FromVersion, &d.ToVersion,
		&d.FromHash, &d.ToHash, &d.DeltaURL, &d.DeltaSize, &d.DeltaChecksum, &d.CompressionRatio)
	return d, err
}

// FindPackageDelta looks up the delta from fromVersion to toVersion of
// name, regardless of which repository discovered it. Repositories may
// disagree on a delta's availability; the first match wins, ordered by
// repository priority.
func FindPackageDelta(ctx context.Context, q querier, name, fromVersion, toVersion string) (types.PackageDelta, error) {
	row := q.QueryRowContext(ctx, `
		SELECT pd.`+packageDeltaColumnsAliased()+`
		FROM package_deltas pd
		JOIN repositories r ON r.id = pd.repository_id
		WHERE pd.name = ? AND pd.from_version = ? AND pd.to_version = ? AND r.enabled = 1
		ORDER BY r.priority DESC
		LIMIT 1`, name, fromVersion, toVersion)
	d, err := scanPackageDelta(row)
	if err == sql.ErrNoRows {
		return types.PackageDelta{}, types.NewNotFoundError("no delta for " + name + " " + fromVersion + " -> " + toVersion)
	}
	if err != nil {
		return types.PackageDelta{}, mapSQLiteError(err)
	}
	return d, nil
}

func packageDeltaColumnsAliased() string {
	return packageDeltaColumns
}
