package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// UpsertRepositoryPackage records one synced RepositoryPackage row,
// replacing any prior sync of the same (repository_id, name, version,
// arch) with fresher metadata.
func UpsertRepositoryPackage(ctx context.Context, q querier, p types.RepositoryPackage) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO repository_packages
			(repository_id, name, version, arch, description, checksum, size, download_url, deps_json, metadata_json, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, name, version, arch) DO UPDATE SET
			description = excluded.description,
			checksum = excluded.checksum,
			size = excluded.size,
			download_url = excluded.download_url,
			deps_json = excluded.deps_json,
			metadata_json = excluded.metadata_json,
			synced_at = excluded.synced_at`,
		p.RepositoryID, p.Name, p.Version, p.Arch, p.Description, p.Checksum, p.Size,
		p.DownloadURL, nonEmptyJSON(p.DepsJSON), nonEmptyJSON(p.MetadataJSON),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

func nonEmptyJSON(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}

const repositoryPackageColumns = `id, repository_id, name, version, arch, description, checksum, size, download_url, deps_json, metadata_json, synced_at`

func scanRepositoryPackage(row interface{ Scan(dest ...any) error }) (types.RepositoryPackage, error) {
	var p types.RepositoryPackage
	var arch, description, checksum sql.NullString
	var syncedAt string
	err := row.Scan(&p.ID, &p.RepositoryID, &p.Name, &p.Version, &arch, &description,
		&checksum, &p.Size, &p.DownloadURL, &p.DepsJSON, &p.MetadataJSON, &syncedAt)
	if err != nil {
		return types.RepositoryPackage{}, err
	}
	p.Arch = arch.String
	p.Description = description.String
	p.Checksum = checksum.String
	if ts, perr := time.Parse(time.RFC3339, syncedAt); perr == nil {
		p.SyncedAt = ts
	}
	return p, nil
}

// ProviderCandidate is one repository's synced offering of a package name,
// joined against its owning Repository's priority and enabled state — the
// row shape the Resolver's Oracle needs to pick a provider without itself
// touching SQL.
type ProviderCandidate struct {
	Package            types.RepositoryPackage
	RepositoryName     string
	RepositoryPriority int
}

// FindProviderCandidates returns every RepositoryPackage named name from an
// enabled Repository, joined with that repository's name and priority.
func FindProviderCandidates(ctx context.Context, q querier, name string) ([]ProviderCandidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT rp.`+repositoryPackageColumnsAliased()+`, r.name, r.priority
		FROM repository_packages rp
		JOIN repositories r ON r.id = rp.repository_id
		WHERE rp.name = ? AND r.enabled = 1`, name)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []ProviderCandidate
	for rows.Next() {
		var c ProviderCandidate
		var arch, description, checksum sql.NullString
		var syncedAt string
		if err := rows.Scan(&c.Package.ID, &c.Package.RepositoryID, &c.Package.Name, &c.Package.Version,
			&arch, &description, &checksum, &c.Package.Size, &c.Package.DownloadURL,
			&c.Package.DepsJSON, &c.Package.MetadataJSON, &syncedAt,
			&c.RepositoryName, &c.RepositoryPriority); err != nil {
			return nil, mapSQLiteError(err)
		}
		c.Package.Arch = arch.String
		c.Package.Description = description.String
		c.Package.Checksum = checksum.String
		if ts, perr := time.Parse(time.RFC3339, syncedAt); perr == nil {
			c.Package.SyncedAt = ts
		}
		out = append(out, c)
	}
	return out, mapSQLiteError(rows.Err())
}

func repositoryPackageColumnsAliased() string {
	return "id, repository_id, name, version, arch, description, checksum, size, download_url, deps_json, metadata_json, synced_at"
}

// SearchRepositoryPackages returns RepositoryPackage rows whose name
// contains pattern, case-insensitively, ordered by (priority DESC, name,
// version) per the determinism requirement on search.
func SearchRepositoryPackages(ctx context.Context, q querier, pattern string) ([]ProviderCandidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT rp.`+repositoryPackageColumnsAliased()+`, r.name, r.priority
		FROM repository_packages rp
		JOIN repositories r ON r.id = rp.repository_id
		WHERE rp.name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY r.priority DESC, rp.name, rp.version`, pattern)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []ProviderCandidate
	for rows.Next() {
		var c ProviderCandidate
		var arch, description, checksum sql.NullString
		var syncedAt string
		if err := rows.Scan(&c.Package.ID, &c.Package.RepositoryID, &c.Package.Name, &c.Package.Version,
			&arch, &description, &checksum, &c.Package.Size, &c.Package.DownloadURL,
			&c.Package.DepsJSON, &c.Package.MetadataJSON, &syncedAt,
			&c.RepositoryName, &c.RepositoryPriority); err != nil {
			return nil, mapSQLiteError(err)
		}
		c.Package.Arch = arch.String
		c.Package.Description = description.String
		c.Package.Checksum = checksum.String
		if ts, perr := time.Parse(time.RFC3339, syncedAt); perr == nil {
			c.Package.SyncedAt = ts
		}
		out = append(out, c)
	}
	return out, mapSQLiteError(rows.Err())
}

// ListRepositoryPackagesByRepository returns every synced package row for
// one repository, ordered by name then version.
func ListRepositoryPackagesByRepository(ctx context.Context, q querier, repositoryID int64) ([]types.RepositoryPackage, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+repositoryPackageColumns+` FROM repository_packages
		WHERE repository_id = ? ORDER BY name, version`, repositoryID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.RepositoryPackage
	for rows.Next() {
		p, err := scanRepositoryPackage(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, p)
	}
	return out, mapSQLiteError(rows.Err())
}
