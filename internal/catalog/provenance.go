package catalog

import (
	"context"
	"database/sql"

	"github.com/siloworks/silo/internal/types"
)

// InsertProvenance records the build-origin metadata for a Trove. At most
// one Provenance row exists per trove; a second insert fails the UNIQUE
// (trove_id) constraint as a Conflict.
func InsertProvenance(ctx context.Context, q querier, p types.Provenance) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO provenance (trove_id, source_url, source_branch, source_commit, build_host, build_time, builder)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.TroveID, p.SourceURL, p.Branch, p.Commit, p.BuildHost, p.BuildTime, p.Builder)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

// FindProvenanceByTrove returns the Provenance row for troveID, or NotFound
// if the installing package never exposed provenance fields.
func FindProvenanceByTrove(ctx context.Context, q querier, troveID int64) (types.Provenance, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, trove_id, source_url, source_branch, source_commit, build_host, build_time, builder
		FROM provenance WHERE trove_id = ?`, troveID)

	var p types.Provenance
	var sourceURL, branch, commit, buildHost, buildTime, builder sql.NullString
	err := row.Scan(&p.ID, &p.TroveID, &sourceURL, &branch, &commit, &buildHost, &buildTime, &builder)
	if err == sql.ErrNoRows {
		return types.Provenance{}, types.NewNotFoundError("no provenance recorded for trove")
	}
	if err != nil {
		return types.Provenance{}, mapSQLiteError(err)
	}
	p.SourceURL, p.Branch, p.Commit = sourceURL.String, branch.String, commit.String
	p.BuildHost, p.BuildTime, p.Builder = buildHost.String, buildTime.String, builder.String
	return p, nil
}
