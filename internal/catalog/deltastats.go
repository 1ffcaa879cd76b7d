package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// InsertDeltaStats records one update changeset's delta-application
// outcomes. One row per changeset; the UNIQUE(changeset_id) constraint
// rejects a second insert for the same changeset as a Conflict.
func InsertDeltaStats(ctx context.Context, q querier, s types.DeltaStats) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO delta_stats (changeset_id, bytes_saved, deltas_applied, full_downloads, delta_failures, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ChangesetID, s.BytesSaved, s.DeltasApplied, s.FullDownloads, s.DeltaFailures,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

const deltaStatsColumns = `id, changeset_id, bytes_saved, deltas_applied, full_downloads, delta_failures, created_at`

func scanDeltaStats(row interface{ Scan(dest ...any) error }) (types.DeltaStats, error) {
	var s types.DeltaStats
	var createdAt string
	err := row.Scan(&s.ID, &s.ChangesetID, &s.BytesSaved, &s.DeltasApplied, &s.FullDownloads, &s.DeltaFailures, &createdAt)
	if err != nil {
		return types.DeltaStats{}, err
	}
	if ts, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		s.CreatedAt = ts
	}
	return s, nil
}

// FindDeltaStatsByChangeset returns the DeltaStats row for one changeset.
func FindDeltaStatsByChangeset(ctx context.Context, q querier, changesetID int64) (types.DeltaStats, error) {
	row := q.QueryRowContext(ctx, `SELECT `+deltaStatsColumns+` FROM delta_stats WHERE changeset_id = ?`, changesetID)
	s, err := scanDeltaStats(row)
	if err == sql.ErrNoRows {
		return types.DeltaStats{}, types.NewNotFoundError("no delta stats recorded for that changeset")
	}
	if err != nil {
		return types.DeltaStats{}, mapSQLiteError(err)
	}
	return s, nil
}

// ListDeltaStats returns every DeltaStats row, most recent first — the
// backing query for the delta-stats verb's detail view.
func ListDeltaStats(ctx context.Context, q querier) ([]types.DeltaStats, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+deltaStatsColumns+` FROM delta_stats ORDER BY id DESC`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.DeltaStats
	for rows.Next() {
		s, err := scanDeltaStats(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, s)
	}
	return out, mapSQLiteError(rows.Err())
}

// DeltaStatsSummary is the aggregate across every update changeset, the
// shape the delta-stats verb's top-line report uses.
type DeltaStatsSummary struct {
	TotalBytesSaved    int64
	TotalDeltasApplied int
	TotalFullDownloads int
	TotalDeltaFailures int
}

// AggregateDeltaStats sums every DeltaStats row into one summary.
func AggregateDeltaStats(ctx context.Context, q querier) (DeltaStatsSummary, error) {
	row := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(bytes_saved), 0), COALESCE(SUM(deltas_applied), 0),
		       COALESCE(SUM(full_downloads), 0), COALESCE(SUM(delta_failures), 0)
		FROM delta_stats`)
	var s DeltaStatsSummary
	err := row.Scan(&s.TotalBytesSaved, &s.TotalDeltasApplied, &s.TotalFullDownloads, &s.TotalDeltaFailures)
	if err != nil {
		return DeltaStatsSummary{}, mapSQLiteError(err)
	}
	return s, nil
}
