package catalog

import (
	"context"

	"github.com/siloworks/silo/internal/types"
)

// InsertFlavor attaches a (key, value) build-variation flavor to a Trove.
// The UNIQUE (trove_id, key) constraint surfaces as a Conflict error if the
// same key is inserted twice for one trove.
func InsertFlavor(ctx context.Context, q querier, f types.Flavor) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO flavors (trove_id, key, value) VALUES (?, ?, ?)`,
		f.TroveID, f.Key, f.Value)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

// ListFlavorsByTrove returns every Flavor attached to troveID.
func ListFlavorsByTrove(ctx context.Context, q querier, troveID int64) ([]types.Flavor, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, trove_id, key, value FROM flavors WHERE trove_id = ? ORDER BY key`, troveID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Flavor
	for rows.Next() {
		var f types.Flavor
		if err := rows.Scan(&f.ID, &f.TroveID, &f.Key, &f.Value); err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, f)
	}
	return out, mapSQLiteError(rows.Err())
}
