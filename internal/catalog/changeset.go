package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// InsertChangeset opens a new Changeset in pending status and returns its ID.
func InsertChangeset(ctx context.Context, q querier, description string) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO changesets (description, status, created_at) VALUES (?, ?, ?)`,
		description, string(types.ChangesetPending), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

// UpdateChangesetStatus transitions a Changeset to status, stamping
// applied_at or rolled_back_at atomically in the same statement so no
// intermediate state is observable by a concurrent reader.
func UpdateChangesetStatus(ctx context.Context, q querier, id int64, status types.ChangesetStatus) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var err error
	switch status {
	case types.ChangesetApplied:
		_, err = q.ExecContext(ctx, `UPDATE changesets SET status = ?, applied_at = ? WHERE id = ?`,
			string(status), now, id)
	case types.ChangesetRolledBack:
		_, err = q.ExecContext(ctx, `UPDATE changesets SET status = ?, rolled_back_at = ? WHERE id = ?`,
			string(status), now, id)
	default:
		_, err = q.ExecContext(ctx, `UPDATE changesets SET status = ? WHERE id = ?`, string(status), id)
	}
	return mapSQLiteError(err)
}

// MarkChangesetReversed records that reversingID undid originalID — used
// by rollback to link the two changesets together.
func MarkChangesetReversed(ctx context.Context, q querier, originalID, reversingID int64) error {
	_, err := q.ExecContext(ctx, `UPDATE changesets SET reversed_by_changeset_id = ? WHERE id = ?`,
		reversingID, originalID)
	return mapSQLiteError(err)
}

func scanChangeset(row interface{ Scan(dest ...any) error }) (types.Changeset, error) {
	var c types.Changeset
	var status, createdAt string
	var appliedAt, rolledBackAt sql.NullString
	var reversedBy sql.NullInt64
	err := row.Scan(&c.ID, &c.Description, &status, &createdAt, &appliedAt, &rolledBackAt, &reversedBy)
	if err != nil {
		return types.Changeset{}, err
	}
	c.Status = types.ChangesetStatus(status)
	if ts, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		c.CreatedAt = ts
	}
	if appliedAt.Valid {
		if ts, perr := time.Parse(time.RFC3339, appliedAt.String); perr == nil {
			c.AppliedAt = &ts
		}
	}
	if rolledBackAt.Valid {
		if ts, perr := time.Parse(time.RFC3339, rolledBackAt.String); perr == nil {
			c.RolledBackAt = &ts
		}
	}
	if reversedBy.Valid {
		c.ReversedBy = &reversedBy.Int64
	}
	return c, nil
}

const changesetColumns = `id, description, status, created_at, applied_at, rolled_back_at, reversed_by_changeset_id`

// FindChangesetByID returns the Changeset with the given primary key.
func FindChangesetByID(ctx context.Context, q querier, id int64) (types.Changeset, error) {
	row := q.QueryRowContext(ctx, `SELECT `+changesetColumns+` FROM changesets WHERE id = ?`, id)
	c, err := scanChangeset(row)
	if err == sql.ErrNoRows {
		return types.Changeset{}, types.NewNotFoundError("no changeset with that id")
	}
	if err != nil {
		return types.Changeset{}, mapSQLiteError(err)
	}
	return c, nil
}

// ListChangesets returns every Changeset, most recent first — the backing
// query for the "history" verb.
func ListChangesets(ctx context.Context, q querier) ([]types.Changeset, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+changesetColumns+` FROM changesets ORDER BY id DESC`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Changeset
	for rows.Next() {
		c, err := scanChangeset(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, c)
	}
	return out, mapSQLiteError(rows.Err())
}
