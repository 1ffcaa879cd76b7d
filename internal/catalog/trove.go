package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/siloworks/silo/internal/types"
)

// InsertTrove records a newly-installed Trove and returns its assigned ID.
// If t.InstalledAt is the zero Time, the current time is used.
func InsertTrove(ctx context.Context, q querier, t types.Trove) (int64, error) {
	installedAt := t.InstalledAt
	if installedAt.IsZero() {
		installedAt = time.Now().UTC()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO troves (name, version, kind, arch, description, installed_at, installed_by_changeset_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Version, string(t.Kind), t.Arch, t.Description,
		installedAt.Format(time.RFC3339), t.InstalledByChangeset)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

// DeleteTrove removes a Trove row; ON DELETE CASCADE takes its Files,
// Flavors, Provenance, and Dependencies with it.
func DeleteTrove(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM troves WHERE id = ?`, id)
	return mapSQLiteError(err)
}

func scanTrove(row interface {
	Scan(dest ...any) error
}) (types.Trove, error) {
	var t types.Trove
	var arch, description sql.NullString
	var installedAt string
	var installedBy sql.NullInt64
	var kind string
	err := row.Scan(&t.ID, &t.Name, &t.Version, &kind, &arch, &description, &installedAt, &installedBy)
	if err != nil {
		return types.Trove{}, err
	}
	t.Kind = types.TroveKind(kind)
	t.Arch = arch.String
	t.Description = description.String
	t.InstalledByChangeset = installedBy.Int64
	if ts, perr := time.Parse(time.RFC3339, installedAt); perr == nil {
		t.InstalledAt = ts
	}
	return t, nil
}

const troveColumns = `id, name, version, kind, arch, description, installed_at, installed_by_changeset_id`

// FindTroveByName returns an installed Trove named name, or a NotFound
// error if nothing by that name is installed. When several troves share the
// name (one per arch), it returns the first row SQLite yields; use
// FindTroveVersions or FindTroveByNameArch to tell them apart.
func FindTroveByName(ctx context.Context, q querier, name string) (types.Trove, error) {
	row := q.QueryRowContext(ctx, `SELECT `+troveColumns+` FROM troves WHERE name = ? LIMIT 1`, name)
	t, err := scanTrove(row)
	if err == sql.ErrNoRows {
		return types.Trove{}, types.NewNotFoundError("no trove installed named " + name)
	}
	if err != nil {
		return types.Trove{}, mapSQLiteError(err)
	}
	return t, nil
}

// FindTroveExact returns the installed Trove matching (name, version, arch)
// exactly, or NotFound. Backs the "already installed" pre-commit check.
func FindTroveExact(ctx context.Context, q querier, name, ver, arch string) (types.Trove, error) {
	row := q.QueryRowContext(ctx, `SELECT `+troveColumns+` FROM troves WHERE name = ? AND version = ? AND arch = ?`, name, ver, arch)
	t, err := scanTrove(row)
	if err == sql.ErrNoRows {
		return types.Trove{}, types.NewNotFoundError("no trove installed matching " + name + " " + ver + " " + arch)
	}
	if err != nil {
		return types.Trove{}, mapSQLiteError(err)
	}
	return t, nil
}

// FindTroveByID returns the Trove with the given primary key.
func FindTroveByID(ctx context.Context, q querier, id int64) (types.Trove, error) {
	row := q.QueryRowContext(ctx, `SELECT `+troveColumns+` FROM troves WHERE id = ?`, id)
	t, err := scanTrove(row)
	if err == sql.ErrNoRows {
		return types.Trove{}, types.NewNotFoundError("no trove with that id")
	}
	if err != nil {
		return types.Trove{}, mapSQLiteError(err)
	}
	return t, nil
}

// FindTroveVersions returns every installed Trove row named name — in
// principle more than one arch can share a name — ordered by name then
// version, per the Trove::find_by_name contract.
func FindTroveVersions(ctx context.Context, q querier, name string) ([]types.Trove, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+troveColumns+` FROM troves WHERE name = ? ORDER BY name, version`, name)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Trove
	for rows.Next() {
		t, err := scanTrove(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, t)
	}
	return out, mapSQLiteError(rows.Err())
}

// FindTroveByNameArch returns the installed Trove matching both name and
// arch, or NotFound. Used by the install classifier to detect an existing
// same-name-and-arch installation before deciding fresh/upgrade/downgrade.
func FindTroveByNameArch(ctx context.Context, q querier, name, arch string) (types.Trove, error) {
	row := q.QueryRowContext(ctx, `SELECT `+troveColumns+` FROM troves WHERE name = ? AND arch = ?`, name, arch)
	t, err := scanTrove(row)
	if err == sql.ErrNoRows {
		return types.Trove{}, types.NewNotFoundError("no trove installed named " + name + " for arch " + arch)
	}
	if err != nil {
		return types.Trove{}, mapSQLiteError(err)
	}
	return t, nil
}

// FindTrovesByChangeset returns every Trove installed by changesetID — the
// set a rollback must delete.
func FindTrovesByChangeset(ctx context.Context, q querier, changesetID int64) ([]types.Trove, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+troveColumns+` FROM troves WHERE installed_by_changeset_id = ? ORDER BY name`, changesetID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Trove
	for rows.Next() {
		t, err := scanTrove(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, t)
	}
	return out, mapSQLiteError(rows.Err())
}

// ListTroves returns every installed Trove ordered by name for deterministic
// output.
func ListTroves(ctx context.Context, q querier) ([]types.Trove, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+troveColumns+` FROM troves ORDER BY name`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Trove
	for rows.Next() {
		t, err := scanTrove(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, t)
	}
	return out, mapSQLiteError(rows.Err())
}

// SearchTroves returns installed Troves whose name contains pattern,
// case-insensitively, ordered by name.
func SearchTroves(ctx context.Context, q querier, pattern string) ([]types.Trove, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+troveColumns+` FROM troves
		WHERE name LIKE '%' || ? || '%' COLLATE NOCASE ORDER BY name`, pattern)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Trove
	for rows.Next() {
		t, err := scanTrove(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, t)
	}
	return out, mapSQLiteError(rows.Err())
}
