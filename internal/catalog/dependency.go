package catalog

import (
	"context"
	"database/sql"

	"github.com/siloworks/silo/internal/types"
)

// InsertDependency records one dependency edge from a Trove to a name it
// requires.
func InsertDependency(ctx context.Context, q querier, d types.Dependency) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO dependencies (trove_id, depends_on_name, depends_on_version, dep_kind, constraint_expr)
		VALUES (?, ?, ?, ?, ?)`,
		d.TroveID, d.DependsOnName, d.DependsOnVersion, string(d.Kind), d.Constraint)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

func scanDependency(row interface{ Scan(dest ...any) error }) (types.Dependency, error) {
	var d types.Dependency
	var version, constraint sql.NullString
	var kind string
	err := row.Scan(&d.ID, &d.TroveID, &d.DependsOnName, &version, &kind, &constraint)
	if err != nil {
		return types.Dependency{}, err
	}
	d.DependsOnVersion = version.String
	d.Kind = types.DependencyKind(kind)
	d.Constraint = constraint.String
	return d, nil
}

const dependencyColumns = `id, trove_id, depends_on_name, depends_on_version, dep_kind, constraint_expr`

// ListDependenciesByTrove returns every Dependency edge a trove declares.
func ListDependenciesByTrove(ctx context.Context, q querier, troveID int64) ([]types.Dependency, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+dependencyColumns+` FROM dependencies WHERE trove_id = ?`, troveID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []types.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, d)
	}
	return out, mapSQLiteError(rows.Err())
}

// FindDependents returns every installed Trove that depends on name —
// the reverse-impact query the Resolver's WhatBreaks uses.
func FindDependents(ctx context.Context, q querier, name string) ([]types.Trove, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+troveColumns+` FROM troves
		WHERE id IN (SELECT trove_id FROM dependencies WHERE depends_on_name = ?)
		ORDER BY name`, name)
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
