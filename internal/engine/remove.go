package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/resolver"
	"github.com/siloworks/silo/internal/types"
)

// Remove deletes the installed trove named name, refusing if any other
// installed trove still depends on it, per spec §4.5's removal contract.
func (e *Engine) Remove(ctx context.Context, name string) (RemoveResult, error) {
	trove, err := catalog.FindTroveByName(ctx, e.sqlDB(), name)
	if err != nil {
		return RemoveResult{}, err
	}

	dependents, err := catalog.FindDependents(ctx, e.sqlDB(), name)
	if err != nil {
		return RemoveResult{}, err
	}
	if names := resolver.DependentNames(dependents); len(names) > 0 {
		return RemoveResult{}, types.NewDependenciesWouldBreakError(name, names)
	}

	files, err := catalog.ListFilesByTrove(ctx, e.sqlDB(), trove.ID)
	if err != nil {
		return RemoveResult{}, err
	}

	var changesetID int64
	err = e.Catalog.WithTransaction(ctx, func(tx *sql.Tx) error {
		changesetID, err = catalog.InsertChangeset(ctx, tx, fmt.Sprintf("Remove %s-%s", trove.Name, trove.Version))
		if err != nil {
			return err
		}
		if err := catalog.DeleteTrove(ctx, tx, trove.ID); err != nil {
			return err
		}
		return catalog.UpdateChangesetStatus(ctx, tx, changesetID, types.ChangesetApplied)
	})
	if err != nil {
		return RemoveResult{}, err
	}

	result := RemoveResult{ChangesetID: changesetID}
	var deployErrs []error
	for _, f := range files {
		if err := e.Deployer.Remove(f.Path); err != nil {
			deployErrs = append(deployErrs, err)
		}
	}
	if len(deployErrs) > 0 {
		result.Degraded = true
		result.DeployErrs = deployErrs
		e.logger.Error().Int64("changeset_id", changesetID).Int("failed_files", len(deployErrs)).
			Msg("remove committed but one or more files failed to retract")
	}
	return result, nil
}

// WhatBreaks returns the distinct names of every installed trove that
// depends on name — the same check Remove runs, exposed as a standalone
// diagnostic per spec §4.4.
func (e *Engine) WhatBreaks(ctx context.Context, name string) ([]string, error) {
	dependents, err := catalog.FindDependents(ctx, e.sqlDB(), name)
	if err != nil {
		return nil, err
	}
	return resolver.DependentNames(dependents), nil
}
