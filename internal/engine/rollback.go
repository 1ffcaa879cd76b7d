package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/types"
)

// Rollback reverses a previously applied changeset: it deletes every trove
// that changeset installed and marks it rolled_back, per spec §4.5's
// reverse-of-prior contract. Reversal of a remove changeset is
// unsupported, because remove does not snapshot the outgoing trove's
// content blobs back into a restorable shape (spec §9).
func (e *Engine) Rollback(ctx context.Context, changesetID int64) (RollbackResult, error) {
	cs, err := catalog.FindChangesetByID(ctx, e.sqlDB(), changesetID)
	if err != nil {
		return RollbackResult{}, err
	}
	if cs.Status != types.ChangesetApplied {
		return RollbackResult{}, types.NewNotReversibleError(fmt.Sprintf("changeset %d is not in applied state", changesetID))
	}

	troves, err := catalog.FindTrovesByChangeset(ctx, e.sqlDB(), changesetID)
	if err != nil {
		return RollbackResult{}, err
	}
	if len(troves) == 0 {
		return RollbackResult{}, types.NewNotReversibleError(fmt.Sprintf("changeset %d installed no troves to reverse", changesetID))
	}

	history, err := catalog.ListFileHistoryByChangeset(ctx, e.sqlDB(), changesetID)
	if err != nil {
		return RollbackResult{}, err
	}

	var reversingID int64
	err = e.Catalog.WithTransaction(ctx, func(tx *sql.Tx) error {
		reversingID, err = catalog.InsertChangeset(ctx, tx, fmt.Sprintf("Rollback of %d", changesetID))
		if err != nil {
			return err
		}
		for _, t := range troves {
			if err := catalog.DeleteTrove(ctx, tx, t.ID); err != nil {
				return err
			}
		}
		if err := catalog.UpdateChangesetStatus(ctx, tx, reversingID, types.ChangesetApplied); err != nil {
			return err
		}
		if err := catalog.UpdateChangesetStatus(ctx, tx, changesetID, types.ChangesetRolledBack); err != nil {
			return err
		}
		return catalog.MarkChangesetReversed(ctx, tx, changesetID, reversingID)
	})
	if err != nil {
		return RollbackResult{}, err
	}

	result := RollbackResult{ReversingChangesetID: reversingID, ReversedChangesetID: changesetID}
	var deployErrs []error
	for _, h := range history {
		if h.Action != types.FileHistoryAdd && h.Action != types.FileHistoryModify {
			continue
		}
		if err := e.Deployer.Remove(h.Path); err != nil {
			deployErrs = append(deployErrs, err)
		}
	}
	if len(deployErrs) > 0 {
		result.Degraded = true
		result.DeployErrs = deployErrs
		e.logger.Error().Int64("changeset_id", reversingID).Int("failed_files", len(deployErrs)).
			Msg("rollback committed but one or more files failed to retract")
	}
	return result, nil
}
