package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/deployer"
	"github.com/siloworks/silo/internal/objectstore"
	"github.com/siloworks/silo/internal/types"
	"github.com/siloworks/silo/internal/version"
)

// plannedFile is the pre-commit classification of one incoming file.
type plannedFile struct {
	file   types.PackageFile
	hash   string
	action types.FileHistoryAction
}

// Install applies pkg to root as either a fresh install or an upgrade of
// an existing trove with the same (name, arch), per spec §4.5's install
// contract. It runs the full pre-check → transaction → deploy pipeline and
// never partially commits Catalog state: any pre-commit or in-transaction
// error leaves the Catalog exactly as it was.
func (e *Engine) Install(ctx context.Context, pkg types.Package) (InstallResult, error) {
	outcome := OutcomeFreshInstall
	var oldTrove *types.Trove

	existing, err := catalog.FindTroveByNameArch(ctx, e.sqlDB(), pkg.Name(), pkg.Arch())
	switch {
	case types.Is(err, types.KindNotFound):
		// no same-name-and-arch trove installed: fresh install.
	case err != nil:
		return InstallResult{}, err
	default:
		if existing.Version == pkg.Version() {
			return InstallResult{}, types.NewAlreadyInstalledError(pkg.Name(), pkg.Version(), pkg.Arch())
		}
		oldVer, err := version.Parse(existing.Version)
		if err != nil {
			return InstallResult{}, types.NewVersionParseError(existing.Version)
		}
		newVer, err := version.Parse(pkg.Version())
		if err != nil {
			return InstallResult{}, types.NewVersionParseError(pkg.Version())
		}
		if version.Compare(newVer, oldVer) != version.Greater {
			return InstallResult{}, types.NewDowngradeRefusedError(pkg.Name(), existing.Version, pkg.Version())
		}
		outcome = OutcomeUpgrade
		oldTrove = &existing
	}

	planned, err := e.planFiles(ctx, pkg, oldTrove)
	if err != nil {
		return InstallResult{}, err
	}

	var changesetID, troveID int64
	var outgoingFiles []types.File

	err = e.Catalog.WithTransaction(ctx, func(tx *sql.Tx) error {
		description := fmt.Sprintf("Install %s-%s", pkg.Name(), pkg.Version())
		if outcome == OutcomeUpgrade {
			description = fmt.Sprintf("Upgrade %s from %s to %s", pkg.Name(), oldTrove.Version, pkg.Version())
		}

		changesetID, err = catalog.InsertChangeset(ctx, tx, description)
		if err != nil {
			return err
		}

		if outcome == OutcomeUpgrade {
			outgoingFiles, err = catalog.ListFilesByTrove(ctx, tx, oldTrove.ID)
			if err != nil {
				return err
			}
			if err := catalog.DeleteTrove(ctx, tx, oldTrove.ID); err != nil {
				return err
			}
		}

		troveID, err = catalog.InsertTrove(ctx, tx, types.Trove{
			Name:                 pkg.Name(),
			Version:              pkg.Version(),
			Kind:                 types.TroveKindPackage,
			Arch:                 pkg.Arch(),
			Description:          pkg.Description(),
			InstalledByChangeset: changesetID,
		})
		if err != nil {
			return err
		}

		for _, pf := range planned {
			if pf.file.IsDir {
				continue
			}
			contentPath, err := e.Store.PathOf(pf.hash)
			if err != nil {
				return err
			}
			size := int64(len(pf.file.Content))
			if pf.file.IsLink {
				size = int64(len(pf.file.LinkTo))
			}
			if err := catalog.UpsertFileContent(ctx, tx, pf.hash, contentPath, size); err != nil {
				return err
			}
			if _, err := catalog.InsertFile(ctx, tx, types.File{
				Path:    pf.file.Path,
				SHA256:  pf.hash,
				Size:    size,
				Mode:    pf.file.Mode,
				TroveID: troveID,
			}); err != nil {
				return err
			}

			history := types.FileHistory{ChangesetID: changesetID, Path: pf.file.Path, SHA256: pf.hash, Action: pf.action}
			if pf.action == types.FileHistoryModify {
				history.PreviousHash = previousHashFor(outgoingFiles, pf.file.Path)
			}
			if _, err := catalog.InsertFileHistory(ctx, tx, history); err != nil {
				return err
			}
		}

		for _, dep := range pkg.Deps() {
			if _, err := catalog.InsertDependency(ctx, tx, types.Dependency{
				TroveID:          troveID,
				DependsOnName:    dep.Name,
				DependsOnVersion: dep.Version,
				Kind:             dep.Kind,
				Constraint:       dep.Constraint,
			}); err != nil {
				return err
			}
		}

		for key, value := range pkg.Flavors() {
			if _, err := catalog.InsertFlavor(ctx, tx, types.Flavor{TroveID: troveID, Key: key, Value: value}); err != nil {
				return err
			}
		}

		if prov := pkg.ProvenanceFields(); len(prov) > 0 {
			if _, err := catalog.InsertProvenance(ctx, tx, types.Provenance{
				TroveID:   troveID,
				SourceURL: prov["source_url"],
				Branch:    prov["branch"],
				Commit:    prov["commit"],
				BuildHost: prov["build_host"],
				BuildTime: prov["build_time"],
				Builder:   prov["builder"],
			}); err != nil {
				return err
			}
		}

		return catalog.UpdateChangesetStatus(ctx, tx, changesetID, types.ChangesetApplied)
	})
	if err != nil {
		return InstallResult{}, err
	}

	result := InstallResult{ChangesetID: changesetID, TroveID: troveID, Outcome: outcome}
	if oldTrove != nil {
		result.OldVersion = oldTrove.Version
	}

	var deployErrs []error
	for _, pf := range planned {
		if err := e.deployFile(pf.file, pf.hash); err != nil {
			deployErrs = append(deployErrs, err)
		}
	}
	if outcome == OutcomeUpgrade {
		for _, old := range outgoingFiles {
			if !hasPath(planned, old.Path) {
				if err := e.Deployer.Remove(old.Path); err != nil {
					deployErrs = append(deployErrs, err)
				}
			}
		}
	}
	if len(deployErrs) > 0 {
		result.Degraded = true
		result.DeployErrs = deployErrs
		e.logger.Error().Int64("changeset_id", changesetID).Int("failed_files", len(deployErrs)).
			Msg("install committed but one or more files failed to deploy")
	}

	return result, nil
}

// planFiles runs every pre-commit file check from spec §4.5 before any
// transaction opens: clean add, modify-in-place, FileConflict, or
// OrphanConflict. It also computes each file's content hash so the
// transaction below never has to hash arbitrary bytes itself; the bytes
// reach the Object Store later, in deployFile, after commit.
func (e *Engine) planFiles(ctx context.Context, pkg types.Package, oldTrove *types.Trove) ([]plannedFile, error) {
	isUpgrade := oldTrove != nil
	var planned []plannedFile

	for _, f := range pkg.Files() {
		if f.IsDir {
			planned = append(planned, plannedFile{file: f, action: types.FileHistoryAdd})
			continue
		}

		hash := objectstore.ComputeHash(f.Content)
		if f.IsLink {
			hash = objectstore.ComputeHash([]byte(f.LinkTo))
		}

		existingFile, err := catalog.FindFileByPath(ctx, e.sqlDB(), f.Path)
		switch {
		case types.Is(err, types.KindNotFound):
			onDisk, existsErr := e.Deployer.Exists(f.Path)
			if existsErr != nil {
				return nil, existsErr
			}
			if onDisk && !isUpgrade {
				return nil, types.NewOrphanConflictError(f.Path)
			}
			planned = append(planned, plannedFile{file: f, hash: hash, action: types.FileHistoryAdd})
		case err != nil:
			return nil, err
		default:
			ownerTrove, err := catalog.FindTroveByID(ctx, e.sqlDB(), existingFile.TroveID)
			if err != nil {
				return nil, err
			}
			if ownerTrove.Name != pkg.Name() {
				return nil, types.NewFileConflictError(f.Path)
			}
			planned = append(planned, plannedFile{file: f, hash: hash, action: types.FileHistoryModify})
		}
	}
	return planned, nil
}

func previousHashFor(outgoing []types.File, path string) string {
	for _, f := range outgoing {
		if f.Path == path {
			return f.SHA256
		}
	}
	return ""
}

func hasPath(planned []plannedFile, path string) bool {
	for _, pf := range planned {
		if pf.file.Path == path {
			return true
		}
	}
	return false
}

// deployFile writes one file's bytes into the Object Store, then hands it
// to the Deployer. Directory entries are created directly; symlinks and
// regular files go through the CAS so identical content across packages is
// only ever stored once.
func (e *Engine) deployFile(f types.PackageFile, hash string) error {
	if f.IsDir {
		return e.Deployer.DeployDir(f.Path, os.FileMode(f.Mode))
	}

	content := f.Content
	if f.IsLink {
		content = []byte(f.LinkTo)
	}
	if _, err := e.Store.Store(content); err != nil {
		return err
	}

	return e.Deployer.Deploy(deployer.Target{
		RelPath:   f.Path,
		Hash:      hash,
		Mode:      os.FileMode(f.Mode),
		IsSymlink: f.IsLink,
	})
}

// sqlDB exposes the Catalog's connection for read-only pre-commit checks
// run outside any transaction, per spec §4.5 ("run outside the transaction
// or at the start of it").
func (e *Engine) sqlDB() *sql.DB {
	return e.Catalog.DB()
}
