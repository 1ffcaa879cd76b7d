package engine

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/delta"
	"github.com/siloworks/silo/internal/types"
)

// Fetcher retrieves raw bytes for a download URL — either a full package
// archive or a delta patch. It is the engine's only dependency on the HTTP
// client, which spec §1 treats as an external collaborator; the engine
// never constructs requests itself.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ArchiveParser turns downloaded archive bytes into the Package capability
// interface the engine needs, regardless of format (spec §9). The per-format
// archive parsers are external collaborators; the engine only calls Parse.
type ArchiveParser interface {
	Parse(format types.RepositoryFormat, data []byte) (types.Package, error)
}

// UpdateTarget is the repository package an Update call is upgrading to,
// already chosen by the Resolver or a direct repository lookup.
type UpdateTarget struct {
	Format      types.RepositoryFormat
	Version     string
	DownloadURL string
	Checksum    string
}

// UpdateResult extends InstallResult with how the archive bytes were
// obtained.
type UpdateResult struct {
	InstallResult
	UsedDelta bool
}

// Update upgrades the installed trove named name to target, preferring a
// binary delta against the currently installed version when one is known,
// and falling back to a full download on any delta failure (download,
// checksum mismatch, or application error), per spec §4.5's update
// contract. baseArchive is the full archive bytes of the currently
// installed version — the engine does not itself cache archives across
// installs, so the caller supplies it when available (siloctl's update
// command passes nil); a nil baseArchive simply skips straight to a full
// download.
func (e *Engine) Update(ctx context.Context, name string, target UpdateTarget, baseArchive []byte, fetcher Fetcher, parser ArchiveParser) (UpdateResult, error) {
	current, err := catalog.FindTroveByName(ctx, e.sqlDB(), name)
	if err != nil {
		return UpdateResult{}, err
	}

	stats := types.DeltaStats{}
	var archiveBytes []byte
	usedDelta := false

	if baseArchive != nil {
		if pd, derr := catalog.FindPackageDelta(ctx, e.sqlDB(), name, current.Version, target.Version); derr == nil {
			if reconstructed, ok := e.tryApplyDelta(ctx, pd, baseArchive, fetcher); ok {
				archiveBytes = reconstructed
				usedDelta = true
				stats.DeltasApplied++
				stats.BytesSaved += pd.DeltaSize
			} else {
				stats.DeltaFailures++
			}
		}
	}

	if archiveBytes == nil {
		data, err := fetcher.Fetch(ctx, target.DownloadURL)
		if err != nil {
			return UpdateResult{}, types.NewDownloadError("fetching full package for update", err)
		}
		if target.Checksum != "" {
			if sum := sha256Hex(data); sum != target.Checksum {
				return UpdateResult{}, types.NewChecksumMismatchError(target.Checksum, sum)
			}
		}
		archiveBytes = data
		stats.FullDownloads++
	}

	pkg, err := parser.Parse(target.Format, archiveBytes)
	if err != nil {
		return UpdateResult{}, err
	}

	result, err := e.Install(ctx, pkg)
	if err != nil {
		return UpdateResult{}, err
	}

	if err := e.Catalog.WithTransaction(ctx, func(tx *sql.Tx) error {
		stats.ChangesetID = result.ChangesetID
		_, err := catalog.InsertDeltaStats(ctx, tx, stats)
		return err
	}); err != nil {
		e.logger.Error().Err(err).Int64("changeset_id", result.ChangesetID).Msg("recording delta stats failed")
	}

	return UpdateResult{InstallResult: result, UsedDelta: usedDelta}, nil
}

// tryApplyDelta downloads pd's patch, applies it against baseArchive, and
// verifies the result against pd.ToHash. It reports ok=false on any
// failure so the caller can fall back to a full download rather than
// propagating the error.
func (e *Engine) tryApplyDelta(ctx context.Context, pd types.PackageDelta, baseArchive []byte, fetcher Fetcher) ([]byte, bool) {
	if sha256Hex(baseArchive) != pd.FromHash {
		return nil, false
	}

	patch, err := fetcher.Fetch(ctx, pd.DeltaURL)
	if err != nil {
		e.logger.Warn().Err(err).Str("delta_url", pd.DeltaURL).Msg("delta download failed, falling back to full download")
		return nil, false
	}

	reconstructed, err := delta.Apply(baseArchive, patch)
	if err != nil {
		e.logger.Warn().Err(err).Msg("delta application failed, falling back to full download")
		return nil, false
	}

	if sha256Hex(reconstructed) != pd.ToHash {
		e.logger.Warn().Msg("delta-reconstructed archive failed checksum verification, falling back to full download")
		return nil, false
	}
	return reconstructed, true
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
