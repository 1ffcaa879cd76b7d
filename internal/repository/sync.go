package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/delta"
	"github.com/siloworks/silo/internal/log"
	"github.com/siloworks/silo/internal/types"
	"github.com/siloworks/silo/internal/version"
)

// maxConcurrentSyncs bounds how many repositories are fetched and parsed
// at once, so a large repository list doesn't open one HTTP connection per
// entry.
const maxConcurrentSyncs = 4

// Syncer refreshes a Catalog's repository_packages (and, where archives
// are available, package_deltas) from each configured Repository's
// metadata.
type Syncer struct {
	Catalog *catalog.Catalog
	Fetcher Fetcher
	Parser  MetadataParser
	logger  zerolog.Logger
}

// New builds a Syncer. parser defaults to Parser{} when nil.
func New(cat *catalog.Catalog, fetcher Fetcher, parser MetadataParser) *Syncer {
	if parser == nil {
		parser = Parser{}
	}
	return &Syncer{
		Catalog: cat,
		Fetcher: fetcher,
		Parser:  parser,
		logger:  log.WithComponent("repository"),
	}
}

// Result is one repository's sync outcome.
type Result struct {
	Repository   string
	PackageCount int
	DeltaCount   int
	Err          error
}

// SyncAll refreshes every enabled repository, spreading the work across a
// bounded pool of goroutines so one slow mirror doesn't serialize the rest.
func (s *Syncer) SyncAll(ctx context.Context) ([]Result, error) {
	repos, err := catalog.ListEnabledRepositories(ctx, s.Catalog.DB())
	if err != nil {
		return nil, err
	}

	jobs := make(chan types.Repository)
	resultsCh := make(chan Result, len(repos))

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrentSyncs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for repo := range jobs {
				resultsCh <- s.syncOneResult(ctx, repo)
			}
		}()
	}

	go func() {
		for _, r := range repos {
			jobs <- r
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	results := make([]Result, 0, len(repos))
	for r := range resultsCh {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Repository < results[j].Repository })
	return results, nil
}

func (s *Syncer) syncOneResult(ctx context.Context, repo types.Repository) Result {
	count, deltaCount, err := s.SyncOne(ctx, repo)
	if err != nil {
		s.logger.Error().Err(err).Str("repository", repo.Name).Msg("repository sync failed")
	}
	return Result{Repository: repo.Name, PackageCount: count, DeltaCount: deltaCount, Err: err}
}

// SyncOne fetches and parses one Repository's metadata, then upserts its
// RepositoryPackage rows and any PackageDelta rows it can derive in a
// single transaction.
func (s *Syncer) SyncOne(ctx context.Context, repo types.Repository) (int, int, error) {
	data, err := s.Fetcher.Fetch(ctx, repo.URL)
	if err != nil {
		return 0, 0, types.NewDownloadError("fetching repository metadata for "+repo.Name, err)
	}

	entries, err := s.Parser.Parse(repo.Format, data)
	if err != nil {
		return 0, 0, err
	}

	deltaCount := 0
	err = s.Catalog.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			rp := types.RepositoryPackage{
				RepositoryID: repo.ID,
				Name:         e.Name,
				Version:      e.Version,
				Arch:         e.Arch,
				Description:  e.Description,
				Checksum:     e.Checksum,
				Size:         e.Size,
				DownloadURL:  e.DownloadURL,
				DepsJSON:     encodeDeps(e.Deps),
			}
			if _, err := catalog.UpsertRepositoryPackage(ctx, tx, rp); err != nil {
				return err
			}
		}

		n, err := s.deriveDeltas(ctx, tx, repo, entries)
		if err != nil {
			return err
		}
		deltaCount = n

		return catalog.UpdateRepositoryLastSync(ctx, tx, repo.ID)
	})
	if err != nil {
		return 0, 0, err
	}
	return len(entries), deltaCount, nil
}

// deriveDeltas computes a binary delta between the two newest known
// versions of every package with a download URL on both sides, using whichever
// archive bytes the repository's Fetcher can produce from DownloadURL. A
// mirror that can't serve two full archives (no history retained, or a
// transient fetch failure) simply yields no delta for that package; this
// is best-effort enrichment, not a sync precondition.
func (s *Syncer) deriveDeltas(ctx context.Context, tx *sql.Tx, repo types.Repository, entries []Entry) (int, error) {
	byName := make(map[string][]Entry)
	for _, e := range entries {
		if e.Version == "" {
			continue
		}
		byName[e.Name] = append(byName[e.Name], e)
	}

	count := 0
	for name, versions := range byName {
		if len(versions) < 2 {
			continue
		}
		sort.Slice(versions, func(i, j int) bool {
			vi, ei := version.Parse(versions[i].Version)
			vj, ej := version.Parse(versions[j].Version)
			if ei != nil || ej != nil {
				return versions[i].Version < versions[j].Version
			}
			return version.Compare(vi, vj) < 0
		})
		from := versions[len(versions)-2]
		to := versions[len(versions)-1]
		if from.DownloadURL == "" || to.DownloadURL == "" {
			continue
		}

		baseBytes, err := s.Fetcher.Fetch(ctx, from.DownloadURL)
		if err != nil {
			s.logger.Debug().Err(err).Str("package", name).Msg("skipping delta: base archive unavailable")
			continue
		}
		targetBytes, err := s.Fetcher.Fetch(ctx, to.DownloadURL)
		if err != nil {
			s.logger.Debug().Err(err).Str("package", name).Msg("skipping delta: target archive unavailable")
			continue
		}

		patch, err := delta.Compute(baseBytes, targetBytes)
		if err != nil {
			s.logger.Warn().Err(err).Str("package", name).Msg("delta computation failed")
			continue
		}

		pd := types.PackageDelta{
			RepositoryID:     repo.ID,
			Name:             name,
			FromVersion:      from.Version,
			ToVersion:        to.Version,
			FromHash:         sha256Hex(baseBytes),
			ToHash:           sha256Hex(targetBytes),
			DeltaSize:        int64(len(patch)),
			CompressionRatio: ratio(len(patch), len(targetBytes)),
		}
		if _, err := catalog.UpsertPackageDelta(ctx, tx, pd); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func ratio(deltaSize, targetSize int) float64 {
	if targetSize == 0 {
		return 0
	}
	return float64(deltaSize) / float64(targetSize)
}
