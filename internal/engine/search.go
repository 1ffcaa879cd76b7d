package engine

import (
	"context"

	"github.com/siloworks/silo/internal/catalog"
)

// SearchResult is one match against either the installed set or a synced
// repository index.
type SearchResult struct {
	Name       string
	Version    string
	Installed  bool
	Repository string
	Priority   int
}

// Search matches pattern against installed trove names (case-insensitive
// substring) and the RepositoryPackage index, returning installed results
// first and then repository matches ordered by (priority DESC, name,
// version), per SPEC_FULL's definition of the search verb.
func (e *Engine) Search(ctx context.Context, pattern string) ([]SearchResult, error) {
	installed, err := catalog.SearchTroves(ctx, e.sqlDB(), pattern)
	if err != nil {
		return nil, err
	}

	var out []SearchResult
	for _, t := range installed {
		out = append(out, SearchResult{Name: t.Name, Version: t.Version, Installed: true})
	}

	candidates, err := catalog.SearchRepositoryPackages(ctx, e.sqlDB(), pattern)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		out = append(out, SearchResult{
			Name:       c.Package.Name,
			Version:    c.Package.Version,
			Repository: c.RepositoryName,
			Priority:   c.RepositoryPriority,
		})
	}
	return out, nil
}

// DeltaStatsSummary reports the aggregate bandwidth savings from every
// delta-assisted update changeset — the backing query for the
// "delta-stats" verb.
func (e *Engine) DeltaStatsSummary(ctx context.Context) (catalog.DeltaStatsSummary, error) {
	return catalog.AggregateDeltaStats(ctx, e.sqlDB())
}
