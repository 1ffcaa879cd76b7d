package engine

import (
	"context"
	"encoding/json"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/resolver"
	"github.com/siloworks/silo/internal/types"
)

// catalogOracle adapts the Catalog to resolver.Oracle so the Resolver never
// imports database/sql itself.
type catalogOracle struct {
	e *Engine
}

func (o catalogOracle) IsInstalled(ctx context.Context, name string) (bool, error) {
	_, err := catalog.FindTroveByName(ctx, o.e.sqlDB(), name)
	if types.Is(err, types.KindNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (o catalogOracle) FindProviders(ctx context.Context, name, constraint string) ([]resolver.Provider, error) {
	candidates, err := catalog.FindProviderCandidates(ctx, o.e.sqlDB(), name)
	if err != nil {
		return nil, err
	}

	var out []resolver.Provider
	for _, c := range candidates {
		if constraint != "" && c.Package.Version != constraint {
			continue
		}
		var deps []types.Dep
		if c.Package.DepsJSON != "" {
			_ = json.Unmarshal([]byte(c.Package.DepsJSON), &deps)
		}
		out = append(out, resolver.Provider{
			Name:               c.Package.Name,
			Version:            c.Package.Version,
			Arch:               c.Package.Arch,
			RepositoryID:       c.Package.RepositoryID,
			RepositoryName:     c.RepositoryName,
			RepositoryPriority: c.RepositoryPriority,
			DownloadURL:        c.Package.DownloadURL,
			Checksum:           c.Package.Checksum,
			Deps:               deps,
		})
	}
	return out, nil
}

// Plan computes the transitive install plan for the given root names
// without mutating anything, delegating the algorithm to internal/resolver.
func (e *Engine) Plan(ctx context.Context, requests []resolver.Request) (resolver.Plan, error) {
	return resolver.Resolve(ctx, catalogOracle{e: e}, requests)
}

// BestProvider returns the highest-ranked repository offering of name,
// independent of whether name is already installed — the lookup
// update.go's CLI command uses to find a target version without running
// full dependency discovery.
func (e *Engine) BestProvider(ctx context.Context, name string) (resolver.Provider, error) {
	providers, err := catalogOracle{e: e}.FindProviders(ctx, name, "")
	if err != nil {
		return resolver.Provider{}, err
	}
	if len(providers) == 0 {
		return resolver.Provider{}, types.NewNotFoundError("no repository provides " + name)
	}
	return resolver.SelectBest(providers)
}
