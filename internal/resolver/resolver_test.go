package resolver

import (
	"context"
	"testing"

	"github.com/siloworks/silo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle is an in-memory Oracle backed by maps, so resolver tests never
// touch the Catalog.
type fakeOracle struct {
	installed map[string]bool
	providers map[string][]Provider
}

func (f *fakeOracle) IsInstalled(ctx context.Context, name string) (bool, error) {
	return f.installed[name], nil
}

func (f *fakeOracle) FindProviders(ctx context.Context, name, constraint string) ([]Provider, error) {
	return f.providers[name], nil
}

func TestResolveOrdersDependenciesBeforeDependents(t *testing.T) {
	oracle := &fakeOracle{
		installed: map[string]bool{},
		providers: map[string][]Provider{
			"app": {{Name: "app", Version: "1.0", RepositoryName: "core", Deps: []types.Dep{{Name: "libfoo"}}}},
			"libfoo": {{Name: "libfoo", Version: "2.0", RepositoryName: "core", Deps: []types.Dep{{Name: "libbar"}}}},
			"libbar": {{Name: "libbar", Version: "3.0", RepositoryName: "core"}},
		},
	}

	plan, err := Resolve(context.Background(), oracle, []Request{{Name: "app"}})
	require.NoError(t, err)
	require.False(t, plan.Cyclic)
	require.Len(t, plan.Entries, 3)

	index := make(map[string]int, len(plan.Entries))
	for i, e := range plan.Entries {
		index[e.Name] = i
	}
	assert.Less(t, index["libbar"], index["libfoo"])
	assert.Less(t, index["libfoo"], index["app"])
}

func TestResolveSkipsAlreadyInstalledNames(t *testing.T) {
	oracle := &fakeOracle{
		installed: map[string]bool{"libfoo": true},
		providers: map[string][]Provider{
			"app": {{Name: "app", Version: "1.0", RepositoryName: "core", Deps: []types.Dep{{Name: "libfoo"}}}},
		},
	}

	plan, err := Resolve(context.Background(), oracle, []Request{{Name: "app"}})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "app", plan.Entries[0].Name)
}

func TestResolveSkipsPassthroughDeps(t *testing.T) {
	oracle := &fakeOracle{
		installed: map[string]bool{},
		providers: map[string][]Provider{
			"app": {{
				Name: "app", Version: "1.0", RepositoryName: "core",
				Deps: []types.Dep{{Name: "rpmlib(CompressedFileNames)"}, {Name: "/bin/sh"}},
			}},
		},
	}

	plan, err := Resolve(context.Background(), oracle, []Request{{Name: "app"}})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "app", plan.Entries[0].Name)
}

func TestResolveMissingDependencyIsNotFound(t *testing.T) {
	oracle := &fakeOracle{
		installed: map[string]bool{},
		providers: map[string][]Provider{
			"app": {{Name: "app", Version: "1.0", RepositoryName: "core", Deps: []types.Dep{{Name: "ghost"}}}},
		},
	}

	_, err := Resolve(context.Background(), oracle, []Request{{Name: "app"}})
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindNotFound))
}

func TestResolveCyclicDependencyFallsBackToDiscoveryOrder(t *testing.T) {
	oracle := &fakeOracle{
		installed: map[string]bool{},
		providers: map[string][]Provider{
			"a": {{Name: "a", Version: "1.0", RepositoryName: "core", Deps: []types.Dep{{Name: "b"}}}},
			"b": {{Name: "b", Version: "1.0", RepositoryName: "core", Deps: []types.Dep{{Name: "a"}}}},
		},
	}

	plan, err := Resolve(context.Background(), oracle, []Request{{Name: "a"}})
	require.NoError(t, err)
	assert.True(t, plan.Cyclic)
	require.Len(t, plan.Entries, 2)
	assert.Equal(t, "a", plan.Entries[0].Name)
	assert.Equal(t, "b", plan.Entries[1].Name)
}

func TestResolveDepthExceeded(t *testing.T) {
	providers := map[string][]Provider{}
	for i := 0; i < MaxDepth+2; i++ {
		name := depthChainName(i)
		next := depthChainName(i + 1)
		providers[name] = []Provider{{Name: name, Version: "1.0", RepositoryName: "core", Deps: []types.Dep{{Name: next}}}}
	}
	oracle := &fakeOracle{installed: map[string]bool{}, providers: providers}

	_, err := Resolve(context.Background(), oracle, []Request{{Name: depthChainName(0)}})
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindDepthExceeded))
}

func depthChainName(i int) string {
	return "chain" + string(rune('a'+i%26))
}

func TestSelectBestPrefersHigherPriorityThenNewerVersionThenRepoName(t *testing.T) {
	providers := []Provider{
		{Name: "app", Version: "1.0", RepositoryName: "zeta", RepositoryPriority: 0},
		{Name: "app", Version: "2.0", RepositoryName: "alpha", RepositoryPriority: 10},
		{Name: "app", Version: "1.5", RepositoryName: "beta", RepositoryPriority: 10},
	}

	best, err := SelectBest(providers)
	require.NoError(t, err)
	assert.Equal(t, "alpha", best.RepositoryName)
	assert.Equal(t, "2.0", best.Version)
}

func TestSelectBestUnparseableVersionErrors(t *testing.T) {
	_, err := SelectBest([]Provider{{Name: "app", Version: "", RepositoryName: "core"}})
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindVersionParse))
}

func TestDependentNamesDedupsAndSorts(t *testing.T) {
	names := DependentNames([]types.Trove{
		{Name: "zeta"}, {Name: "alpha"}, {Name: "alpha"},
	})
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}
