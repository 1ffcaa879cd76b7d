package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/siloworks/silo/internal/types"
	"github.com/siloworks/silo/internal/version"
)

// MaxDepth is the default transitive-dependency depth ceiling. A request
// that needs to go deeper raises DepthExceeded rather than looping forever
// on a badly-formed repository index.
const MaxDepth = 10

// Request is one root name the caller wants installed, with an optional
// version constraint (empty means "any version, highest priority wins").
type Request struct {
	Name       string
	Constraint string
}

// Provider is one repository's offering of a package name, as surfaced by
// the RepositoryPackage index.
type Provider struct {
	Name               string
	Version            string
	Arch               string
	RepositoryID       int64
	RepositoryName     string
	RepositoryPriority int
	DownloadURL        string
	Checksum           string
	Deps               []types.Dep
}

// Oracle is everything the Resolver needs from the outside world: whether a
// name is already installed, and which repository packages can provide it.
// The Changeset Engine supplies an implementation backed by the Catalog;
// resolver itself never touches SQL.
type Oracle interface {
	IsInstalled(ctx context.Context, name string) (bool, error)
	FindProviders(ctx context.Context, name, constraint string) ([]Provider, error)
}

// PlanEntry is one resolved install, in dependency-before-dependent order.
type PlanEntry struct {
	Name     string
	Provider Provider
}

// Plan is the ordered output of Resolve: index i's package depends on
// nothing at index > i that is also in the plan.
type Plan struct {
	Entries []PlanEntry
	// Cyclic is true if a dependency cycle was detected among the chosen
	// set; Entries then falls back to discovery order instead of a true
	// topological sort.
	Cyclic bool
}

type queueItem struct {
	name  string
	depth int
}

// Resolve computes the transitive install plan for requests. It never
// mutates the Catalog; the Changeset Engine executes the plan afterward.
func Resolve(ctx context.Context, oracle Oracle, requests []Request) (Plan, error) {
	var queue []queueItem
	for _, r := range requests {
		queue = append(queue, queueItem{name: r.Name, depth: 0})
	}
	constraints := make(map[string]string, len(requests))
	for _, r := range requests {
		constraints[r.Name] = r.Constraint
	}

	chosen := make(map[string]Provider)
	var discoveryOrder []string
	visited := make(map[string]bool)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.name] {
			continue
		}
		if isPassthroughDep(item.name) {
			continue
		}

		installed, err := oracle.IsInstalled(ctx, item.name)
		if err != nil {
			return Plan{}, err
		}
		if installed {
			visited[item.name] = true
			continue
		}

		if item.depth > MaxDepth {
			return Plan{}, types.NewDepthExceededError(item.name, item.depth)
		}

		providers, err := oracle.FindProviders(ctx, item.name, constraints[item.name])
		if err != nil {
			return Plan{}, err
		}
		if len(providers) == 0 {
			return Plan{}, types.NewNotFoundError(fmt.Sprintf("dependency %q is not provided by any enabled repository", item.name))
		}

		best, err := selectBest(providers)
		if err != nil {
			return Plan{}, err
		}

		chosen[item.name] = best
		discoveryOrder = append(discoveryOrder, item.name)
		visited[item.name] = true

		for _, dep := range best.Deps {
			if dep.Name == "" || isPassthroughDep(dep.Name) {
				continue
			}
			if visited[dep.Name] {
				continue
			}
			queue = append(queue, queueItem{name: dep.Name, depth: item.depth + 1})
		}
	}

	entries, cyclic := topoSort(chosen, discoveryOrder)
	return Plan{Entries: entries, Cyclic: cyclic}, nil
}

// isPassthroughDep reports whether name is a dependency kind the Resolver
// must leave unresolved rather than query a repository for: rpmlib
// pseudo-dependencies (e.g. "rpmlib(CompressedFileNames)") and absolute
// file-path dependencies (e.g. "/bin/sh"), neither of which names an
// installable package.
func isPassthroughDep(name string) bool {
	return strings.HasPrefix(name, "rpmlib(") || strings.HasPrefix(name, "/")
}

// SelectBest exposes selectBest's provider-ranking rule to callers outside
// a full Resolve — update's "which repository version is newest" lookup
// uses the identical ranking without running dependency discovery.
func SelectBest(providers []Provider) (Provider, error) {
	return selectBest(providers)
}

// selectBest picks the provider with the highest (repository priority,
// parsed version), breaking ties by repository name, lexicographically
// ascending.
func selectBest(providers []Provider) (Provider, error) {
	type parsed struct {
		provider Provider
		version  version.Version
	}
	var candidates []parsed
	for _, p := range providers {
		v, err := version.Parse(p.Version)
		if err != nil {
			return Provider{}, types.NewVersionParseError(p.Version)
		}
		candidates = append(candidates, parsed{provider: p, version: v})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.provider.RepositoryPriority != b.provider.RepositoryPriority {
			return a.provider.RepositoryPriority > b.provider.RepositoryPriority
		}
		if cmp := version.Compare(a.version, b.version); cmp != version.Equal {
			return cmp == version.Greater
		}
		return a.provider.RepositoryName < b.provider.RepositoryName
	})

	return candidates[0].provider, nil
}

// topoSort orders chosen's keys with Kahn's algorithm so every dependency
// precedes its dependents. On a cycle it emits the discovery order instead
// and reports Cyclic=true; a cycle among versioned dependencies is
// pathological but not fatal to the engine.
func topoSort(chosen map[string]Provider, discoveryOrder []string) ([]PlanEntry, bool) {
	inDegree := make(map[string]int, len(chosen))
	edges := make(map[string][]string, len(chosen))
	for name := range chosen {
		inDegree[name] = 0
	}
	for name, p := range chosen {
		for _, dep := range p.Deps {
			if _, ok := chosen[dep.Name]; !ok {
				continue
			}
			edges[dep.Name] = append(edges[dep.Name], name)
			inDegree[name]++
		}
	}

	var ready []string
	for _, name := range discoveryOrder {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var ordered []string
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)

		var newlyReady []string
		for _, dependent := range edges[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		ready = append(ready, newlyReady...)
	}

	if len(ordered) != len(chosen) {
		entries := make([]PlanEntry, 0, len(discoveryOrder))
		for _, name := range discoveryOrder {
			entries = append(entries, PlanEntry{Name: name, Provider: chosen[name]})
		}
		return entries, true
	}

	entries := make([]PlanEntry, 0, len(ordered))
	for _, name := range ordered {
		entries = append(entries, PlanEntry{Name: name, Provider: chosen[name]})
	}
	return entries, false
}

// DependentNames projects a set of dependent Troves (as returned by
// catalog.FindDependents) to a deduplicated, sorted slice of distinct
// names — the shape WhatBreaks and the "remove" contract need.
func DependentNames(dependents []types.Trove) []string {
	seen := make(map[string]bool, len(dependents))
	var out []string
	for _, t := range dependents {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}
