package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/objectstore"
	"github.com/siloworks/silo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePackage is a minimal types.Package double built straight from fixture
// fields, matching the shape the archive parsers produce.
type fakePackage struct {
	name        string
	version     string
	arch        string
	description string
	files       []types.PackageFile
	deps        []types.Dep
}

func (p fakePackage) Name() string                     { return p.name }
func (p fakePackage) Version() string                  { return p.version }
func (p fakePackage) Arch() string                     { return p.arch }
func (p fakePackage) Description() string              { return p.description }
func (p fakePackage) Files() []types.PackageFile       { return p.files }
func (p fakePackage) Deps() []types.Dep                { return p.deps }
func (p fakePackage) ProvenanceFields() map[string]string { return nil }
func (p fakePackage) Flavors() map[string]string       { return nil }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cat, err := catalog.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	store, err := objectstore.New(t.TempDir())
	require.NoError(t, err)

	return New(cat, store, t.TempDir())
}

func TestInstallFreshInstallDeploysFilesAndRecordsChangeset(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	pkg := fakePackage{
		name: "widget", version: "1.0", arch: "x86_64", description: "a widget",
		files: []types.PackageFile{
			{Path: "/usr/bin/widget", Content: []byte("binary"), Mode: 0o755},
			{Path: "/usr/share/doc/widget", IsDir: true, Mode: 0o755},
		},
	}

	result, err := e.Install(ctx, pkg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFreshInstall, result.Outcome)
	assert.False(t, result.Degraded)
	assert.NotZero(t, result.TroveID)

	data, err := os.ReadFile(filepath.Join(e.Deployer.Root, "usr/bin/widget"))
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))

	info, err := os.Stat(filepath.Join(e.Deployer.Root, "usr/share/doc/widget"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	trove, err := catalog.FindTroveByName(ctx, e.Catalog.DB(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "1.0", trove.Version)
}

func TestInstallRejectsSameVersionAsAlreadyInstalled(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pkg := fakePackage{name: "widget", version: "1.0", arch: "x86_64"}

	_, err := e.Install(ctx, pkg)
	require.NoError(t, err)

	_, err = e.Install(ctx, pkg)
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindAlreadyInstalled))
}

func TestInstallUpgradeReplacesChangedFileAndRemovesDroppedFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	v1 := fakePackage{
		name: "widget", version: "1.0", arch: "x86_64",
		files: []types.PackageFile{
			{Path: "/usr/bin/widget", Content: []byte("v1 bytes"), Mode: 0o755},
			{Path: "/etc/widget.conf", Content: []byte("old config"), Mode: 0o644},
		},
	}
	_, err := e.Install(ctx, v1)
	require.NoError(t, err)

	v2 := fakePackage{
		name: "widget", version: "2.0", arch: "x86_64",
		files: []types.PackageFile{
			{Path: "/usr/bin/widget", Content: []byte("v2 bytes, different hash"), Mode: 0o755},
		},
	}
	result, err := e.Install(ctx, v2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpgrade, result.Outcome)
	assert.Equal(t, "1.0", result.OldVersion)

	data, err := os.ReadFile(filepath.Join(e.Deployer.Root, "usr/bin/widget"))
	require.NoError(t, err)
	assert.Equal(t, "v2 bytes, different hash", string(data))

	_, err = os.Stat(filepath.Join(e.Deployer.Root, "etc/widget.conf"))
	assert.True(t, os.IsNotExist(err))

	trove, err := catalog.FindTroveByName(ctx, e.Catalog.DB(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "2.0", trove.Version)
}

func TestInstallRefusesDowngrade(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Install(ctx, fakePackage{name: "widget", version: "2.0", arch: "x86_64"})
	require.NoError(t, err)

	_, err = e.Install(ctx, fakePackage{name: "widget", version: "1.0", arch: "x86_64"})
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindDowngradeRefused))
}

func TestInstallFileConflictWithDifferentPackageOwner(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Install(ctx, fakePackage{
		name: "alpha", version: "1.0", arch: "x86_64",
		files: []types.PackageFile{{Path: "/usr/bin/shared", Content: []byte("alpha"), Mode: 0o755}},
	})
	require.NoError(t, err)

	_, err = e.Install(ctx, fakePackage{
		name: "beta", version: "1.0", arch: "x86_64",
		files: []types.PackageFile{{Path: "/usr/bin/shared", Content: []byte("beta"), Mode: 0o755}},
	})
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindFileConflict))
}

func TestInstallOrphanConflictWithUnownedFileOnDisk(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	full := filepath.Join(e.Deployer.Root, "etc/orphan.conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("not catalog tracked"), 0o644))

	_, err := e.Install(ctx, fakePackage{
		name: "widget", version: "1.0", arch: "x86_64",
		files: []types.PackageFile{{Path: "/etc/orphan.conf", Content: []byte("new"), Mode: 0o644}},
	})
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindOrphanConflict))
}

func TestRollbackReversesInstallAndRemovesFiles(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.Install(ctx, fakePackage{
		name: "widget", version: "1.0", arch: "x86_64",
		files: []types.PackageFile{{Path: "/usr/bin/widget", Content: []byte("v1"), Mode: 0o755}},
	})
	require.NoError(t, err)

	rr, err := e.Rollback(ctx, result.ChangesetID)
	require.NoError(t, err)
	assert.False(t, rr.Degraded)
	assert.Equal(t, result.ChangesetID, rr.ReversedChangesetID)

	_, err = catalog.FindTroveByName(ctx, e.Catalog.DB(), "widget")
	assert.True(t, types.Is(err, types.KindNotFound))

	_, err = os.Stat(filepath.Join(e.Deployer.Root, "usr/bin/widget"))
	assert.True(t, os.IsNotExist(err))

	cs, err := catalog.FindChangesetByID(ctx, e.Catalog.DB(), result.ChangesetID)
	require.NoError(t, err)
	assert.Equal(t, types.ChangesetRolledBack, cs.Status)
}

func TestRollbackRefusesAlreadyRolledBackChangeset(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.Install(ctx, fakePackage{name: "widget", version: "1.0", arch: "x86_64"})
	require.NoError(t, err)

	_, err = e.Rollback(ctx, result.ChangesetID)
	require.NoError(t, err)

	_, err = e.Rollback(ctx, result.ChangesetID)
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindNotReversible))
}

func TestRemoveRefusesWhenDependentsExist(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Install(ctx, fakePackage{name: "libfoo", version: "1.0", arch: "x86_64"})
	require.NoError(t, err)
	_, err = e.Install(ctx, fakePackage{
		name: "app", version: "1.0", arch: "x86_64",
		deps: []types.Dep{{Name: "libfoo", Kind: types.DependencyRuntime}},
	})
	require.NoError(t, err)

	_, err = e.Remove(ctx, "libfoo")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindDependenciesWouldBreak))

	breaks, err := e.WhatBreaks(ctx, "libfoo")
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, breaks)
}

func TestRemoveDeletesTroveAndRetractsFiles(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Install(ctx, fakePackage{
		name: "widget", version: "1.0", arch: "x86_64",
		files: []types.PackageFile{{Path: "/usr/bin/widget", Content: []byte("v1"), Mode: 0o755}},
	})
	require.NoError(t, err)

	result, err := e.Remove(ctx, "widget")
	require.NoError(t, err)
	assert.False(t, result.Degraded)

	_, err = catalog.FindTroveByName(ctx, e.Catalog.DB(), "widget")
	assert.True(t, types.Is(err, types.KindNotFound))

	_, err = os.Stat(filepath.Join(e.Deployer.Root, "usr/bin/widget"))
	assert.True(t, os.IsNotExist(err))
}

func TestSearchReturnsInstalledBeforeRepositoryMatches(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Install(ctx, fakePackage{name: "widget", version: "1.0", arch: "x86_64"})
	require.NoError(t, err)

	repoID, err := catalog.InsertRepository(ctx, e.Catalog.DB(), types.Repository{
		Name: "core", URL: "https://mirror.example/core", Format: types.RepositoryFormatArch, Enabled: true,
	})
	require.NoError(t, err)
	_, err = catalog.UpsertRepositoryPackage(ctx, e.Catalog.DB(), types.RepositoryPackage{
		RepositoryID: repoID, Name: "widget-extra", Version: "3.0", Arch: "x86_64",
	})
	require.NoError(t, err)

	results, err := e.Search(ctx, "widget")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Installed)
	assert.Equal(t, "widget", results[0].Name)
	assert.False(t, results[1].Installed)
	assert.Equal(t, "widget-extra", results[1].Name)
}

type fakeUpdateFetcher struct {
	byURL map[string][]byte
}

func (f *fakeUpdateFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, ok := f.byURL[url]
	if !ok {
		return nil, types.NewDownloadError("no fixture for "+url, nil)
	}
	return data, nil
}

type fakeUpdateParser struct {
	pkg types.Package
}

func (p *fakeUpdateParser) Parse(format types.RepositoryFormat, data []byte) (types.Package, error) {
	return p.pkg, nil
}

func TestUpdateFullDownloadWhenNoDeltaAvailable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Install(ctx, fakePackage{name: "widget", version: "1.0", arch: "x86_64"})
	require.NoError(t, err)

	newPkg := fakePackage{
		name: "widget", version: "2.0", arch: "x86_64",
		files: []types.PackageFile{{Path: "/usr/bin/widget", Content: []byte("v2"), Mode: 0o755}},
	}
	fetcher := &fakeUpdateFetcher{byURL: map[string][]byte{
		"https://mirror.example/widget-2.0.rpm": []byte("archive bytes"),
	}}
	parser := &fakeUpdateParser{pkg: newPkg}

	result, err := e.Update(ctx, "widget", UpdateTarget{
		Format: types.RepositoryFormatRPM, Version: "2.0",
		DownloadURL: "https://mirror.example/widget-2.0.rpm",
	}, nil, fetcher, parser)
	require.NoError(t, err)
	assert.False(t, result.UsedDelta)
	assert.Equal(t, OutcomeUpgrade, result.Outcome)

	summary, err := e.DeltaStatsSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalFullDownloads)
}

func TestUpdateChecksumMismatchOnFullDownloadIsRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Install(ctx, fakePackage{name: "widget", version: "1.0", arch: "x86_64"})
	require.NoError(t, err)

	fetcher := &fakeUpdateFetcher{byURL: map[string][]byte{
		"https://mirror.example/widget-2.0.rpm": []byte("archive bytes"),
	}}
	parser := &fakeUpdateParser{pkg: fakePackage{name: "widget", version: "2.0", arch: "x86_64"}}

	_, err = e.Update(ctx, "widget", UpdateTarget{
		Format: types.RepositoryFormatRPM, Version: "2.0",
		DownloadURL: "https://mirror.example/widget-2.0.rpm",
		Checksum:    "0000000000000000000000000000000000000000000000000000000000000000",
	}, nil, fetcher, parser)
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindChecksumMismatch))
}
