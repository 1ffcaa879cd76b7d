package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/siloworks/silo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestOpenIsIdempotentAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	cat2, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer cat2.Close()

	troves, err := ListTroves(context.Background(), cat2.DB())
	require.NoError(t, err)
	assert.Empty(t, troves)
}

func TestInsertAndFindTrove(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	id, err := InsertTrove(ctx, cat.DB(), types.Trove{
		Name: "widget", Version: "1.0-1", Kind: types.TroveKindPackage, Arch: "x86_64",
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	trove, err := FindTroveByName(ctx, cat.DB(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "widget", trove.Name)
	assert.Equal(t, "1.0-1", trove.Version)
	assert.Equal(t, types.TroveKindPackage, trove.Kind)

	byID, err := FindTroveByID(ctx, cat.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, trove.Name, byID.Name)

	_, err = FindTroveByName(ctx, cat.DB(), "ghost")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindNotFound))
}

func TestDeleteTroveCascadesFiles(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	troveID, err := InsertTrove(ctx, cat.DB(), types.Trove{Name: "widget", Version: "1.0", Kind: types.TroveKindPackage, Arch: "x86_64"})
	require.NoError(t, err)

	_, err = InsertFile(ctx, cat.DB(), types.File{Path: "/usr/bin/widget", SHA256: "abc", Size: 3, Mode: 0o755, TroveID: troveID})
	require.NoError(t, err)

	require.NoError(t, DeleteTrove(ctx, cat.DB(), troveID))

	_, err = FindFileByPath(ctx, cat.DB(), "/usr/bin/widget")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindNotFound))
}

func TestChangesetLifecycle(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	id, err := InsertChangeset(ctx, cat.DB(), "install widget")
	require.NoError(t, err)

	cs, err := FindChangesetByID(ctx, cat.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, types.ChangesetPending, cs.Status)
	assert.Nil(t, cs.AppliedAt)

	require.NoError(t, UpdateChangesetStatus(ctx, cat.DB(), id, types.ChangesetApplied))
	cs, err = FindChangesetByID(ctx, cat.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, types.ChangesetApplied, cs.Status)
	require.NotNil(t, cs.AppliedAt)

	reversingID, err := InsertChangeset(ctx, cat.DB(), "rollback widget")
	require.NoError(t, err)
	require.NoError(t, MarkChangesetReversed(ctx, cat.DB(), id, reversingID))

	cs, err = FindChangesetByID(ctx, cat.DB(), id)
	require.NoError(t, err)
	require.NotNil(t, cs.ReversedBy)
	assert.Equal(t, reversingID, *cs.ReversedBy)

	changesets, err := ListChangesets(ctx, cat.DB())
	require.NoError(t, err)
	require.Len(t, changesets, 2)
	assert.Equal(t, reversingID, changesets[0].ID) // most recent first
}

func TestDependencyEdgesAndFindDependents(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	appID, err := InsertTrove(ctx, cat.DB(), types.Trove{Name: "app", Version: "1.0", Kind: types.TroveKindPackage, Arch: "x86_64"})
	require.NoError(t, err)
	_, err = InsertTrove(ctx, cat.DB(), types.Trove{Name: "libfoo", Version: "2.0", Kind: types.TroveKindPackage, Arch: "x86_64"})
	require.NoError(t, err)

	_, err = InsertDependency(ctx, cat.DB(), types.Dependency{TroveID: appID, DependsOnName: "libfoo", Kind: types.DependencyRuntime})
	require.NoError(t, err)

	deps, err := ListDependenciesByTrove(ctx, cat.DB(), appID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "libfoo", deps[0].DependsOnName)

	dependents, err := FindDependents(ctx, cat.DB(), "libfoo")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "app", dependents[0].Name)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	err := cat.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := InsertTrove(ctx, tx, types.Trove{Name: "rolledback", Version: "1.0", Kind: types.TroveKindPackage, Arch: "x86_64"})
		require.NoError(t, err)
		return assert.AnError
	})
	require.Error(t, err)

	_, err = FindTroveByName(ctx, cat.DB(), "rolledback")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.KindNotFound))
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	err := cat.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := InsertTrove(ctx, tx, types.Trove{Name: "committed", Version: "1.0", Kind: types.TroveKindPackage, Arch: "x86_64"})
		return err
	})
	require.NoError(t, err)

	trove, err := FindTroveByName(ctx, cat.DB(), "committed")
	require.NoError(t, err)
	assert.Equal(t, "committed", trove.Name)
}
