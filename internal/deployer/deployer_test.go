package deployer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siloworks/silo/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeployer(t *testing.T) (*Deployer, *objectstore.Store) {
	t.Helper()
	store, err := objectstore.New(t.TempDir())
	require.NoError(t, err)
	root := t.TempDir()
	return New(root, store), store
}

func TestDeployRegularFile(t *testing.T) {
	d, store := newTestDeployer(t)

	hash, err := store.Store([]byte("ALPHA\n"))
	require.NoError(t, err)

	err = d.Deploy(Target{RelPath: "/usr/bin/alpha", Hash: hash, Mode: 0o755})
	require.NoError(t, err)

	full := filepath.Join(d.Root, "usr/bin/alpha")
	info, err := os.Stat(full)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "ALPHA\n", string(data))
}

func TestDeployZeroByteFileIsNotSkipped(t *testing.T) {
	d, store := newTestDeployer(t)

	hash, err := store.Store([]byte(""))
	require.NoError(t, err)

	err = d.Deploy(Target{RelPath: "/etc/empty.conf", Hash: hash, Mode: 0o644})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(d.Root, "etc/empty.conf"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestDeployRejectsPathEscapingRoot(t *testing.T) {
	d, store := newTestDeployer(t)
	hash, err := store.Store([]byte("x"))
	require.NoError(t, err)

	err = d.Deploy(Target{RelPath: "../../etc/passwd", Hash: hash, Mode: 0o644})
	require.Error(t, err)
}

func TestVerifyDetectsModifiedAndMissing(t *testing.T) {
	d, store := newTestDeployer(t)
	hash, err := store.Store([]byte("original"))
	require.NoError(t, err)

	require.NoError(t, d.Deploy(Target{RelPath: "/bin/tool", Hash: hash, Mode: 0o755}))

	result, err := d.Verify("/bin/tool", hash)
	require.NoError(t, err)
	assert.Equal(t, VerifyOK, result)

	require.NoError(t, os.WriteFile(filepath.Join(d.Root, "bin/tool"), []byte("tampered"), 0o755))
	result, err = d.Verify("/bin/tool", hash)
	require.NoError(t, err)
	assert.Equal(t, VerifyModified, result)

	require.NoError(t, d.Remove("/bin/tool"))
	result, err = d.Verify("/bin/tool", hash)
	require.NoError(t, err)
	assert.Equal(t, VerifyMissing, result)
}

func TestRemoveCleansEmptyAncestors(t *testing.T) {
	d, store := newTestDeployer(t)
	hash, err := store.Store([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, d.Deploy(Target{RelPath: "/a/b/c/file", Hash: hash, Mode: 0o644}))
	require.NoError(t, d.Remove("/a/b/c/file"))

	_, err = os.Stat(filepath.Join(d.Root, "a"))
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveLeavesNonEmptyAncestorsAlone(t *testing.T) {
	d, store := newTestDeployer(t)
	hash, err := store.Store([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, d.Deploy(Target{RelPath: "/a/one", Hash: hash, Mode: 0o644}))
	require.NoError(t, d.Deploy(Target{RelPath: "/a/two", Hash: hash, Mode: 0o644}))
	require.NoError(t, d.Remove("/a/one"))

	_, err = os.Stat(filepath.Join(d.Root, "a"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(d.Root, "a/two"))
	assert.NoError(t, err)
}
