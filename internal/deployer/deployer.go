package deployer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/siloworks/silo/internal/objectstore"
	"github.com/siloworks/silo/internal/types"
)

// VerifyResult is the outcome of comparing an on-disk file against its
// expected Catalog hash.
type VerifyResult string

const (
	VerifyOK       VerifyResult = "ok"
	VerifyModified VerifyResult = "modified"
	VerifyMissing  VerifyResult = "missing"
)

// Target describes one file to materialize: its path relative to the
// install root, the content hash to fetch from the Object Store, its mode
// bits, and whether it is a symlink (in which case Hash addresses the blob
// holding the link target text, not file content).
type Target struct {
	RelPath   string
	Hash      string
	Mode      os.FileMode
	IsSymlink bool
}

// Deployer places, overwrites, and removes paths under Root so the
// filesystem mirrors the Catalog.
type Deployer struct {
	Root  string
	Store *objectstore.Store
}

// New returns a Deployer rooted at root, backed by store.
func New(root string, store *objectstore.Store) *Deployer {
	return &Deployer{Root: root, Store: store}
}

// resolve joins relPath against Root and rejects any result that escapes
// Root once ".." segments are resolved — defense against path traversal
// baked into an archive. The check is lexical: symlinks already on disk are
// not evaluated.
func (d *Deployer) resolve(relPath string) (string, error) {
	full := filepath.Join(d.Root, relPath)

	rootAbs, err := filepath.Abs(d.Root)
	if err != nil {
		return "", types.NewIOError("resolving install root", err)
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", types.NewIOError("resolving target path", err)
	}

	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(filepath.Separator)) {
		return "", types.NewIOError("path escapes install root: "+relPath, nil)
	}
	return fullAbs, nil
}

// Deploy writes one Target into place. Zero-byte regular files are deployed
// as empty files, never skipped. Callers (the Changeset Engine) are
// responsible for authorizing overwrites before calling Deploy; Deploy
// itself does not consult the Catalog.
func (d *Deployer) Deploy(t Target) error {
	full, err := d.resolve(t.RelPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return types.NewIOError("creating parent directories for "+t.RelPath, err)
	}

	if t.IsSymlink {
		return d.deploySymlink(full, t)
	}
	return d.deployRegular(full, t)
}

func (d *Deployer) deployRegular(full string, t Target) error {
	rc, err := d.Store.Open(t.Hash)
	if err != nil {
		return err
	}
	defer rc.Close()

	tmpPath := filepath.Join(filepath.Dir(full), ".silo-tmp-"+uuid.NewString())
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, t.Mode.Perm())
	if err != nil {
		return types.NewIOError("creating temp file for "+t.RelPath, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return types.NewIOError("writing "+t.RelPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return types.NewIOError("closing "+t.RelPath, err)
	}
	if err := os.Chmod(tmpPath, t.Mode.Perm()); err != nil {
		os.Remove(tmpPath)
		return types.NewIOError("setting mode on "+t.RelPath, err)
	}

	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return types.NewIOError("publishing "+t.RelPath, err)
	}
	return nil
}

func (d *Deployer) deploySymlink(full string, t Target) error {
	target, err := d.Store.Fetch(t.Hash)
	if err != nil {
		return err
	}

	tmpPath := filepath.Join(filepath.Dir(full), ".silo-tmp-"+uuid.NewString())
	if err := os.Symlink(string(target), tmpPath); err != nil {
		return types.NewIOError("creating symlink for "+t.RelPath, err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return types.NewIOError("publishing symlink "+t.RelPath, err)
	}
	return nil
}

// DeployDir ensures relPath exists as a directory under Root with the given
// mode. Archives that declare explicit directory entries (as opposed to
// directories implied by a file's path) route through here rather than
// Deploy, since there is no blob content to fetch.
func (d *Deployer) DeployDir(relPath string, mode os.FileMode) error {
	full, err := d.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, mode.Perm()); err != nil {
		return types.NewIOError("creating directory "+relPath, err)
	}
	return nil
}

// Remove unlinks relPath and rmdirs empty ancestor directories up to Root,
// best-effort: a non-empty ancestor is left alone rather than erroring.
func (d *Deployer) Remove(relPath string) error {
	full, err := d.resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewIOError("removing "+relPath, err)
	}

	dir := filepath.Dir(full)
	rootAbs, _ := filepath.Abs(d.Root)
	for dir != rootAbs && len(dir) > len(rootAbs) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Exists reports whether relPath is present on disk under Root.
func (d *Deployer) Exists(relPath string) (bool, error) {
	full, err := d.resolve(relPath)
	if err != nil {
		return false, err
	}
	_, err = os.Lstat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, types.NewIOError("statting "+relPath, err)
}

// Verify streams the on-disk file at relPath through SHA-256 and compares
// it against expectedHash.
func (d *Deployer) Verify(relPath, expectedHash string) (VerifyResult, error) {
	full, err := d.resolve(relPath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return VerifyMissing, nil
		}
		return "", types.NewIOError("opening "+relPath+" for verification", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", types.NewIOError("hashing "+relPath, err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expectedHash {
		return VerifyModified, nil
	}
	return VerifyOK, nil
}
