package objectstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/siloworks/silo/internal/types"
)

// Store is a content-addressed blob store rooted at a single directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewIOError("creating object store root", err)
	}
	return &Store{root: dir}, nil
}

// ComputeHash is a pure helper: it performs no I/O.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PathOf returns the on-disk path for a blob with the given hash, whether
// or not it currently exists.
func (s *Store) PathOf(hash string) (string, error) {
	if len(hash) < 2 {
		return "", types.NewIOError("hash too short for fan-out layout: "+hash, nil)
	}
	return filepath.Join(s.root, hash[:2], hash), nil
}

// Exists reports whether a blob for hash is already stored.
func (s *Store) Exists(hash string) (bool, error) {
	path, err := s.PathOf(hash)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, types.NewIOError("statting blob "+hash, err)
}

// Store writes data into the store keyed by its SHA-256 and returns that
// hash. If the blob already exists, the existing file is left untouched and
// no write occurs. The write itself goes to a sibling temp file that is
// renamed into place, so a reader never observes a partially written blob.
func (s *Store) Store(data []byte) (string, error) {
	hash := ComputeHash(data)

	path, err := s.PathOf(hash)
	if err != nil {
		return "", err
	}

	if ok, err := s.Exists(hash); err != nil {
		return "", err
	} else if ok {
		return hash, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", types.NewIOError("creating fan-out directory", err)
	}

	tmpPath := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", types.NewIOError("writing temp blob", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", types.NewIOError("publishing blob", err)
	}

	return hash, nil
}

// StoreReader is the streaming equivalent of Store for large files; it reads
// r fully into a temp file while hashing, then renames into place under the
// hash it computed (the caller cannot know the final path beforehand).
func (s *Store) StoreReader(r io.Reader) (hash string, size int64, err error) {
	tmpDir := filepath.Join(s.root, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", 0, types.NewIOError("creating scratch directory", err)
	}

	tmpPath := filepath.Join(tmpDir, uuid.NewString())
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, types.NewIOError("creating temp blob", err)
	}
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		f.Close()
		return "", 0, types.NewIOError("streaming blob to temp file", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, types.NewIOError("closing temp blob", err)
	}

	hash = hex.EncodeToString(h.Sum(nil))
	finalPath, err := s.PathOf(hash)
	if err != nil {
		return "", 0, err
	}

	if ok, err := s.Exists(hash); err != nil {
		return "", 0, err
	} else if ok {
		return hash, n, nil
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", 0, types.NewIOError("creating fan-out directory", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", 0, types.NewIOError("publishing blob", err)
	}

	return hash, n, nil
}

// Fetch reads and returns the full contents of the blob for hash.
func (s *Store) Fetch(hash string) ([]byte, error) {
	path, err := s.PathOf(hash)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewNotFoundError(fmt.Sprintf("blob %s not found in object store", hash))
		}
		return nil, types.NewIOError("reading blob "+hash, err)
	}
	return data, nil
}

// Open returns a reader over the blob for hash; the caller must Close it.
func (s *Store) Open(hash string) (io.ReadCloser, error) {
	path, err := s.PathOf(hash)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewNotFoundError(fmt.Sprintf("blob %s not found in object store", hash))
		}
		return nil, types.NewIOError("opening blob "+hash, err)
	}
	return f, nil
}
