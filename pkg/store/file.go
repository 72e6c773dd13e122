package store

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/observability"
)

// fileExt marks store blobs on disk; everything else in the tree is ignored.
const fileExt = ".zst"

// FileStore keeps blobs as zstd-compressed files under a root directory.
// The path-like key structure maps directly onto the filesystem, which keeps
// the store browsable and makes List a directory walk.
type FileStore struct {
	root string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// NewFileStore creates a file store rooted at dir. The directory is created
// if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "creating store root %q", dir)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "initializing compressor")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "initializing decompressor")
	}
	return &FileStore{root: dir, enc: enc, dec: dec}, nil
}

// Get retrieves a blob, reporting found=false when the key doesn't exist.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		observability.Stores().OnStoreGet(ctx, key, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStore, err, "reading %q", key)
	}
	data, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStore, err, "decompressing %q", key)
	}
	observability.Stores().OnStoreGet(ctx, key, true)
	return data, true, nil
}

// Set stores a blob, creating parent directories as needed.
func (s *FileStore) Set(ctx context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "creating directory for %q", key)
	}
	if err := os.WriteFile(path, s.enc.EncodeAll(data, nil), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "writing %q", key)
	}
	observability.Stores().OnStoreSet(ctx, key, len(data))
	return nil
}

// Delete removes a blob. Deleting a missing key is not an error.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "deleting %q", key)
	}
	return nil
}

// List returns every key under prefix.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, fileExt) {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), fileExt)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "listing %q", prefix)
	}
	return keys, nil
}

// Close releases the shared compressor state.
func (s *FileStore) Close() error {
	err := s.enc.Close()
	s.dec.Close()
	return err
}

// path maps a key to its on-disk location, rejecting keys that would escape
// the store root.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid store key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)+fileExt), nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
