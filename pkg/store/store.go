// Package store persists skeleton fragments and merged skeleton documents
// between pipeline stages.
//
// Chunk workers and the merge step usually run as separate processes (often
// on separate machines), so everything they exchange goes through a Store.
// Keys are path-like strings; the helpers below define the layout so every
// backend agrees on it:
//
//	fragments/<object>/<cx>_<cy>_<cz>   one fragment per covering chunk
//	skeletons/<object>/<version>        one merged document per merge run
//
// Backends: FileStore for single-machine runs and CLI usage, RedisStore for
// distributed runs, MemStore for tests.
package store

import (
	"context"
	"fmt"
)

// Store is a byte-blob store with prefix listing.
//
// Get reports found=false for missing keys rather than an error, so callers
// can distinguish absence from backend failure. List returns the keys under
// a prefix in unspecified order; callers sort if they need determinism.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// FragmentKey returns the key for one chunk's fragment of an object.
func FragmentKey(objectID uint64, chunk [3]int) string {
	return fmt.Sprintf("fragments/%d/%d_%d_%d", objectID, chunk[0], chunk[1], chunk[2])
}

// FragmentPrefix returns the listing prefix covering all fragments of an
// object.
func FragmentPrefix(objectID uint64) string {
	return fmt.Sprintf("fragments/%d/", objectID)
}

// SkeletonKey returns the key for one merged skeleton document. version is
// the merge run's identifier, so repeated merges never overwrite each other.
func SkeletonKey(objectID uint64, version string) string {
	return fmt.Sprintf("skeletons/%d/%s", objectID, version)
}
