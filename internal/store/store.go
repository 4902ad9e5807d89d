package store

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no cache entry or artifact matches a lookup.
var ErrNotFound = errors.New("store: not found")

// Store is the blob storage backend shared by the cache and artifact
// transfer mechanisms. Cache entries are addressed by (scope, key) where
// scope is the branch ref; artifacts are flat named blobs, write-once and
// scoped to a single run.
type Store interface {
	// SaveCache stores the blob under (scope, key), overwriting any
	// existing entry with the same address.
	SaveCache(ctx context.Context, scope, key string, src io.Reader) error

	// RestoreCache returns the entry for the exact key, or, failing that,
	// the most recently saved entry in scope whose key starts with
	// restorePrefix. The returned matchedKey reports which one was found.
	// ErrNotFound is returned when neither matches.
	RestoreCache(ctx context.Context, scope, key, restorePrefix string) (rc io.ReadCloser, matchedKey string, err error)

	// PutArtifact stores a named artifact blob.
	PutArtifact(ctx context.Context, name string, src io.Reader) error

	// GetArtifact retrieves a named artifact blob, or ErrNotFound.
	GetArtifact(ctx context.Context, name string) (io.ReadCloser, error)
}
