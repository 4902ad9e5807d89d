package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Local is a filesystem-backed Store rooted at a single directory. Cache
// entries live under cache/<scope>/<key>, artifacts under artifacts/<name>.
// Scope and key are path-escaped, so branch refs with slashes are safe.
type Local struct {
	root string
}

// NewLocal creates a filesystem store rooted at the given directory,
// creating it if necessary.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}
	return &Local{root: root}, nil
}

func (l *Local) cacheDir(scope string) string {
	return filepath.Join(l.root, "cache", url.PathEscape(scope))
}

func (l *Local) artifactPath(name string) string {
	return filepath.Join(l.root, "artifacts", url.PathEscape(name))
}

// SaveCache implements Store.
func (l *Local) SaveCache(ctx context.Context, scope, key string, src io.Reader) error {
	dir := l.cacheDir(scope)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache scope dir: %w", err)
	}
	return writeBlob(filepath.Join(dir, url.PathEscape(key)), src)
}

// RestoreCache implements Store.
func (l *Local) RestoreCache(ctx context.Context, scope, key, restorePrefix string) (io.ReadCloser, string, error) {
	dir := l.cacheDir(scope)

	// Exact match first.
	if f, err := os.Open(filepath.Join(dir, url.PathEscape(key))); err == nil {
		return f, key, nil
	}

	if restorePrefix == "" {
		return nil, "", ErrNotFound
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to list cache scope dir: %w", err)
	}

	// Prefix fallback: newest matching entry wins.
	var bestName string
	var bestModTime int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		decoded, err := url.PathUnescape(entry.Name())
		if err != nil || !strings.HasPrefix(decoded, restorePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); bestName == "" || mod > bestModTime {
			bestName = entry.Name()
			bestModTime = mod
		}
	}
	if bestName == "" {
		return nil, "", ErrNotFound
	}

	f, err := os.Open(filepath.Join(dir, bestName))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open cache entry: %w", err)
	}
	matched, _ := url.PathUnescape(bestName)
	return f, matched, nil
}

// PutArtifact implements Store.
func (l *Local) PutArtifact(ctx context.Context, name string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Join(l.root, "artifacts"), 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	return writeBlob(l.artifactPath(name), src)
}

// GetArtifact implements Store.
func (l *Local) GetArtifact(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(l.artifactPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// writeBlob streams src into path via a temp file and rename, so partially
// written blobs are never visible under their final name.
func writeBlob(path string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-blob-*")
	if err != nil {
		return fmt.Errorf("failed to create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
