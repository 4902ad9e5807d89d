package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestLocal_CacheRoundTrip(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = s.SaveCache(ctx, "refs/heads/main", "linux-node-abc123", strings.NewReader("payload"))
	require.NoError(t, err)

	rc, matched, err := s.RestoreCache(ctx, "refs/heads/main", "linux-node-abc123", "")
	require.NoError(t, err)
	assert.Equal(t, "linux-node-abc123", matched)
	assert.Equal(t, "payload", readAll(t, rc))
}

func TestLocal_CacheMiss(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.RestoreCache(context.Background(), "refs/heads/main", "linux-node-missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_CachePrefixFallback(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.SaveCache(ctx, "refs/heads/main", "linux-node-old", strings.NewReader("old")))
	// ModTime granularity on some filesystems is coarse; make sure the
	// second entry is strictly newer.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.SaveCache(ctx, "refs/heads/main", "linux-node-new", strings.NewReader("new")))

	rc, matched, err := s.RestoreCache(ctx, "refs/heads/main", "linux-node-nonexistent", "linux-node-")
	require.NoError(t, err)
	assert.Equal(t, "linux-node-new", matched)
	assert.Equal(t, "new", readAll(t, rc))
}

func TestLocal_CacheScopeIsolation(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.SaveCache(ctx, "refs/heads/main", "linux-node-abc", strings.NewReader("main")))

	_, _, err = s.RestoreCache(ctx, "refs/heads/feature", "linux-node-abc", "linux-node-")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_ArtifactRoundTrip(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.PutArtifact(ctx, "node-modules", strings.NewReader("tree")))

	rc, err := s.GetArtifact(ctx, "node-modules")
	require.NoError(t, err)
	assert.Equal(t, "tree", readAll(t, rc))
}

func TestLocal_ArtifactNotFound(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetArtifact(context.Background(), "never-uploaded")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_SlashedRefsAreSafe(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.SaveCache(ctx, "refs/heads/feature/x", "key", strings.NewReader("v")))

	// The scope must not have been split into nested directories.
	entries, err := os.ReadDir(filepath.Join(root, "cache"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")
}
