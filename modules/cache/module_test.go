package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagehandgo/internal/runctx"
	"github.com/vk/stagehandgo/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewLocal(t.TempDir())
	require.NoError(t, err)
	return s
}

func testCtx() context.Context {
	rc := runctx.New(runctx.Options{Repository: "acme/web", Ref: "refs/heads/main"})
	return runctx.WithContext(context.Background(), rc)
}

func writeLockFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "package-lock.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOnRunCache_MissThenSaveThenHit(t *testing.T) {
	ctx := testCtx()
	s := newTestStore(t)
	work := t.TempDir()
	lock := writeLockFile(t, work, `{"deps":1}`)

	deps := filepath.Join(work, "node_modules")
	require.NoError(t, os.MkdirAll(deps, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(deps, "pkg.js"), []byte("x"), 0o644))

	input := &Input{Action: "restore", Path: deps, KeyPrefix: "node", LockFile: lock}

	// First restore misses.
	out, err := OnRunCache(ctx, &Deps{Store: s}, input)
	require.NoError(t, err)
	assert.False(t, out.CacheHit)
	assert.NotEmpty(t, out.Key)

	// Save the populated directory.
	saveInput := *input
	saveInput.Action = "save"
	_, err = OnRunCache(ctx, &Deps{Store: s}, &saveInput)
	require.NoError(t, err)

	// A second restore into a fresh directory hits and unpacks.
	target := filepath.Join(t.TempDir(), "node_modules")
	restoreInput := *input
	restoreInput.Path = target
	out, err = OnRunCache(ctx, &Deps{Store: s}, &restoreInput)
	require.NoError(t, err)
	assert.True(t, out.CacheHit)
	assert.Equal(t, out.Key, out.MatchedKey)

	restored, err := os.ReadFile(filepath.Join(target, "pkg.js"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(restored))
}

func TestOnRunCache_LockfileChangeMisses(t *testing.T) {
	ctx := testCtx()
	s := newTestStore(t)
	work := t.TempDir()
	lock := writeLockFile(t, work, `{"deps":1}`)

	deps := filepath.Join(work, "node_modules")
	require.NoError(t, os.MkdirAll(deps, 0o755))

	_, err := OnRunCache(ctx, &Deps{Store: s}, &Input{Action: "save", Path: deps, KeyPrefix: "node", LockFile: lock})
	require.NoError(t, err)

	// Changing the lockfile changes the key, so the exact restore misses.
	lock = writeLockFile(t, work, `{"deps":2}`)
	out, err := OnRunCache(ctx, &Deps{Store: s}, &Input{Action: "restore", Path: deps, KeyPrefix: "node", LockFile: lock})
	require.NoError(t, err)
	assert.False(t, out.CacheHit)
}

func TestOnRunCache_StaleRestore(t *testing.T) {
	ctx := testCtx()
	s := newTestStore(t)
	work := t.TempDir()
	lock := writeLockFile(t, work, `{"deps":1}`)

	deps := filepath.Join(work, "node_modules")
	require.NoError(t, os.MkdirAll(deps, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(deps, "old.js"), []byte("old"), 0o644))

	_, err := OnRunCache(ctx, &Deps{Store: s}, &Input{Action: "save", Path: deps, KeyPrefix: "node", LockFile: lock})
	require.NoError(t, err)

	lock = writeLockFile(t, work, `{"deps":2}`)
	target := filepath.Join(t.TempDir(), "node_modules")
	out, err := OnRunCache(ctx, &Deps{Store: s}, &Input{
		Action: "restore", Path: target, KeyPrefix: "node", LockFile: lock, RestoreStale: true,
	})
	require.NoError(t, err)

	// A stale restore unpacks but still reports a miss.
	assert.False(t, out.CacheHit)
	assert.NotEqual(t, out.Key, out.MatchedKey)
	assert.FileExists(t, filepath.Join(target, "old.js"))
}

func TestOnRunCache_UnknownAction(t *testing.T) {
	ctx := testCtx()
	work := t.TempDir()
	lock := writeLockFile(t, work, "{}")

	_, err := OnRunCache(ctx, &Deps{Store: newTestStore(t)}, &Input{Action: "prune", Path: work, KeyPrefix: "node", LockFile: lock})
	assert.ErrorContains(t, err, "unknown cache action")
}

func TestOnRunCache_MissingLockfile(t *testing.T) {
	_, err := OnRunCache(testCtx(), &Deps{Store: newTestStore(t)}, &Input{
		Action: "restore", Path: t.TempDir(), KeyPrefix: "node", LockFile: "does-not-exist.json",
	})
	assert.ErrorContains(t, err, "failed to read lock file")
}
