// Package cache restores and saves dependency caches keyed by a lockfile
// hash. A restore reports whether it hit so later steps can gate on it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"runtime"

	"github.com/vk/stagehandgo/internal/archive"
	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
	"github.com/vk/stagehandgo/internal/store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the cache action.
type Input struct {
	// Action is either "restore" or "save".
	Action string `hcl:"action"`
	// Path is the directory covered by the cache, e.g. "node_modules".
	Path string `hcl:"path"`
	// KeyPrefix names the cache family, e.g. "node". The full key is
	// "<os>-<key_prefix>-<lockfile sha256>".
	KeyPrefix string `hcl:"key_prefix"`
	// LockFile is hashed into the cache key.
	LockFile string `hcl:"lock_file"`
	// RestoreStale also accepts entries matching "<os>-<key_prefix>-" when
	// the exact key misses. A stale restore still reports cache_hit = false.
	RestoreStale bool `hcl:"restore_stale,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	CacheHit   bool   `cty:"cache_hit"`
	Key        string `cty:"key"`
	MatchedKey string `cty:"matched_key"`
}

// Deps declares the resources this action uses.
type Deps struct {
	Store store.Store `hcl:"store"`
}

// OnRunCache is the handler for the 'cache' action's on_run lifecycle event.
func OnRunCache(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	key, err := cacheKey(input.KeyPrefix, input.LockFile)
	if err != nil {
		return nil, err
	}

	scope := ""
	if rc, ok := runctx.FromContext(ctx); ok {
		scope = rc.Ref
	}

	switch input.Action {
	case "restore":
		return restore(ctx, deps.Store, scope, key, input)
	case "save":
		return save(ctx, deps.Store, scope, key, input)
	default:
		return nil, fmt.Errorf("unknown cache action %q, want 'restore' or 'save'", input.Action)
	}
}

// cacheKey derives the full cache key from the OS, the key prefix, and the
// lockfile contents.
func cacheKey(prefix, lockFile string) (string, error) {
	data, err := os.ReadFile(lockFile)
	if err != nil {
		return "", fmt.Errorf("failed to read lock file %q: %w", lockFile, err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s-%s-%s", runtime.GOOS, prefix, hex.EncodeToString(sum[:])), nil
}

func restore(ctx context.Context, s store.Store, scope, key string, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "cache", "key", key)

	restorePrefix := ""
	if input.RestoreStale {
		restorePrefix = fmt.Sprintf("%s-%s-", runtime.GOOS, input.KeyPrefix)
	}

	rc, matchedKey, err := s.RestoreCache(ctx, scope, key, restorePrefix)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("Cache miss.")
		return &Output{CacheHit: false, Key: key}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restore cache: %w", err)
	}
	defer rc.Close()

	if err := archive.UnpackDir(rc, input.Path); err != nil {
		return nil, fmt.Errorf("failed to unpack cache entry %q into %s: %w", matchedKey, input.Path, err)
	}

	hit := matchedKey == key
	if hit {
		logger.Info("Cache hit.", "path", input.Path)
	} else {
		logger.Info("Stale cache restored.", "matched_key", matchedKey, "path", input.Path)
	}
	return &Output{CacheHit: hit, Key: key, MatchedKey: matchedKey}, nil
}

func save(ctx context.Context, s store.Store, scope, key string, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "cache", "key", key)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(archive.PackDir(pw, input.Path))
	}()

	if err := s.SaveCache(ctx, scope, key, pr); err != nil {
		return nil, fmt.Errorf("failed to save cache: %w", err)
	}

	logger.Info("Cache saved.", "path", input.Path)
	return &Output{CacheHit: false, Key: key, MatchedKey: key}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunCache", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunCache,
	})
}
