// Package cache_purge evicts old cache entries for the current ref by
// shelling out to the external cache CLI. Purging is best-effort: a broken
// or missing CLI must never fail a cleanup stage.
package cache_purge

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"reflect"
	"strconv"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the cache_purge action.
type Input struct {
	// CLI is the cache tool executable.
	CLI string `hcl:"cli,optional"`
	// Ref scopes the purge. Defaults to the run's ref.
	Ref string `hcl:"ref,optional"`
	// Limit caps how many entries one purge lists.
	Limit int `hcl:"limit,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Purged int `cty:"purged"`
	Failed int `cty:"failed"`
}

// Deps is an empty struct because this action does not use any resources.
type Deps struct{}

// cacheEntry mirrors one element of the CLI's `list --json` output.
type cacheEntry struct {
	ID string `json:"id"`
}

// OnRunCachePurge is the handler for the 'cache_purge' action's on_run
// lifecycle event. It always returns a nil error; failures are reported
// through logs and the failed counter.
func OnRunCachePurge(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "cache_purge")

	cli := input.CLI
	if cli == "" {
		cli = "stagehand-cache"
	}
	ref := input.Ref
	if ref == "" {
		if rc, ok := runctx.FromContext(ctx); ok {
			ref = rc.Ref
		}
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 100
	}

	listCmd := exec.CommandContext(ctx, cli, "list", "--ref", ref, "--limit", strconv.Itoa(limit), "--json")
	var stdout, stderr bytes.Buffer
	listCmd.Stdout = &stdout
	listCmd.Stderr = &stderr
	if err := listCmd.Run(); err != nil {
		logger.Warn("Cache list failed, skipping purge.", "cli", cli, "error", err, "stderr", stderr.String())
		return &Output{}, nil
	}

	var entries []cacheEntry
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		logger.Warn("Cache list returned invalid JSON, skipping purge.", "cli", cli, "error", err)
		return &Output{}, nil
	}
	logger.Info("Purging cache entries.", "ref", ref, "count", len(entries))

	out := &Output{}
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		deleteCmd := exec.CommandContext(ctx, cli, "delete", entry.ID)
		if err := deleteCmd.Run(); err != nil {
			logger.Warn("Failed to delete cache entry.", "id", entry.ID, "error", err)
			out.Failed++
			continue
		}
		out.Purged++
	}

	logger.Info("Cache purge finished.", "purged", out.Purged, "failed", out.Failed)
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunCachePurge", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunCachePurge,
	})
}
