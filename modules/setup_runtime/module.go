// Package setup_runtime verifies that the requested language runtime is
// present on the runner and matches the pinned version.
package setup_runtime

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"reflect"
	"strings"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the setup_runtime action.
type Input struct {
	Runtime string `hcl:"runtime"`
	// Version pins the runtime version. Defaults to the run's runtime version.
	Version string `hcl:"version,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Path    string `cty:"path"`
	Version string `cty:"version"`
}

// Deps is an empty struct because this action does not use any resources.
type Deps struct{}

// OnRunSetupRuntime is the handler for the 'setup_runtime' action's on_run
// lifecycle event.
func OnRunSetupRuntime(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "setup_runtime", "runtime", input.Runtime)

	wantVersion := input.Version
	if wantVersion == "" {
		if rc, ok := runctx.FromContext(ctx); ok {
			wantVersion = rc.RuntimeVersion
		}
	}

	path, err := exec.LookPath(input.Runtime)
	if err != nil {
		return nil, fmt.Errorf("runtime '%s' not found on PATH: %w", input.Runtime, err)
	}

	cmd := exec.CommandContext(ctx, path, "--version")
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to query version of '%s': %w", input.Runtime, err)
	}
	gotVersion := strings.TrimSpace(buf.String())

	if wantVersion != "" && !strings.Contains(gotVersion, wantVersion) {
		return nil, fmt.Errorf("runtime '%s' reports version %q, want %q", input.Runtime, gotVersion, wantVersion)
	}

	logger.Info("Runtime available.", "path", path, "version", gotVersion)
	return &Output{Path: path, Version: gotVersion}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunSetupRuntime", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunSetupRuntime,
	})
}
