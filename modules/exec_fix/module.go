// Package exec_fix restores the executable bit on tool entry points after a
// dependency tree has been transferred between stages. Applying it twice is
// harmless.
package exec_fix

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the exec_fix action.
type Input struct {
	Paths []string `hcl:"paths"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Fixed int `cty:"fixed"`
}

// Deps is an empty struct because this action does not use any resources.
type Deps struct{}

// OnRunExecFix is the handler for the 'exec_fix' action's on_run lifecycle event.
func OnRunExecFix(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "exec_fix")

	fixed := 0
	missing := 0
	for _, path := range input.Paths {
		info, err := os.Stat(path)
		if err != nil {
			// An absent path is tolerated, not an error. Projects share one
			// pipeline across different tool sets.
			if os.IsNotExist(err) {
				logger.Debug("Path missing, skipping.", "path", path)
				missing++
				continue
			}
			return nil, fmt.Errorf("failed to stat %q: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%q is a directory, exec_fix only handles files", path)
		}

		mode := info.Mode()
		// Mirror each read bit into the matching execute bit.
		want := mode | (mode & 0o444 >> 2)
		if mode == want {
			continue
		}
		if err := os.Chmod(path, want); err != nil {
			return nil, fmt.Errorf("failed to chmod %q: %w", path, err)
		}
		logger.Debug("Restored executable bit.", "path", path)
		fixed++
	}

	logger.Info("Executable bits checked.", "paths", len(input.Paths), "fixed", fixed, "missing", missing)
	return &Output{Fixed: fixed}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunExecFix", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunExecFix,
	})
}
