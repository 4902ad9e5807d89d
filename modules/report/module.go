// Package report serializes the run context, including per-stage outcomes,
// for post-hoc inspection. It is normally gated on_failure.
package report

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the report action.
type Input struct {
	// Path is the file the report is written to. Empty writes to stdout.
	Path string `hcl:"path,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Path string `cty:"path"`
}

// Deps is an empty struct because this action does not use any resources.
type Deps struct{}

// OnRunReport is the handler for the 'report' action's on_run lifecycle event.
func OnRunReport(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "report")

	rc, ok := runctx.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no run context available to report on")
	}

	if input.Path == "" {
		if err := rc.Dump(os.Stdout); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("Run report written to stdout.")
		return &Output{Path: "-"}, nil
	}

	f, err := os.Create(input.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := rc.Dump(f); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("Run report written.", "path", input.Path)
	return &Output{Path: input.Path}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunReport", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunReport,
	})
}
