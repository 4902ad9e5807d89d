// Package artifact transfers a directory between stages through the blob
// store. Artifacts are named per run and are write-once.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/vk/stagehandgo/internal/archive"
	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
	"github.com/vk/stagehandgo/internal/store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the artifact action.
type Input struct {
	// Action is either "upload" or "download".
	Action string `hcl:"action"`
	// Name identifies the artifact within the run.
	Name string `hcl:"name"`
	// Path is the directory to pack on upload, or the target on download.
	Path string `hcl:"path"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Name string `cty:"name"`
}

// Deps declares the resources this action uses.
type Deps struct {
	Store store.Store `hcl:"store"`
}

// OnRunArtifact is the handler for the 'artifact' action's on_run lifecycle
// event. Artifact names are prefixed with the run ID so concurrent runs never
// collide.
func OnRunArtifact(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "artifact", "name", input.Name)

	name := input.Name
	if rc, ok := runctx.FromContext(ctx); ok {
		name = rc.RunID + "/" + name
	}

	switch input.Action {
	case "upload":
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(archive.PackDir(pw, input.Path))
		}()
		if err := deps.Store.PutArtifact(ctx, name, pr); err != nil {
			return nil, fmt.Errorf("failed to upload artifact %q: %w", input.Name, err)
		}
		logger.Info("Artifact uploaded.", "path", input.Path)

	case "download":
		rc, err := deps.Store.GetArtifact(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("artifact %q not found", input.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to download artifact %q: %w", input.Name, err)
		}
		defer rc.Close()
		if err := archive.UnpackDir(rc, input.Path); err != nil {
			return nil, fmt.Errorf("failed to unpack artifact %q into %s: %w", input.Name, input.Path, err)
		}
		logger.Info("Artifact downloaded.", "path", input.Path)

	default:
		return nil, fmt.Errorf("unknown artifact action %q, want 'upload' or 'download'", input.Action)
	}

	return &Output{Name: input.Name}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunArtifact", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunArtifact,
	})
}
