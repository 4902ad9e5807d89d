// Package status_emit publishes run progress events over a statushub
// connection.
package status_emit

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
	"github.com/vk/stagehandgo/modules/statushub"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the status_emit action.
type Input struct {
	Event string    `hcl:"event"`
	Data  cty.Value `hcl:"data,optional"`
}

// Deps declares the resources this action consumes via 'uses' blocks.
type Deps struct {
	Hub statushub.Emitter `hcl:"hub"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Event string `cty:"event"`
}

// OnRunStatusEmit is the handler for the 'status_emit' action's on_run
// lifecycle event.
func OnRunStatusEmit(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "status_emit", "event", input.Event)

	payload := map[string]any{}
	if rc, ok := runctx.FromContext(ctx); ok {
		payload["run_id"] = rc.RunID
		payload["repository"] = rc.Repository
		payload["ref"] = rc.Ref
	}

	data, err := ctyToGo(input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	for k, v := range data {
		payload[k] = v
	}

	logger.Info("Emitting status event.")
	if err := deps.Hub.Emit(input.Event, payload); err != nil {
		return nil, fmt.Errorf("failed to emit %q: %w", input.Event, err)
	}

	return &Output{Event: input.Event}, nil
}

// ctyToGo flattens an object value into plain Go types by round-tripping
// through JSON.
func ctyToGo(v cty.Value) (map[string]any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("event data must be an object: %w", err)
	}
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunStatusEmit", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunStatusEmit,
	})
}
