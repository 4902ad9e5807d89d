package status_emit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagehandgo/internal/runctx"
)

type fakeHub struct {
	event string
	data  map[string]any
	err   error
}

func (f *fakeHub) Emit(event string, data map[string]any) error {
	f.event = event
	f.data = data
	return f.err
}

func TestOnRunStatusEmit_MergesRunIdentity(t *testing.T) {
	rc := runctx.New(runctx.Options{Repository: "acme/app", Ref: "main"})
	ctx := runctx.WithContext(context.Background(), rc)

	hub := &fakeHub{}
	out, err := OnRunStatusEmit(ctx, &Deps{Hub: hub}, &Input{
		Event: "stage.finished",
		Data: cty.ObjectVal(map[string]cty.Value{
			"stage":   cty.StringVal("build"),
			"outcome": cty.StringVal("succeeded"),
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "stage.finished", out.Event)
	assert.Equal(t, "stage.finished", hub.event)
	assert.Equal(t, rc.RunID, hub.data["run_id"])
	assert.Equal(t, "acme/app", hub.data["repository"])
	assert.Equal(t, "build", hub.data["stage"])
	assert.Equal(t, "succeeded", hub.data["outcome"])
}

func TestOnRunStatusEmit_NoRunContext(t *testing.T) {
	hub := &fakeHub{}
	_, err := OnRunStatusEmit(context.Background(), &Deps{Hub: hub}, &Input{Event: "ping"})
	require.NoError(t, err)

	assert.Equal(t, "ping", hub.event)
	assert.NotContains(t, hub.data, "run_id")
}

func TestOnRunStatusEmit_EmitError(t *testing.T) {
	hub := &fakeHub{err: errors.New("connection reset")}
	_, err := OnRunStatusEmit(context.Background(), &Deps{Hub: hub}, &Input{Event: "ping"})
	assert.ErrorContains(t, err, "failed to emit")
}
