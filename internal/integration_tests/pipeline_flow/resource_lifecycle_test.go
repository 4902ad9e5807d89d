package integration_tests

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/testutil"
)

const counterManifestHCL = `
	asset "counter" {
		lifecycle {
			create  = "CreateCounter"
			destroy = "DestroyCounter"
		}
	}
`

const tickManifestHCL = `
	action "tick" {
		lifecycle { on_run = "OnRunTick" }
		uses "counter" {
			asset_type = "counter"
		}
	}
`

// ticker is the contract the tick action codes against.
type ticker interface {
	Tick()
}

type counterInstance struct {
	ticks int32
}

func (c *counterInstance) Tick() {
	atomic.AddInt32(&c.ticks, 1)
}

// counterModule registers a shared counter asset plus the tick action, and
// records how many times the asset was created and destroyed.
type counterModule struct {
	created   int32
	destroyed int32
	instance  *counterInstance
}

func (m *counterModule) Register(r *registry.Registry) {
	r.RegisterAssetHandler("CreateCounter", &registry.RegisteredAsset{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		CreateFn: func(ctx context.Context, input *struct{}) (*counterInstance, error) {
			atomic.AddInt32(&m.created, 1)
			m.instance = &counterInstance{}
			return m.instance, nil
		},
	})
	r.RegisterAssetHandler("DestroyCounter", &registry.RegisteredAsset{
		DestroyFn: func(c *counterInstance) error {
			atomic.AddInt32(&m.destroyed, 1)
			return nil
		},
	})
	r.RegisterAssetInterface("counter", reflect.TypeOf((*ticker)(nil)).Elem())

	type tickDeps struct {
		Counter ticker `hcl:"counter"`
	}
	r.RegisterAction("OnRunTick", &registry.RegisteredAction{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(tickDeps) },
		Fn: func(ctx context.Context, deps *tickDeps, input *struct{}) (any, error) {
			deps.Counter.Tick()
			return nil, nil
		},
	})
}

// A resource shared by two stages is created exactly once and destroyed
// exactly once after the run completes.
func TestPipelineFlow_ResourceCreateOnceDestroyOnCleanup(t *testing.T) {
	pipelineHCL := `
		resource "counter" "main" {}

		stage "one" {
			step "tick" "t" {
				uses { counter = resource.counter.main }
			}
		}
		stage "two" {
			depends_on = ["one"]
			step "tick" "t" {
				uses { counter = resource.counter.main }
			}
		}
	`

	mod := &counterModule{}
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline/main.hcl":            pipelineHCL,
		"modules/counter/manifest.hcl": counterManifestHCL,
		"modules/tick/manifest.hcl":    tickManifestHCL,
	}, mod)
	require.NoError(t, result.Err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&mod.created), "resource must be created exactly once")
	assert.Equal(t, int32(1), atomic.LoadInt32(&mod.destroyed), "resource must be destroyed on cleanup")
	assert.Equal(t, int32(2), atomic.LoadInt32(&mod.instance.ticks), "both stages must share the same instance")
}

// Resources are torn down even when the pipeline fails.
func TestPipelineFlow_ResourceDestroyedAfterFailure(t *testing.T) {
	pipelineHCL := `
		resource "counter" "main" {}

		stage "one" {
			step "tick" "t" {
				uses { counter = resource.counter.main }
			}
			step "probe" "boom" {
				arguments {
					id   = "boom"
					fail = true
				}
			}
		}
	`

	mod := &counterModule{}
	probe := newProbeModule()
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline/main.hcl":            pipelineHCL,
		"modules/counter/manifest.hcl": counterManifestHCL,
		"modules/tick/manifest.hcl":    tickManifestHCL,
		"modules/probe/manifest.hcl":   probeManifestHCL,
	}, mod, probe)

	require.Error(t, result.Err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&mod.destroyed))
}
