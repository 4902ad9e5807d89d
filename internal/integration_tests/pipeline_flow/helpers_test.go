package integration_tests

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/testutil"
)

// probeManifestHCL declares the "probe" action used by the flow tests. Its
// Go handler records execution order and can be told to fail or to report a
// boolean output for guard tests.
const probeManifestHCL = `
	action "probe" {
		lifecycle { on_run = "OnRunProbe" }
		input "id" {
			type = string
		}
		input "fail" {
			type    = bool
			default = false
		}
		input "hit" {
			type    = bool
			default = false
		}
		output "hit" {
			type = bool
		}
	}
`

type probeInput struct {
	ID   string `hcl:"id"`
	Fail bool   `hcl:"fail,optional"`
	Hit  bool   `hcl:"hit,optional"`
}

type probeOutput struct {
	Hit bool `cty:"hit"`
}

// probeModule registers the "probe" handler and tracks every invocation.
type probeModule struct {
	mu            sync.Mutex
	order         []string
	records       map[string]*testutil.ExecutionRecord
	sleepDuration time.Duration
}

func newProbeModule() *probeModule {
	return &probeModule{records: make(map[string]*testutil.ExecutionRecord)}
}

// Order returns the step ids in the order they executed.
func (m *probeModule) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Ran reports whether the step with the given id executed.
func (m *probeModule) Ran(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

// Record returns the execution record for a step id, or nil.
func (m *probeModule) Record(id string) *testutil.ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// Register registers the "probe" action's Go handler.
func (m *probeModule) Register(r *registry.Registry) {
	r.RegisterAction("OnRunProbe", &registry.RegisteredAction{
		NewInput:  func() any { return new(probeInput) },
		InputType: reflect.TypeOf(probeInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *probeInput) (*probeOutput, error) {
			start := time.Now()
			if m.sleepDuration > 0 {
				time.Sleep(m.sleepDuration)
			}
			end := time.Now()

			m.mu.Lock()
			m.order = append(m.order, input.ID)
			m.records[input.ID] = &testutil.ExecutionRecord{Start: start, End: end}
			m.mu.Unlock()

			if input.Fail {
				return nil, errors.New("probe failed on request")
			}
			return &probeOutput{Hit: input.Hit}, nil
		},
	})
}
