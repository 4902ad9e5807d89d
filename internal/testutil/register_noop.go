package testutil

import (
	"context"
	"reflect"

	"github.com/vk/stagehandgo/internal/registry"
)

// NoOpModule registers a single "NoOp" action handler. It is useful for
// tests that should fail before execution begins but still need valid HCL
// that can pass registry validation.
type NoOpModule struct{}

// Register registers a "NoOp" action that takes no inputs, requires no
// resources, and does nothing.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterAction("NoOp", &registry.RegisteredAction{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps any, input any) (any, error) {
			return nil, nil
		},
	})
}
