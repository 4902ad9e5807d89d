// Package shell runs an arbitrary command through the system shell.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"strings"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the shell action.
type Input struct {
	Command    string            `hcl:"command"`
	WorkingDir string            `hcl:"working_dir,optional"`
	Env        map[string]string `hcl:"env,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Stdout string `cty:"stdout"`
}

// Deps is an empty struct because this action does not use any resources.
type Deps struct{}

// stderrTailLimit bounds how much of stderr is folded into a failure message.
const stderrTailLimit = 2048

// OnRunShell is the handler for the 'shell' action's on_run lifecycle event.
func OnRunShell(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "shell")
	logger.Info("Running command.", "command", input.Command)

	cmd := exec.CommandContext(ctx, "sh", "-c", input.Command)
	if input.WorkingDir != "" {
		cmd.Dir = input.WorkingDir
	}
	cmd.Env = os.Environ()
	for k, v := range input.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("command %q failed: %w: %s", input.Command, err, tail(stderr.String(), stderrTailLimit))
	}

	logger.Debug("Command finished.", "stdout_bytes", stdout.Len())
	return &Output{Stdout: strings.TrimSpace(stdout.String())}, nil
}

// tail returns the last n bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunShell", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunShell,
	})
}
