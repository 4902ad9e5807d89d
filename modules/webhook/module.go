// Package webhook notifies an external HTTP endpoint about the run, e.g. to
// flip a commit status or ping a chat channel.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared across webhook executions to reuse TCP connections.
var httpClient = &http.Client{}

// Input defines the arguments for the webhook action.
type Input struct {
	URL     string            `hcl:"url"`
	Method  string            `hcl:"method,optional"`
	Body    string            `hcl:"body,optional"`
	Headers map[string]string `hcl:"headers,optional"`
	Timeout string            `hcl:"timeout,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	StatusCode int `cty:"status_code"`
}

// Deps is an empty struct because this action does not use any resources.
type Deps struct{}

// OnRunWebhook is the handler for the 'webhook' action's on_run lifecycle event.
func OnRunWebhook(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "webhook", "url", input.URL)

	method := strings.ToUpper(input.Method)
	if method == "" {
		method = http.MethodPost
	}

	timeout := 30 * time.Second
	if input.Timeout != "" {
		parsed, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", input.Timeout, err)
		}
		timeout = parsed
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, input.URL, strings.NewReader(input.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}
	if input.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	logger.Info("Sending webhook.", "method", method)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("webhook returned status %s", resp.Status)
	}

	logger.Info("Webhook delivered.", "status", resp.Status)
	return &Output{StatusCode: resp.StatusCode}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunWebhook", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunWebhook,
	})
}
