// Package statushub maintains a persistent socket.io connection to a status
// hub for the duration of a run, so every status emission reuses one
// connection instead of redialing.
package statushub

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for creating a statushub resource.
type Input struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional"`
}

// Hub is the live connection handed to dependent actions.
type Hub struct {
	io *socket.Socket
}

// Emitter is the contract dependent actions code against.
type Emitter interface {
	Emit(event string, data map[string]any) error
}

// Emit sends an event to the hub, fire and forget.
func (h *Hub) Emit(event string, data map[string]any) error {
	return h.io.Emit(event, data)
}

// CreateStatusHub is the 'create' handler for the statushub asset. It blocks
// until the connection is established or the timeout elapses.
func CreateStatusHub(ctx context.Context, input *Input) (*Hub, error) {
	logger := ctxlog.FromContext(ctx).With("asset", "statushub", "url", input.URL)
	logger.Info("Connecting to status hub.")

	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	timeout := 15 * time.Second
	if input.ConnectTimeout != "" {
		parsed, err := time.ParseDuration(input.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid connect_timeout %q: %w", input.ConnectTimeout, err)
		}
		timeout = parsed
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if input.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(input.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to status hub.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- errs[0].(error)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("status hub connection failed: %w", err)
		}
		return &Hub{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for status hub connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for status hub connection", timeout)
	}
}

// DestroyStatusHub is the 'destroy' handler.
func DestroyStatusHub(h *Hub) error {
	h.io.Disconnect()
	return nil
}

// Register registers the asset handlers and interface with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAssetHandler("CreateStatusHub", &registry.RegisteredAsset{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		CreateFn:  CreateStatusHub,
	})
	r.RegisterAssetHandler("DestroyStatusHub", &registry.RegisteredAsset{
		DestroyFn: DestroyStatusHub,
	})
	r.RegisterAssetInterface("statushub", reflect.TypeOf((*Emitter)(nil)).Elem())
}
