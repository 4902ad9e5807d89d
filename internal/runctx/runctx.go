// Package runctx carries the identity and environment of a single pipeline
// run: repository, branch ref, ephemeral token, pinned runtime version,
// platform, and the per-stage outcome ledger. It travels through
// context.Context and is what the failure reporter serializes.
package runctx

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var runKey = key{}

// Options are the externally supplied inputs for a run.
type Options struct {
	Repository     string
	Ref            string
	Token          string
	RuntimeVersion string
}

// Context describes one pipeline run. The identity fields are immutable
// after New; the outcome ledger is appended to as stages reach a terminal
// state.
type Context struct {
	RunID          string    `json:"run_id"`
	Repository     string    `json:"repository"`
	Ref            string    `json:"ref"`
	OS             string    `json:"os"`
	RuntimeVersion string    `json:"runtime_version"`
	StartedAt      time.Time `json:"started_at"`

	// token is the ephemeral authorization token. It is deliberately
	// unexported so no serialization path can leak it.
	token string

	mu       sync.Mutex
	outcomes map[string]string
}

// New creates the context for a fresh run with a generated run id.
func New(opts Options) *Context {
	return &Context{
		RunID:          uuid.NewString(),
		Repository:     opts.Repository,
		Ref:            opts.Ref,
		OS:             runtime.GOOS,
		RuntimeVersion: opts.RuntimeVersion,
		StartedAt:      time.Now().UTC(),
		token:          opts.Token,
		outcomes:       make(map[string]string),
	}
}

// Token returns the ephemeral authorization token for external CLI calls.
func (c *Context) Token() string {
	return c.token
}

// SetOutcome records the terminal state of a stage. The first write for a
// stage wins; terminal states are immutable.
func (c *Context) SetOutcome(stage, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, done := c.outcomes[stage]; done {
		return
	}
	c.outcomes[stage] = outcome
}

// Outcomes returns a copy of the per-stage outcome ledger.
func (c *Context) Outcomes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.outcomes))
	for k, v := range c.outcomes {
		out[k] = v
	}
	return out
}

// Vars returns the run's identity as a cty object for the `run.*`
// namespace of the HCL evaluation context.
func (c *Context) Vars() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"id":              cty.StringVal(c.RunID),
		"repository":      cty.StringVal(c.Repository),
		"ref":             cty.StringVal(c.Ref),
		"os":              cty.StringVal(c.OS),
		"runtime_version": cty.StringVal(c.RuntimeVersion),
	})
}

// dump is the serialized form of a run-context report.
type dump struct {
	*Context
	Outcomes map[string]string `json:"stage_outcomes"`
	DumpedAt time.Time         `json:"dumped_at"`
}

// Dump writes the full run context as indented JSON, for post-hoc
// inspection after a failure. The token never appears in the output.
func (c *Context) Dump(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump{
		Context:  c,
		Outcomes: c.Outcomes(),
		DumpedAt: time.Now().UTC(),
	})
}

// WithContext returns a new context.Context with the run context embedded.
func WithContext(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, runKey, rc)
}

// FromContext extracts the run context. The second return is false when
// no run context is present (e.g. in isolated unit tests).
func FromContext(ctx context.Context) (*Context, bool) {
	rc, ok := ctx.Value(runKey).(*Context)
	return rc, ok
}
