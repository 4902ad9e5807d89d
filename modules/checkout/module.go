// Package checkout clones the repository under build into the workspace.
package checkout

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"reflect"
	"strconv"
	"strings"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the checkout action.
type Input struct {
	// Repository overrides the run's repository slug when set.
	Repository string `hcl:"repository,optional"`
	// Ref overrides the run's git ref when set.
	Ref       string `hcl:"ref,optional"`
	Directory string `hcl:"directory,optional"`
	Depth     int    `hcl:"depth,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	CommitSHA string `cty:"commit_sha"`
	Directory string `cty:"directory"`
}

// Deps is an empty struct because this action does not use any resources.
type Deps struct{}

// OnRunCheckout is the handler for the 'checkout' action's on_run lifecycle event.
func OnRunCheckout(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "checkout")

	repository := input.Repository
	ref := input.Ref
	token := ""
	if rc, ok := runctx.FromContext(ctx); ok {
		if repository == "" {
			repository = rc.Repository
		}
		if ref == "" {
			ref = rc.Ref
		}
		token = rc.Token()
	}
	if repository == "" {
		return nil, fmt.Errorf("no repository configured: set the repository argument or STAGEHAND_REPOSITORY")
	}

	dir := input.Directory
	if dir == "" {
		dir = "."
	}

	cloneURL := buildCloneURL(repository, token)
	logger.Info("Cloning repository.", "repository", repository, "ref", ref, "directory", dir)

	cloneArgs := []string{"clone"}
	if input.Depth > 0 {
		cloneArgs = append(cloneArgs, "--depth", strconv.Itoa(input.Depth))
	}
	cloneArgs = append(cloneArgs, cloneURL, dir)
	if out, err := runGit(ctx, "", cloneArgs...); err != nil {
		// Never echo the clone URL, it may embed the token.
		return nil, fmt.Errorf("git clone of %s failed: %s: %w", repository, out, err)
	}

	if ref != "" {
		if out, err := runGit(ctx, dir, "fetch", "origin", ref); err != nil {
			return nil, fmt.Errorf("git fetch of %q failed: %s: %w", ref, out, err)
		}
		if out, err := runGit(ctx, dir, "checkout", "FETCH_HEAD"); err != nil {
			return nil, fmt.Errorf("git checkout of %q failed: %s: %w", ref, out, err)
		}
	}

	sha, err := runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("git rev-parse failed: %w", err)
	}

	logger.Info("Checkout complete.", "commit", sha)
	return &Output{CommitSHA: sha, Directory: dir}, nil
}

// buildCloneURL assembles an HTTPS clone URL, embedding the access token as
// basic-auth credentials when one is available.
func buildCloneURL(repository, token string) string {
	if token == "" {
		return fmt.Sprintf("https://github.com/%s.git", repository)
	}
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s.git", url.PathEscape(token), repository)
}

// runGit invokes git with the given args and returns its trimmed combined output.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return strings.TrimSpace(buf.String()), err
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunCheckout", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunCheckout,
	})
}
