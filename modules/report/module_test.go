package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagehandgo/internal/runctx"
)

func TestOnRunReport_WritesOutcomes(t *testing.T) {
	rc := runctx.New(runctx.Options{
		Repository: "acme/web",
		Ref:        "refs/heads/main",
		Token:      "super-secret",
	})
	rc.SetOutcome("build", "failed")
	rc.SetOutcome("test", "skipped")
	ctx := runctx.WithContext(context.Background(), rc)

	path := filepath.Join(t.TempDir(), "report.json")
	out, err := OnRunReport(ctx, &Deps{}, &Input{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, out.Path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var report struct {
		RunID         string            `json:"run_id"`
		Repository    string            `json:"repository"`
		StageOutcomes map[string]string `json:"stage_outcomes"`
	}
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, rc.RunID, report.RunID)
	assert.Equal(t, "acme/web", report.Repository)
	assert.Equal(t, "failed", report.StageOutcomes["build"])
	assert.Equal(t, "skipped", report.StageOutcomes["test"])

	// The ephemeral token must never be serialized.
	assert.NotContains(t, string(raw), "super-secret")
}

func TestOnRunReport_NoRunContext(t *testing.T) {
	_, err := OnRunReport(context.Background(), &Deps{}, &Input{Path: "x.json"})
	assert.ErrorContains(t, err, "no run context")
}
