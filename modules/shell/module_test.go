package shell

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunShell_CapturesStdout(t *testing.T) {
	out, err := OnRunShell(context.Background(), &Deps{}, &Input{Command: "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Stdout)
}

func TestOnRunShell_NonZeroExitFails(t *testing.T) {
	_, err := OnRunShell(context.Background(), &Deps{}, &Input{Command: "echo broken >&2; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "broken")
}

func TestOnRunShell_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte(""), 0o644))

	out, err := OnRunShell(context.Background(), &Deps{}, &Input{Command: "ls", WorkingDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "marker", out.Stdout)
}

func TestOnRunShell_Env(t *testing.T) {
	out, err := OnRunShell(context.Background(), &Deps{}, &Input{
		Command: "printf '%s' \"$CI_FLAVOR\"",
		Env:     map[string]string{"CI_FLAVOR": "stagehand"},
	})
	require.NoError(t, err)
	assert.Equal(t, "stagehand", out.Stdout)
}
