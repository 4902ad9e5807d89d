package exec_fix

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunExecFix_RestoresBit(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "tsc")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o644))

	out, err := OnRunExecFix(context.Background(), &Deps{}, &Input{Paths: []string{bin}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Fixed)

	info, err := os.Stat(bin)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100, "owner execute bit must be set")
}

func TestOnRunExecFix_Idempotent(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "tsc")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o644))

	input := &Input{Paths: []string{bin}}
	first, err := OnRunExecFix(context.Background(), &Deps{}, input)
	require.NoError(t, err)
	modeAfterFirst := fileMode(t, bin)

	second, err := OnRunExecFix(context.Background(), &Deps{}, input)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Fixed)
	assert.Equal(t, 0, second.Fixed, "second run must be a no-op")
	assert.Equal(t, modeAfterFirst, fileMode(t, bin))
}

func TestOnRunExecFix_MissingPathIsNoOp(t *testing.T) {
	out, err := OnRunExecFix(context.Background(), &Deps{}, &Input{
		Paths: []string{"/nonexistent/bin/esbuild"},
	})
	require.NoError(t, err, "an absent path must be tolerated, not fail the step")
	assert.Equal(t, 0, out.Fixed)
}

func TestOnRunExecFix_MixedPresentAndMissing(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "jest")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o644))

	out, err := OnRunExecFix(context.Background(), &Deps{}, &Input{
		Paths: []string{filepath.Join(dir, "tsc"), bin},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Fixed)
	assert.NotZero(t, fileMode(t, bin)&0o100)
}

func fileMode(t *testing.T, path string) os.FileMode {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Mode()
}
