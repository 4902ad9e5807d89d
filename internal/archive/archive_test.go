package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deep", "leaf.txt"), []byte("leaf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "run.sh"), []byte("#!/bin/sh\n"), 0o755))

	var buf bytes.Buffer
	require.NoError(t, PackDir(&buf, src))

	dst := t.TempDir()
	require.NoError(t, UnpackDir(&buf, dst))

	top, err := os.ReadFile(filepath.Join(dst, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(top))

	leaf, err := os.ReadFile(filepath.Join(dst, "nested", "deep", "leaf.txt"))
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(leaf))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dst, "nested", "run.sh"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0o100, "executable bit should survive the round trip")
	}
}

func TestUnpackRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	content := []byte("escape")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "../escape.txt",
		Mode: 0o644,
		Size: int64(len(content)),
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())

	err = UnpackDir(&buf, t.TempDir())
	assert.ErrorContains(t, err, "path traversal")
}

func TestUnpackIntoMissingDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, PackDir(&buf, src))

	dst := filepath.Join(t.TempDir(), "not", "yet", "created")
	require.NoError(t, UnpackDir(&buf, dst))

	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}
