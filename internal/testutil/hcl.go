package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// CoreManifest returns the manifest HCL of a built-in module, so integration
// tests can exercise the real shipped definitions instead of drifting copies.
func CoreManifest(t *testing.T, name string) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "failed to locate caller for manifest lookup")

	manifestPath := filepath.Join(filepath.Dir(thisFile), "..", "..", "modules", name, "manifest.hcl")
	content, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	return string(content)
}
