package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagehandgo/internal/testutil"
)

// When a stage fails, default-gated dependents are skipped while "always"
// and "on_failure" stages still run. Siblings are never cancelled.
func TestPipelineFlow_FailurePropagation(t *testing.T) {
	pipelineHCL := `
		stage "build" {
			step "probe" "boom" {
				arguments {
					id   = "build"
					fail = true
				}
			}
		}
		stage "test" {
			depends_on = ["build"]
			step "probe" "run" {
				arguments { id = "test" }
			}
		}
		stage "cleanup" {
			depends_on = ["build", "test"]
			condition  = "always"
			step "probe" "run" {
				arguments { id = "cleanup" }
			}
		}
		stage "report" {
			depends_on = ["build", "test", "cleanup"]
			condition  = "on_failure"
			step "probe" "run" {
				arguments { id = "report" }
			}
		}
	`

	probe := newProbeModule()
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline/main.hcl":          pipelineHCL,
		"modules/probe/manifest.hcl": probeManifestHCL,
	}, probe)

	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "stage.build")

	assert.True(t, probe.Ran("build"))
	assert.False(t, probe.Ran("test"), "default-gated stage must be skipped after a dependency failure")
	assert.True(t, probe.Ran("cleanup"), "always-gated stage must run after a dependency failure")
	assert.True(t, probe.Ran("report"), "on_failure stage must run when a transitive dependency failed")
}

// An on_failure stage stays skipped when every dependency succeeded.
func TestPipelineFlow_OnFailureSkippedOnSuccess(t *testing.T) {
	pipelineHCL := `
		stage "build" {
			step "probe" "run" {
				arguments { id = "build" }
			}
		}
		stage "report" {
			depends_on = ["build"]
			condition  = "on_failure"
			step "probe" "run" {
				arguments { id = "report" }
			}
		}
	`

	probe := newProbeModule()
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline/main.hcl":          pipelineHCL,
		"modules/probe/manifest.hcl": probeManifestHCL,
	}, probe)
	require.NoError(t, result.Err)

	assert.True(t, probe.Ran("build"))
	assert.False(t, probe.Ran("report"))
}

// A failed step lets later "always" and "on_failure" steps of the same
// stage run, while default-gated steps are skipped.
func TestPipelineFlow_StepConditionsAfterFailure(t *testing.T) {
	pipelineHCL := `
		stage "build" {
			step "probe" "boom" {
				arguments {
					id   = "boom"
					fail = true
				}
			}
			step "probe" "skipped" {
				arguments { id = "skipped" }
			}
			step "probe" "teardown" {
				condition = "always"
				arguments { id = "teardown" }
			}
			step "probe" "notify" {
				condition = "on_failure"
				arguments { id = "notify" }
			}
		}
	`

	probe := newProbeModule()
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline/main.hcl":          pipelineHCL,
		"modules/probe/manifest.hcl": probeManifestHCL,
	}, probe)

	require.Error(t, result.Err)
	assert.Equal(t, []string{"boom", "teardown", "notify"}, probe.Order())
}

// A when guard runs its step only when the named output of an earlier step
// equals the expected value.
func TestPipelineFlow_WhenGuard(t *testing.T) {
	pipelineHCL := `
		stage "build" {
			step "probe" "restore" {
				arguments {
					id  = "restore"
					hit = true
				}
			}
			step "probe" "save" {
				arguments { id = "save" }
				when {
					step   = "restore"
					output = "hit"
					equals = false
				}
			}
			step "probe" "announce" {
				arguments { id = "announce" }
				when {
					step   = "restore"
					output = "hit"
					equals = true
				}
			}
		}
	`

	probe := newProbeModule()
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline/main.hcl":          pipelineHCL,
		"modules/probe/manifest.hcl": probeManifestHCL,
	}, probe)
	require.NoError(t, result.Err)

	assert.Equal(t, []string{"restore", "announce"}, probe.Order())
}
