package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/app"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/testutil"
)

const sleeperManifests = `
tool "sleeper" {
  handler = "Sleep"
  output "done" { type = string }
}

tool "after" {
  handler = "Sleep"
  input "a" { type = string }
  output "done" { type = string }
}

tool "join" {
  handler = "Sleep"
  input "a" { type = string }
  input "b" { type = string }
  input "c" { type = string }
  output "done" { type = string }
}
`

// runSleepers runs pipeline with the sleeper tools and the given worker count.
func runSleepers(t *testing.T, pipeline string, workers int, sleep time.Duration) (*testutil.HarnessResult, *testutil.SleeperModule) {
	t.Helper()
	sleeper := testutil.NewSleeperModule(sleep)
	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"modules/sleeper.hcl": sleeperManifests,
			"main.hcl":            pipeline,
		},
		Modules: []registry.Module{sleeper},
		Config:  &app.Config{LogLevel: "debug", WorkerCount: workers},
	})
	require.NoError(t, result.Err)
	return result, sleeper
}
