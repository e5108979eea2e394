package integration_tests

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/app"
	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
	"github.com/vk/dagflow/internal/testutil"
	"github.com/vk/dagflow/modules/transform"
	"github.com/zclconf/go-cty/cty"
)

const statsManifest = `
tool "fslstats" {
  handler = "Stats"
  version = "6.0"
  input "in_file" { type = string }
  input "op" {
    type    = string
    default = "-R"
  }
  output "out_stat" { type = list(number) }
}
`

const epiT1Pipeline = `
pipeline "epi_t1" {}

input "realigned_epi" {}
input "anat" {}

node "fslstats" "epi_min_max" {
  arguments { in_file = input.realigned_epi }
}
node "fslstats" "anat_min_max" {
  arguments {
    in_file = input.anat
    op      = "-r"
  }
}
node "rescale" "calcinv" {
  arguments {
    range_a = node.anat_min_max.out_stat
    range_b = node.epi_min_max.out_stat
  }
}

output "mul" { value = node.calcinv.mul }
output "add" { value = node.calcinv.add }
`

// statsModule fakes an image statistics tool with fixed ranges per file.
type statsModule struct {
	ranges map[string][2]int64

	mu    sync.Mutex
	calls []string
}

func (m *statsModule) Register(r *registry.Registry) {
	r.RegisterHandler("Stats", &registry.RegisteredHandler{
		Kind: task.ExternalTask,
		Build: func(*config.ToolDefinition, any) (task.Invoker, error) {
			return task.InvokerFunc(m.invoke), nil
		},
	})
}

func (m *statsModule) invoke(_ context.Context, req *task.Request) (map[string]cty.Value, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req.Node)
	m.mu.Unlock()

	file := req.Inputs["in_file"].AsString()
	r, ok := m.ranges[file]
	if !ok {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: 1, Diagnostic: fmt.Sprintf("cannot open image %s", file)}
	}
	return map[string]cty.Value{
		"out_stat": cty.ListVal([]cty.Value{cty.NumberIntVal(r[0]), cty.NumberIntVal(r[1])}),
	}, nil
}

func (m *statsModule) reset() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.calls
	m.calls = nil
	return calls
}

func number(t *testing.T, v cty.Value) float64 {
	t.Helper()
	require.Equal(t, cty.Number, v.Type())
	f, _ := v.AsBigFloat().Float64()
	return f
}

// Test for: The rescale pipeline computes the inverse mapping, and a rerun
// with a changed anatomical image only re-executes the nodes downstream of it.
func TestCoreExecution_RescalePipeline(t *testing.T) {
	stats := &statsModule{ranges: map[string][2]int64{
		"epi.nii": {0, 100},
		"t1.nii":  {0, 10},
		"t1b.nii": {0, 20},
	}}
	cacheDir, workDir := t.TempDir(), t.TempDir()
	run := func(anat string) *testutil.HarnessResult {
		return testutil.RunPipeline(t, testutil.Harness{
			Files: map[string]string{
				"modules/fslstats.hcl": statsManifest,
				"epi_t1.hcl":           epiT1Pipeline,
			},
			Inputs:  map[string]string{"realigned_epi": "epi.nii", "anat": anat},
			Modules: []registry.Module{stats, &transform.Module{}},
			Config:  &app.Config{LogLevel: "debug", WorkerCount: 4, CacheDir: cacheDir, WorkDir: workDir},
		})
	}

	first := run("t1.nii")
	require.NoError(t, first.Err)
	assert.Equal(t, -10.0, number(t, first.Result.Outputs["mul"]))
	assert.Equal(t, 100.0, number(t, first.Result.Outputs["add"]))
	assert.ElementsMatch(t, []string{"epi_min_max", "anat_min_max"}, stats.reset())

	second := run("t1b.nii")
	require.NoError(t, second.Err)
	assert.Equal(t, -5.0, number(t, second.Result.Outputs["mul"]))
	assert.Equal(t, 100.0, number(t, second.Result.Outputs["add"]))
	assert.Equal(t, []string{"anat_min_max"}, stats.reset())
	assert.Contains(t, second.Result.CacheHits, "epi_min_max")
	assert.True(t, second.Result.Records["epi_min_max"].FromCache)
	assert.False(t, second.Result.Records["calcinv"].FromCache)

	third := run("t1b.nii")
	require.NoError(t, third.Err)
	assert.Empty(t, stats.reset())
	assert.Empty(t, third.Result.Executed)
	assert.Equal(t, -5.0, number(t, third.Result.Outputs["mul"]))
}

// Test for: Bypassing the cache re-executes every tool but keeps results.
func TestCoreExecution_NoCacheReExecutes(t *testing.T) {
	stats := &statsModule{ranges: map[string][2]int64{"epi.nii": {0, 100}, "t1.nii": {0, 10}}}
	cacheDir, workDir := t.TempDir(), t.TempDir()
	run := func(noCache bool) *testutil.HarnessResult {
		return testutil.RunPipeline(t, testutil.Harness{
			Files: map[string]string{
				"modules/fslstats.hcl": statsManifest,
				"epi_t1.hcl":           epiT1Pipeline,
			},
			Inputs:  map[string]string{"realigned_epi": "epi.nii", "anat": "t1.nii"},
			Modules: []registry.Module{stats, &transform.Module{}},
			Config:  &app.Config{LogLevel: "info", WorkerCount: 2, CacheDir: cacheDir, WorkDir: workDir, NoCache: noCache},
		})
	}

	require.NoError(t, run(false).Err)
	stats.reset()

	bypass := run(true)
	require.NoError(t, bypass.Err)
	assert.Len(t, stats.reset(), 2)
	assert.Empty(t, bypass.Result.CacheHits)

	cached := run(false)
	require.NoError(t, cached.Err)
	assert.Empty(t, stats.reset())
}

// Test for: A zero-width source range fails the transform with a
// computation error and leaves the statistics nodes completed.
func TestCoreExecution_RescaleZeroWidthRange(t *testing.T) {
	stats := &statsModule{ranges: map[string][2]int64{"epi.nii": {0, 100}, "flat.nii": {7, 7}}}
	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"modules/fslstats.hcl": statsManifest,
			"epi_t1.hcl":           epiT1Pipeline,
		},
		Inputs:  map[string]string{"realigned_epi": "epi.nii", "anat": "flat.nii"},
		Modules: []registry.Module{stats, &transform.Module{}},
	})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, task.ErrComputation)
	testutil.AssertNodeState(t, result, "anat_min_max", task.Completed)
	testutil.AssertNodeState(t, result, "calcinv", task.Failed)
	testutil.AssertNodeState(t, result, "output", task.Skipped)
	assert.NotContains(t, result.Result.Outputs, "mul")
}
