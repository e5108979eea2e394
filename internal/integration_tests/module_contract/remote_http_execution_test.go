package integration_tests

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/remote"
	"github.com/vk/dagflow/internal/task"
	"github.com/vk/dagflow/internal/testutil"
	"github.com/vk/dagflow/modules/http_request"
	"github.com/vk/dagflow/modules/transform"
	"github.com/zclconf/go-cty/cty"
)

// Test for: A tool served by a remote worker feeds a local transform.
func TestModuleContract_RemoteHTTPExecution(t *testing.T) {
	worker := httptest.NewServer(remote.NewHTTPHandler(context.Background(), task.InvokerFunc(
		func(_ context.Context, req *task.Request) (map[string]cty.Value, error) {
			if req.Inputs["in_file"].AsString() == "epi.nii" {
				return map[string]cty.Value{"out_stat": cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(100)})}, nil
			}
			return map[string]cty.Value{"out_stat": cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(10)})}, nil
		},
	)))
	defer worker.Close()

	manifest := fmt.Sprintf(`
tool "fslstats" {
  handler = "InvokeHTTP"
  params  = { url = %q }
  input "in_file" { type = string }
  output "out_stat" { type = list(number) }
}
`, worker.URL)

	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"modules/fslstats.hcl": manifest,
			"main.hcl": `
node "fslstats" "epi_min_max" {
  arguments { in_file = "epi.nii" }
}
node "fslstats" "anat_min_max" {
  arguments { in_file = "t1.nii" }
}
node "rescale" "calcinv" {
  arguments {
    range_a = node.anat_min_max.out_stat
    range_b = node.epi_min_max.out_stat
  }
}
output "mul" { value = node.calcinv.mul }
output "add" { value = node.calcinv.add }
`,
		},
		Modules: []registry.Module{&http_request.Module{}, &transform.Module{}},
	})
	require.NoError(t, result.Err)

	mul, _ := result.Result.Outputs["mul"].AsBigFloat().Float64()
	add, _ := result.Result.Outputs["add"].AsBigFloat().Float64()
	assert.Equal(t, -10.0, mul)
	assert.Equal(t, 100.0, add)
	assert.ElementsMatch(t, []string{"anat_min_max", "epi_min_max"}, result.Result.Executed)
}
