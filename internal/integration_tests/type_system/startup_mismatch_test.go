package integration_tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/dag"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/testutil"
	"github.com/vk/dagflow/modules/transform"
)

// Test for: A literal that cannot convert to its slot type fails the build.
func TestTypeSystem_LiteralMismatchAtStartup(t *testing.T) {
	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"main.hcl": `
node "rescale" "calcinv" {
  arguments {
    range_a = "not a range"
    range_b = [0, 100]
  }
}
`,
		},
		Modules: []registry.Module{&transform.Module{}},
	})

	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, dag.ErrConfiguration))
	var ce *dag.ConfigurationError
	require.ErrorAs(t, result.Err, &ce)
	assert.Equal(t, "calcinv", ce.Node)
	assert.Equal(t, "range_a", ce.Slot)
	assert.Nil(t, result.Result)
}

// Test for: A manifest whose slot types disagree with a handler's fixed
// contract is rejected at startup.
func TestTypeSystem_ManifestContractMismatch(t *testing.T) {
	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"modules/rescale.hcl": testutil.Manifest("rescale2", "Rescale",
				map[string]string{"range_a": "list(string)", "range_b": "list(number)"},
				map[string]string{"add": "number", "mul": "number"},
			),
			"main.hcl": `node "rescale2" "x" {}`,
		},
		Modules: []registry.Module{&transform.Module{}},
	})

	require.Error(t, result.Err)
	assert.Nil(t, result.App)
	assert.Contains(t, result.Err.Error(), "type mismatch")
}
