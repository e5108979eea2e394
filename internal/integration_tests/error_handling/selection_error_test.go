package integration_tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/executor"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/selector"
	"github.com/vk/dagflow/internal/task"
	"github.com/vk/dagflow/internal/testutil"
)

// Test for: A selector that cannot be applied to the produced value fails
// the consuming node, attributed to its input slot.
func TestErrorHandling_SelectionError(t *testing.T) {
	counter := &testutil.CountingModule{}
	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"modules/count.hcl": countManifests + `
tool "lister" {
  handler = "Count"
  input "items" { type = list(string) }
  output "items" { type = list(string) }
}
`,
			"main.hcl": `
node "lister" "transforms" {
  arguments { items = ["affine.mat"] }
}
node "sink" "warp" {
  arguments { in = second(node.transforms.items) }
}
`,
		},
		Modules: []registry.Module{counter},
	})

	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, selector.ErrSelection))

	var runErr *executor.RunError
	require.ErrorAs(t, result.Err, &runErr)
	failure, ok := runErr.Failure("warp")
	require.True(t, ok)
	assert.Equal(t, "in", failure.Slot)

	testutil.AssertNodeState(t, result, "transforms", task.Completed)
	testutil.AssertNodeState(t, result, "warp", task.Failed)
	assert.Equal(t, 0, counter.Calls("warp"))
}
