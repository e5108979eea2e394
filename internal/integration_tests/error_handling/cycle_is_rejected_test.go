package integration_tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/dag"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/testutil"
)

// Test for: A dependency cycle fails the run before any node executes.
func TestErrorHandling_CycleIsRejected(t *testing.T) {
	counter := &testutil.CountingModule{}
	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"modules/count.hcl": countManifests,
			"main.hcl": `
node "sink" "A" {
  arguments { in = node.C.in }
}
node "sink" "B" {
  arguments { in = node.A.in }
}
node "sink" "C" {
  arguments { in = node.B.in }
}
`,
		},
		Modules: []registry.Module{counter},
	})

	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, dag.ErrCycle))
	var cycleErr *dag.CycleError
	require.ErrorAs(t, result.Err, &cycleErr)
	assert.Subset(t, cycleErr.Path, []string{"A", "B", "C"})
	assert.Nil(t, result.Result)
	assert.Equal(t, 0, counter.Calls("A"))
}
