package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/task"
)

// AssertNodeState checks the final state of a node in a harness run.
func AssertNodeState(t *testing.T, result *HarnessResult, node string, want task.State) {
	t.Helper()
	require.NotNil(t, result.Result, "run produced no result: %v", result.Err)
	got, ok := result.Result.States[node]
	require.True(t, ok, "node '%s' was not part of the run", node)
	require.Equal(t, want, got, "unexpected state for node '%s'", node)
}
