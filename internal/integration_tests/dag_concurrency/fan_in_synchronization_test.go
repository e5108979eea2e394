package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: Fan-in synchronization waits for all parallel nodes.
func TestDagConcurrency_FanInSynchronization(t *testing.T) {
	pipeline := `
node "sleeper" "A" {}
node "sleeper" "B" {}
node "sleeper" "C" {}
node "join" "D" {
  arguments {
    a = node.A.done
    b = node.B.done
    c = node.C.done
  }
}
output "joined" { value = node.D.done }
`
	result, sleeper := runSleepers(t, pipeline, 4, 50*time.Millisecond)

	records := map[string]time.Time{}
	for _, n := range []string{"A", "B", "C"} {
		rec := sleeper.Record(n)
		require.NotNil(t, rec, "node %s did not run", n)
		records[n] = rec.End
	}
	d := sleeper.Record("D")
	require.NotNil(t, d)
	for n, end := range records {
		assert.False(t, d.Start.Before(end), "D started before %s finished", n)
	}
	assert.Equal(t, "D", result.Result.Outputs["joined"].AsString())
}
