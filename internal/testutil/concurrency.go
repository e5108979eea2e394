package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// SleeperModule is a shared module for concurrency tests. Its "Sleep"
// handler sleeps, records when each node ran, and sets every declared
// output to the node name.
type SleeperModule struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	sleep   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

// NewSleeperModule creates a new sleeper module for testing.
func NewSleeperModule(sleep time.Duration) *SleeperModule {
	return &SleeperModule{records: make(map[string]*ExecutionRecord), sleep: sleep}
}

// Record returns the execution record of node, or nil if it never ran.
func (m *SleeperModule) Record(node string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[node]
}

// Calls returns how many nodes ran.
func (m *SleeperModule) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// PeakConcurrency returns the highest number of nodes seen running at once.
func (m *SleeperModule) PeakConcurrency() int {
	return int(m.peak.Load())
}

// Register implements the registry.Module interface.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.RegisterHandler("Sleep", &registry.RegisteredHandler{
		Kind: task.ExternalTask,
		Build: func(*config.ToolDefinition, any) (task.Invoker, error) {
			return task.InvokerFunc(m.invoke), nil
		},
	})
}

func (m *SleeperModule) invoke(ctx context.Context, req *task.Request) (map[string]cty.Value, error) {
	n := m.running.Add(1)
	defer m.running.Add(-1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	start := time.Now()
	select {
	case <-time.After(m.sleep):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.Lock()
	m.records[req.Node] = &ExecutionRecord{Start: start, End: time.Now()}
	m.mu.Unlock()

	out := make(map[string]cty.Value, len(req.Outputs))
	for _, name := range req.Outputs {
		out[name] = cty.StringVal(req.Node)
	}
	return out, nil
}
