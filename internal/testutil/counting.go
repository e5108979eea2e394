package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// CountingModule registers a "Count" handler that counts invocations per
// node and copies each input to the output of the same name. Outputs with
// no matching input get the node name. Nodes listed in Fail return a
// ProcessError.
type CountingModule struct {
	Fail map[string]bool

	mu     sync.Mutex
	calls  map[string]int
	inputs map[string]map[string]cty.Value
}

// Calls returns how many times node was invoked.
func (m *CountingModule) Calls(node string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[node]
}

// Inputs returns the inputs of the last invocation of node.
func (m *CountingModule) Inputs(node string) map[string]cty.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[node]
}

// Register implements the registry.Module interface.
func (m *CountingModule) Register(r *registry.Registry) {
	r.RegisterHandler("Count", &registry.RegisteredHandler{
		Kind: task.ExternalTask,
		Build: func(*config.ToolDefinition, any) (task.Invoker, error) {
			return task.InvokerFunc(m.invoke), nil
		},
	})
}

func (m *CountingModule) invoke(_ context.Context, req *task.Request) (map[string]cty.Value, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
		m.inputs = make(map[string]map[string]cty.Value)
	}
	m.calls[req.Node]++
	m.inputs[req.Node] = req.Inputs
	m.mu.Unlock()

	if m.Fail[req.Node] {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: 1, Diagnostic: "injected failure", Err: errors.New("injected failure")}
	}

	out := make(map[string]cty.Value, len(req.Outputs))
	for _, name := range req.Outputs {
		if v, ok := req.Inputs[name]; ok {
			out[name] = v
			continue
		}
		out[name] = cty.StringVal(req.Node)
	}
	return out, nil
}
