package testutil

import (
	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
)

// NoOpModule registers a "NoOp" external handler that copies each input to
// the output of the same name.
type NoOpModule struct{}

// Register implements the registry.Module interface.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterHandler("NoOp", &registry.RegisteredHandler{
		Kind: task.ExternalTask,
		Build: func(*config.ToolDefinition, any) (task.Invoker, error) {
			return task.Identity(), nil
		},
	})
}
