package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// RegisteredHandler holds the compiled Go parts of a tool.
type RegisteredHandler struct {
	Kind task.Kind
	// NewParams returns a pointer to a struct with `cty` tagged fields that
	// a tool's params are decoded into. Nil means the handler takes none.
	NewParams func() any
	// Inputs and Outputs fix the slot contract of handlers that only work
	// with specific slots. Nil leaves the contract to the manifest.
	Inputs  map[string]cty.Type
	Outputs []string
	// Build returns the invoker for one tool definition. params is the
	// decoded NewParams value, or nil.
	Build func(def *config.ToolDefinition, params any) (task.Invoker, error)
}

// RegisterHandler registers the Go side of a tool under name.
func (r *Registry) RegisterHandler(name string, handler *RegisteredHandler) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	if handler.Build == nil {
		panic(fmt.Sprintf("handler '%s' has no Build function", name))
	}
	slog.Debug("Registering handler.", "name", name)
	r.HandlerRegistry[name] = handler
}

// RegisterDefinition registers a built-in tool definition, usable without
// a manifest.
func (r *Registry) RegisterDefinition(def *config.ToolDefinition) {
	if _, exists := r.DefinitionRegistry[def.Name]; exists {
		panic(fmt.Sprintf("tool definition '%s' already registered", def.Name))
	}
	slog.Debug("Registering built-in tool definition.", "tool", def.Name, "handler", def.Handler)
	r.DefinitionRegistry[def.Name] = def
}
