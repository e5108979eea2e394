package registry

import (
	"github.com/vk/dagflow/internal/config"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered handlers and tool definitions of one
// application instance.
type Registry struct {
	HandlerRegistry    map[string]*RegisteredHandler
	DefinitionRegistry map[string]*config.ToolDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*RegisteredHandler),
		DefinitionRegistry: make(map[string]*config.ToolDefinition),
	}
}

// PopulateDefinitionsFromModel copies the tool definitions of a loaded
// model into the registry. A manifest replaces a built-in definition of
// the same name.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for name, def := range model.Tools {
		r.DefinitionRegistry[name] = def
	}
}
