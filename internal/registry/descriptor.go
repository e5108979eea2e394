package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/task"
)

// Descriptor builds the task descriptor of a registered tool: its slots
// come from the definition and its invoker from the handler.
func (r *Registry) Descriptor(ctx context.Context, conv config.Converter, tool string) (*task.Descriptor, error) {
	def, ok := r.DefinitionRegistry[tool]
	if !ok {
		return nil, fmt.Errorf("unknown tool '%s'", tool)
	}
	handler, ok := r.HandlerRegistry[def.Handler]
	if !ok {
		return nil, fmt.Errorf("tool '%s': handler '%s' not registered", tool, def.Handler)
	}

	params, err := decodeParams(ctx, conv, def, handler)
	if err != nil {
		return nil, err
	}
	invoker, err := handler.Build(def, params)
	if err != nil {
		return nil, fmt.Errorf("tool '%s': %w", tool, err)
	}

	desc := &task.Descriptor{
		Tool:    def.Name,
		Version: def.Version,
		Kind:    handler.Kind,
		Params:  def.Params,
		Timeout: def.Timeout,
		Invoker: invoker,
	}

	names := make([]string, 0, len(def.Inputs))
	for name := range def.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		in := def.Inputs[name]
		desc.Inputs = append(desc.Inputs, task.Slot{
			Name:        name,
			Type:        in.Type,
			Required:    !in.Optional && in.Default == nil,
			Default:     in.Default,
			Description: in.Description,
		})
	}

	for name := range def.Outputs {
		desc.Outputs = append(desc.Outputs, name)
	}
	sort.Strings(desc.Outputs)

	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("tool '%s': %w", tool, err)
	}
	return desc, nil
}

func decodeParams(ctx context.Context, conv config.Converter, def *config.ToolDefinition, handler *RegisteredHandler) (any, error) {
	if handler.NewParams == nil {
		if len(def.Params) > 0 {
			return nil, fmt.Errorf("tool '%s': handler '%s' takes no params", def.Name, def.Handler)
		}
		return nil, nil
	}
	params := handler.NewParams()
	if err := conv.DecodeParams(ctx, params, def.Params); err != nil {
		return nil, fmt.Errorf("tool '%s': %w", def.Name, err)
	}
	return params, nil
}
