package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// ValidateRegistry performs a strict parity check between tool definitions
// and Go handlers: every definition names a registered handler, its params
// decode, and its slots match a handler's fixed contract.
func (r *Registry) ValidateRegistry(ctx context.Context, conv config.Converter) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	tools := make([]string, 0, len(r.DefinitionRegistry))
	for name := range r.DefinitionRegistry {
		tools = append(tools, name)
	}
	sort.Strings(tools)

	for _, tool := range tools {
		def := r.DefinitionRegistry[tool]
		handler, ok := r.HandlerRegistry[def.Handler]
		if !ok {
			errs = append(errs, fmt.Sprintf("tool '%s': handler '%s' is not registered", tool, def.Handler))
			continue
		}

		if _, err := decodeParams(ctx, conv, def, handler); err != nil {
			errs = append(errs, err.Error())
		}

		if handler.Inputs != nil {
			for name, want := range handler.Inputs {
				in, ok := def.Inputs[name]
				if !ok {
					errs = append(errs, fmt.Sprintf("tool '%s': handler '%s' requires input '%s' which is not declared", tool, def.Handler, name))
					continue
				}
				if in.Type.Equals(cty.DynamicPseudoType) {
					logger.Warn("Tool input has 'type = any', which disables static type checking.", "tool", tool, "input", name)
					continue
				}
				if !want.Equals(cty.DynamicPseudoType) && !in.Type.Equals(want) {
					errs = append(errs, fmt.Sprintf("tool '%s', input '%s': type mismatch, manifest declares '%s' but handler '%s' requires '%s'",
						tool, name, in.Type.FriendlyName(), def.Handler, want.FriendlyName()))
				}
			}
			for name := range def.Inputs {
				if _, ok := handler.Inputs[name]; !ok {
					errs = append(errs, fmt.Sprintf("tool '%s': manifest declares input '%s' which handler '%s' does not accept", tool, name, def.Handler))
				}
			}
		}

		if handler.Outputs != nil {
			want := make(map[string]struct{}, len(handler.Outputs))
			for _, name := range handler.Outputs {
				want[name] = struct{}{}
				if _, ok := def.Outputs[name]; !ok {
					errs = append(errs, fmt.Sprintf("tool '%s': handler '%s' produces output '%s' which is not declared", tool, def.Handler, name))
				}
			}
			for name := range def.Outputs {
				if _, ok := want[name]; !ok {
					errs = append(errs, fmt.Sprintf("tool '%s': manifest declares output '%s' which handler '%s' does not produce", tool, name, def.Handler))
				}
			}
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
