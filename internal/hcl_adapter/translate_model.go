// This file translates the HCL schema structs into the format-agnostic
// configuration model of the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// translatePipeline appends the pipeline blocks of one file to p.
func (l *Loader) translatePipeline(ctx context.Context, root *schema.File, p *config.Pipeline) error {
	for _, in := range root.Inputs {
		translated, err := translatePipelineInput(ctx, in)
		if err != nil {
			return err
		}
		p.Inputs = append(p.Inputs, translated)
	}
	for _, n := range root.Nodes {
		p.Nodes = append(p.Nodes, l.translateNode(ctx, n))
	}
	for _, out := range root.Outputs {
		p.Outputs = append(p.Outputs, &config.PipelineOutput{
			Name:        out.Name,
			Description: out.Description,
			Value:       out.Value,
		})
	}
	return nil
}

// translateNode converts the HCL node schema into the agnostic model.
func (l *Loader) translateNode(ctx context.Context, n *schema.Node) *config.Node {
	ctxlog.FromContext(ctx).Debug("Translating HCL node to internal config model.", "tool", n.Tool, "node", n.Name)
	return &config.Node{
		Tool:      n.Tool,
		Name:      n.Name,
		Arguments: extractBodyAttributes(n.Arguments),
	}
}

func translatePipelineInput(ctx context.Context, in *schema.Input) (*config.PipelineInput, error) {
	out := &config.PipelineInput{Name: in.Name, Description: in.Description}
	if isExprDefined(ctx, in.Default, "default") {
		val, err := evalConstant(in.Default)
		if err != nil {
			return nil, fmt.Errorf("input %q: invalid default: %w", in.Name, err)
		}
		if !val.IsNull() {
			out.Default = &val
		}
	}
	return out, nil
}

// translateTool converts the HCL tool manifest schema into the agnostic model.
func (l *Loader) translateTool(ctx context.Context, s *schema.ToolDefinition) (*config.ToolDefinition, error) {
	t := &config.ToolDefinition{
		Name:        s.Name,
		Description: s.Description,
		Handler:     s.Handler,
		Version:     s.Version,
		Params:      make(map[string]cty.Value),
		Inputs:      make(map[string]*config.InputDefinition),
		Outputs:     make(map[string]*config.OutputDefinition),
	}

	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("tool %q: invalid timeout %q: %w", s.Name, s.Timeout, err)
		}
		t.Timeout = d
	}

	if isExprDefined(ctx, s.Params, "params") {
		val, err := evalConstant(s.Params)
		if err != nil {
			return nil, fmt.Errorf("tool %q: invalid params: %w", s.Name, err)
		}
		if !val.IsNull() {
			if !val.Type().IsObjectType() && !val.Type().IsMapType() {
				return nil, fmt.Errorf("tool %q: params must be an object, got %s", s.Name, val.Type().FriendlyName())
			}
			for k, v := range val.AsValueMap() {
				t.Params[k] = v
			}
		}
	}

	for _, in := range s.Inputs {
		if _, dup := t.Inputs[in.Name]; dup {
			return nil, fmt.Errorf("tool %q: input %q is declared more than once", s.Name, in.Name)
		}
		translated, err := translateInputDefinition(ctx, in, s.Name)
		if err != nil {
			return nil, err
		}
		t.Inputs[in.Name] = translated
	}

	for _, out := range s.Outputs {
		if _, dup := t.Outputs[out.Name]; dup {
			return nil, fmt.Errorf("tool %q: output %q is declared more than once", s.Name, out.Name)
		}
		parsedType := cty.DynamicPseudoType
		if isExprDefined(ctx, out.Type, "type") {
			var err error
			parsedType, err = typeExprToCtyType(out.Type)
			if err != nil {
				return nil, fmt.Errorf("in tool '%s', output '%s': %w", s.Name, out.Name, err)
			}
		}
		t.Outputs[out.Name] = &config.OutputDefinition{
			Name:        out.Name,
			Type:        parsedType,
			Description: out.Description,
		}
	}
	return t, nil
}
