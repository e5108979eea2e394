package builder

import (
	"context"
	"fmt"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/dag"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// createNodes performs the first pass of graph creation, populating the graph
// with all nodes defined in the pipeline.
func (b *builder) createNodes(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	p := b.model.Pipeline

	if len(p.Inputs) > 0 {
		fields := make([]string, 0, len(p.Inputs))
		for _, in := range p.Inputs {
			fields = append(fields, in.Name)
		}
		logger.Debug("Creating input boundary node.", "fields", fields)
		if _, err := b.graph.AddNode(inputNode, task.NewInputBoundary(fields...)); err != nil {
			return err
		}
	}

	for _, n := range p.Nodes {
		if n.Name == inputNode || n.Name == outputNode {
			return &dag.ConfigurationError{Node: n.Name, Msg: "node name is reserved"}
		}
		desc, err := b.registry.Descriptor(ctx, b.conv, n.Tool)
		if err != nil {
			return &dag.ConfigurationError{Node: n.Name, Msg: err.Error()}
		}
		logger.Debug("Creating node.", "node", n.Name, "tool", desc.Identity(), "kind", desc.Kind.String())
		if _, err := b.graph.AddNode(n.Name, desc); err != nil {
			return err
		}
	}

	if len(p.Outputs) > 0 {
		fields := make([]string, 0, len(p.Outputs))
		for _, out := range p.Outputs {
			fields = append(fields, out.Name)
		}
		logger.Debug("Creating output boundary node.", "fields", fields)
		if _, err := b.graph.AddNode(outputNode, task.NewOutputBoundary(fields...)); err != nil {
			return err
		}
	}
	return nil
}

// bindInputs binds caller supplied values, falling back to declared
// defaults. Inputs with neither stay unbound.
func (b *builder) bindInputs(ctx context.Context, bindings map[string]cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	declared := make(map[string]struct{}, len(b.model.Pipeline.Inputs))
	for _, in := range b.model.Pipeline.Inputs {
		declared[in.Name] = struct{}{}
	}
	for name := range bindings {
		if _, ok := declared[name]; !ok {
			return &dag.ConfigurationError{Node: inputNode, Slot: name, Msg: "value supplied for undeclared pipeline input"}
		}
	}

	for _, in := range b.model.Pipeline.Inputs {
		v, ok := bindings[in.Name]
		source := "binding"
		if !ok {
			if in.Default == nil {
				logger.Debug("Pipeline input has no value.", "input", in.Name)
				continue
			}
			v, source = *in.Default, "default"
		}
		if err := b.graph.BindLiteral(dag.Handle(inputNode), in.Name, v); err != nil {
			return fmt.Errorf("pipeline input '%s': %w", in.Name, err)
		}
		logger.Debug("Bound pipeline input.", "input", in.Name, "source", source)
	}
	return nil
}
