package builder

import (
	"context"
	"fmt"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/dag"
	"github.com/vk/dagflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const (
	inputNode  = "input"
	outputNode = "output"
)

// builder carries the state of one Build call.
type builder struct {
	model    *config.Model
	registry *registry.Registry
	conv     config.Converter
	graph    *dag.Graph
}

// Build constructs a complete, validated graph from a config model. bindings
// supply values for pipeline inputs and take precedence over their defaults.
func Build(ctx context.Context, model *config.Model, r *registry.Registry, conv config.Converter, bindings map[string]cty.Value) (*dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	if model == nil || model.Pipeline == nil {
		return nil, fmt.Errorf("no pipeline defined")
	}
	logger.Debug("Build: Starting graph construction.", "pipeline", model.Pipeline.Name)

	b := &builder{
		model:    model,
		registry: r,
		conv:     conv,
		graph:    dag.New(model.Pipeline.Name),
	}

	// First pass: create all nodes, boundaries included.
	if err := b.createNodes(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(b.graph.Nodes()))

	if err := b.bindInputs(ctx, bindings); err != nil {
		return nil, err
	}

	// Second pass: link arguments and outputs.
	if err := b.linkNodes(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.", "edge_count", len(b.graph.Edges()))

	if err := b.graph.Validate(); err != nil {
		return nil, fmt.Errorf("error validating pipeline '%s': %w", model.Pipeline.Name, err)
	}
	logger.Debug("Build: Graph construction successful.")
	return b.graph, nil
}
