package builder

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/dag"
	"github.com/vk/dagflow/internal/selector"
	"github.com/zclconf/go-cty/cty"
)

// linkNodes performs the second pass, binding every node argument and every
// pipeline output.
func (b *builder) linkNodes(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting node linking pass.")

	for _, n := range b.model.Pipeline.Nodes {
		names := make([]string, 0, len(n.Arguments))
		for name := range n.Arguments {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := b.bindExpr(ctx, dag.Handle(n.Name), name, n.Arguments[name]); err != nil {
				return err
			}
		}
	}

	for _, out := range b.model.Pipeline.Outputs {
		if out.Value == nil {
			return &dag.ConfigurationError{Node: outputNode, Slot: out.Name, Msg: "output has no value"}
		}
		if err := b.bindExpr(ctx, dag.Handle(outputNode), out.Name, out.Value); err != nil {
			return err
		}
		if _, err := b.graph.MarkOutput(dag.Handle(outputNode), out.Name); err != nil {
			return err
		}
	}
	logger.Debug("Finished node linking pass.")
	return nil
}

// bindExpr classifies expr and binds it to slot of dst as an edge or a
// literal.
func (b *builder) bindExpr(ctx context.Context, dst dag.Handle, slot string, expr hcl.Expression) error {
	logger := ctxlog.FromContext(ctx).With("node", dst.Name(), "slot", slot)
	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		return fmt.Errorf("%s: %w", expr.Range().String(), err)
	}

	if call, diags := hcl.ExprCall(expr); !diags.HasErrors() {
		if !selector.IsBuiltin(call.Name) {
			return wrap(&dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: fmt.Sprintf("unknown selector %q", call.Name)})
		}
		return wrap(b.bindCall(ctx, dst, slot, call))
	}

	if len(expr.Variables()) == 0 {
		v, diags := expr.Value(nil)
		if diags.HasErrors() {
			return wrap(&dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: diags.Error()})
		}
		logger.Debug("Binding literal.")
		return wrap(b.graph.BindLiteral(dst, slot, v))
	}

	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return wrap(&dag.ConfigurationError{
			Node: dst.Name(),
			Slot: slot,
			Msg:  "expression must be a literal, a reference like node.<name>.<output>, or a selector call",
		})
	}
	ref, err := parseRef(traversal)
	if err != nil {
		return wrap(&dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: err.Error()})
	}
	var sel *selector.Selector
	if ref.Index != nil {
		sel = selector.Index(*ref.Index)
	}
	logger.Debug("Linking reference.", "traversal", formatTraversal(traversal), "from", ref.Node, "from_slot", ref.Slot)
	return wrap(b.graph.Connect(dag.Handle(ref.Node), ref.Slot, dst, slot, sel))
}

// bindCall binds a selector call. The first argument is the selected value;
// the others are constant selector arguments.
func (b *builder) bindCall(ctx context.Context, dst dag.Handle, slot string, call *hcl.StaticCall) error {
	logger := ctxlog.FromContext(ctx).With("node", dst.Name(), "slot", slot, "selector", call.Name)
	if len(call.Arguments) == 0 {
		return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: fmt.Sprintf("selector %q needs a value to select from", call.Name)}
	}

	args := make([]cty.Value, 0, len(call.Arguments)-1)
	for _, argExpr := range call.Arguments[1:] {
		if len(argExpr.Variables()) > 0 {
			return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: fmt.Sprintf("arguments of selector %q must be constants", call.Name)}
		}
		v, diags := argExpr.Value(nil)
		if diags.HasErrors() {
			return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: diags.Error()}
		}
		args = append(args, v)
	}
	sel, err := selector.Lookup(call.Name, args)
	if err != nil {
		return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: err.Error()}
	}

	source := call.Arguments[0]
	if len(source.Variables()) == 0 {
		v, diags := source.Value(nil)
		if diags.HasErrors() {
			return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: diags.Error()}
		}
		selected, err := sel.Apply(v)
		if err != nil {
			return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: err.Error()}
		}
		logger.Debug("Binding selected literal.")
		return b.graph.BindLiteral(dst, slot, selected)
	}

	traversal, diags := hcl.AbsTraversalForExpr(source)
	if diags.HasErrors() {
		return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: fmt.Sprintf("selector %q must be applied to a reference", call.Name)}
	}
	ref, err := parseRef(traversal)
	if err != nil {
		return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: err.Error()}
	}
	if ref.Index != nil {
		return &dag.ConfigurationError{Node: dst.Name(), Slot: slot, Msg: "an indexed reference cannot be combined with a selector"}
	}
	logger.Debug("Linking selected reference.", "traversal", formatTraversal(traversal), "from", ref.Node, "from_slot", ref.Slot)
	return b.graph.Connect(dag.Handle(ref.Node), ref.Slot, dst, slot, sel)
}
