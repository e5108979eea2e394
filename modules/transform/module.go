// Package transform provides the in-process transform functions: Rescale,
// which derives a linear mapping between two intensity ranges, and
// Identity, which passes values through unchanged.
package transform

import (
	"context"
	"math/big"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var rangeType = cty.List(cty.Number)

// Rescale computes the multiplier and offset that map range_b onto the
// inverted range_a:
//
//	mul = -(b1 - b0) / (a1 - a0)
//	add = |a1 * mul| + b0
func Rescale(ctx context.Context, req *task.Request) (map[string]cty.Value, error) {
	a0, a1, err := bounds(req.Tool, "range_a", req.Inputs["range_a"])
	if err != nil {
		return nil, err
	}
	b0, b1, err := bounds(req.Tool, "range_b", req.Inputs["range_b"])
	if err != nil {
		return nil, err
	}

	width := new(big.Float).Sub(a1, a0)
	if width.Sign() == 0 {
		return nil, task.Computationf(req.Tool, "range_a has zero width (%s, %s)", a0.String(), a1.String())
	}

	mul := new(big.Float).Sub(b1, b0)
	mul.Quo(mul, width)
	mul.Neg(mul)

	add := new(big.Float).Mul(a1, mul)
	add.Abs(add)
	add.Add(add, b0)

	ctxlog.FromContext(ctx).Debug("Computed rescale factors.", "node", req.Node, "mul", mul.String(), "add", add.String())
	return map[string]cty.Value{
		"mul": cty.NumberVal(mul),
		"add": cty.NumberVal(add),
	}, nil
}

func bounds(tool, slot string, v cty.Value) (*big.Float, *big.Float, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil, task.Computationf(tool, "%s is not set", slot)
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, nil, task.Computationf(tool, "%s must be a two-number range, got %s", slot, ty.FriendlyName())
	}
	if v.LengthInt() != 2 {
		return nil, nil, task.Computationf(tool, "%s must hold exactly two numbers, got %d", slot, v.LengthInt())
	}
	var out [2]*big.Float
	for i, elem := range v.AsValueSlice() {
		if elem.IsNull() || !elem.Type().Equals(cty.Number) {
			return nil, nil, task.Computationf(tool, "%s[%d] is not a number", slot, i)
		}
		out[i] = elem.AsBigFloat()
	}
	return out[0], out[1], nil
}

// Register registers the transform handlers and the built-in "rescale" tool.
// Identity has no built-in tool since its slots come from a manifest.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("Rescale", &registry.RegisteredHandler{
		Kind:    task.TransformFunction,
		Inputs:  map[string]cty.Type{"range_a": rangeType, "range_b": rangeType},
		Outputs: []string{"add", "mul"},
		Build: func(*config.ToolDefinition, any) (task.Invoker, error) {
			return task.InvokerFunc(Rescale), nil
		},
	})
	r.RegisterHandler("Identity", &registry.RegisteredHandler{
		Kind: task.TransformFunction,
		Build: func(*config.ToolDefinition, any) (task.Invoker, error) {
			return task.Identity(), nil
		},
	})

	r.RegisterDefinition(&config.ToolDefinition{
		Name:        "rescale",
		Description: "Multiplier and offset mapping one intensity range onto the inverse of another.",
		Handler:     "Rescale",
		Version:     "1",
		Inputs: map[string]*config.InputDefinition{
			"range_a": {Name: "range_a", Type: rangeType, Description: "Range of the image to invert."},
			"range_b": {Name: "range_b", Type: rangeType, Description: "Target range."},
		},
		Outputs: map[string]*config.OutputDefinition{
			"mul": {Name: "mul", Type: cty.Number},
			"add": {Name: "add", Type: cty.Number},
		},
	})
}
