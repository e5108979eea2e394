package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/hcl_adapter"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

func numbers(ns ...int64) cty.Value {
	vals := make([]cty.Value, len(ns))
	for i, n := range ns {
		vals[i] = cty.NumberIntVal(n)
	}
	return cty.ListVal(vals)
}

func rescale(t *testing.T, a, b cty.Value) (map[string]cty.Value, error) {
	t.Helper()
	return Rescale(context.Background(), &task.Request{
		Node:    "calcinv",
		Tool:    "rescale",
		Inputs:  map[string]cty.Value{"range_a": a, "range_b": b},
		Outputs: []string{"add", "mul"},
	})
}

func TestRescale(t *testing.T) {
	testCases := []struct {
		name    string
		a, b    cty.Value
		wantMul float64
		wantAdd float64
	}{
		{name: "pipeline ranges", a: numbers(0, 10), b: numbers(0, 100), wantMul: -10, wantAdd: 100},
		{name: "same range", a: numbers(0, 10), b: numbers(0, 10), wantMul: -1, wantAdd: 10},
		{name: "offset target", a: numbers(2, 4), b: numbers(10, 20), wantMul: -5, wantAdd: 30},
		{
			name:    "tuple input",
			a:       cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberFloatVal(0.5)}),
			b:       numbers(0, 1),
			wantMul: -2,
			wantAdd: 1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := rescale(t, tc.a, tc.b)
			require.NoError(t, err)
			mul, _ := out["mul"].AsBigFloat().Float64()
			add, _ := out["add"].AsBigFloat().Float64()
			assert.InDelta(t, tc.wantMul, mul, 1e-9)
			assert.InDelta(t, tc.wantAdd, add, 1e-9)
		})
	}
}

func TestRescale_InvalidInputs(t *testing.T) {
	testCases := []struct {
		name    string
		a, b    cty.Value
		wantMsg string
	}{
		{name: "zero width", a: numbers(5, 5), b: numbers(0, 100), wantMsg: "zero width"},
		{name: "short range", a: numbers(0), b: numbers(0, 100), wantMsg: "exactly two numbers"},
		{name: "not a list", a: cty.StringVal("0 10"), b: numbers(0, 100), wantMsg: "two-number range"},
		{name: "missing", a: cty.NullVal(rangeType), b: numbers(0, 100), wantMsg: "not set"},
		{
			name:    "non numeric element",
			a:       numbers(0, 10),
			b:       cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.StringVal("x")}),
			wantMsg: "range_b[1] is not a number",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rescale(t, tc.a, tc.b)
			require.Error(t, err)
			assert.True(t, errors.Is(err, task.ErrComputation))
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	require.Contains(t, r.HandlerRegistry, "Rescale")
	require.Contains(t, r.HandlerRegistry, "Identity")
	require.NoError(t, r.ValidateRegistry(context.Background(), hcl_adapter.NewConverter()))

	desc, err := r.Descriptor(context.Background(), hcl_adapter.NewConverter(), "rescale")
	require.NoError(t, err)
	assert.Equal(t, task.TransformFunction, desc.Kind)
	assert.Equal(t, []string{"add", "mul"}, desc.Outputs)
	require.Len(t, desc.Inputs, 2)
	assert.True(t, desc.Inputs[0].Required)
}
