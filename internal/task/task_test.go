package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestCanTransition(t *testing.T) {
	legal := map[State][]State{
		Pending: {Ready, Failed, Skipped},
		Ready:   {Running, Cached, Skipped},
		Running: {Completed, Failed, Skipped},
		Cached:  {Completed},
	}
	for from := Pending; from <= Skipped; from++ {
		for to := Pending; to <= Skipped; to++ {
			want := false
			for _, s := range legal[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestState_Text(t *testing.T) {
	for s := Pending; s <= Skipped; s++ {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var got State
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, s, got)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("exploded")))
	assert.True(t, Skipped.IsTerminal())
	assert.False(t, Cached.IsTerminal())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{ExternalTask, TransformFunction, InputBoundary, OutputBoundary} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("daemon")
	assert.Error(t, err)
}

func TestDescriptor_Validate(t *testing.T) {
	def := cty.StringVal("-R")
	cases := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{name: "valid", desc: Descriptor{Tool: "fslstats", Invoker: Identity(), Inputs: []Slot{{Name: "in_file", Required: true}}, Outputs: []string{"out_stat"}}},
		{name: "no tool", desc: Descriptor{Invoker: Identity()}, wantErr: "no tool"},
		{name: "no invoker", desc: Descriptor{Tool: "x"}, wantErr: "no invoker"},
		{name: "duplicate input", desc: Descriptor{Tool: "x", Invoker: Identity(), Inputs: []Slot{{Name: "a"}, {Name: "a"}}}, wantErr: "twice"},
		{name: "duplicate output", desc: Descriptor{Tool: "x", Invoker: Identity(), Outputs: []string{"o", "o"}}, wantErr: "twice"},
		{name: "required with default", desc: Descriptor{Tool: "x", Invoker: Identity(), Inputs: []Slot{{Name: "op", Required: true, Default: &def}}}, wantErr: "required but has a default"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.desc.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBoundaries(t *testing.T) {
	in := NewInputBoundary("b", "a")
	require.NoError(t, in.Validate())
	assert.Equal(t, InputBoundary, in.Kind)
	assert.Equal(t, []string{"a", "b"}, in.Outputs)
	slot, ok := in.Input("a")
	require.True(t, ok)
	assert.False(t, slot.Required)
	assert.True(t, slot.Type.Equals(cty.DynamicPseudoType))

	out, err := in.Invoker.Invoke(context.Background(), &Request{
		Inputs:  map[string]cty.Value{"a": cty.NumberIntVal(1)},
		Outputs: in.Outputs,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out["a"].RawEquals(cty.NumberIntVal(1)))

	assert.Equal(t, OutputBoundary, NewOutputBoundary("mul").Kind)
}

func TestErrors(t *testing.T) {
	pe := &ProcessError{Tool: "bet", ExitCode: 3, Diagnostic: "cannot open image", Err: errors.New("exit status 3")}
	assert.True(t, errors.Is(pe, ErrProcess))
	assert.False(t, errors.Is(pe, ErrComputation))
	assert.Equal(t, `tool "bet" exited with code 3: cannot open image: exit status 3`, pe.Error())

	ce := Computationf("rescale", "range_a has zero width")
	assert.True(t, errors.Is(ce, ErrComputation))
	assert.Equal(t, `function "rescale": range_a has zero width`, ce.Error())
}
