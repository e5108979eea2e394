package hcl_adapter

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type commandParams struct {
	Argv    []string          `cty:"argv"`
	Files   map[string]string `cty:"files"`
	Retries int               `cty:"retries"`
	Verbose bool              `cty:"verbose"`
	Extra   map[string]any    `cty:"extra"`
	Raw     cty.Value         `cty:"raw"`
	Nested  struct {
		Name string `cty:"name"`
	} `cty:"nested"`
}

func TestDecodeParams(t *testing.T) {
	params := map[string]cty.Value{
		"argv":    cty.TupleVal([]cty.Value{cty.StringVal("fslmaths"), cty.StringVal("{in_file}")}),
		"files":   cty.ObjectVal(map[string]cty.Value{"out_file": cty.StringVal("out.nii")}),
		"retries": cty.NumberIntVal(3),
		"verbose": cty.True,
		"extra":   cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(1), "tags": cty.TupleVal([]cty.Value{cty.StringVal("a")})}),
		"raw":     cty.StringVal("kept"),
		"nested":  cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("inner")}),
	}

	var got commandParams
	require.NoError(t, NewConverter().DecodeParams(context.Background(), &got, params))

	assert.Equal(t, []string{"fslmaths", "{in_file}"}, got.Argv)
	assert.Equal(t, map[string]string{"out_file": "out.nii"}, got.Files)
	assert.Equal(t, 3, got.Retries)
	assert.True(t, got.Verbose)
	if diff := cmp.Diff(map[string]any{"n": 1.0, "tags": []any{"a"}}, got.Extra); diff != "" {
		t.Errorf("extra mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "kept", got.Raw.AsString())
	assert.Equal(t, "inner", got.Nested.Name)
}

func TestDecodeParams_Errors(t *testing.T) {
	conv := NewConverter()
	ctx := context.Background()

	var p commandParams
	err := conv.DecodeParams(ctx, &p, map[string]cty.Value{"argv": cty.ListValEmpty(cty.String), "colour": cty.True, "bogus": cty.True})
	assert.EqualError(t, err, "unsupported params: bogus, colour")

	err = conv.DecodeParams(ctx, p, nil)
	assert.ErrorContains(t, err, "non-nil pointer to a struct")

	err = conv.DecodeParams(ctx, &p, map[string]cty.Value{"retries": cty.StringVal("many")})
	assert.ErrorContains(t, err, "failed to decode param 'retries'")

	err = conv.DecodeParams(ctx, &p, map[string]cty.Value{"argv": cty.StringVal("fslmaths")})
	assert.ErrorContains(t, err, "cannot decode")
}

func TestToCtyValue(t *testing.T) {
	conv := NewConverter()

	v, err := conv.ToCtyValue(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.True(t, v.Type().IsMapType())
	assert.Equal(t, "b", v.Index(cty.StringVal("a")).AsString())

	v, err = conv.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilType, v.Type())
}

func TestCtyToNative(t *testing.T) {
	native, err := ctyToNative(cty.ObjectVal(map[string]cty.Value{
		"range": cty.ListVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(10)}),
		"ok":    cty.True,
		"none":  cty.NullVal(cty.String),
	}))
	require.NoError(t, err)
	want := map[string]any{"range": []any{0.0, 10.0}, "ok": true, "none": nil}
	if diff := cmp.Diff(want, native); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
