package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

func descriptor(version string, inputs ...string) *task.Descriptor {
	d := &task.Descriptor{
		Tool:    "antsRegistration",
		Version: version,
		Kind:    task.ExternalTask,
		Params:  map[string]cty.Value{"dimension": cty.NumberIntVal(3)},
		Outputs: []string{"forward_transforms", "warped_image"},
		Invoker: task.Identity(),
	}
	for _, in := range inputs {
		d.Inputs = append(d.Inputs, task.Slot{Name: in, Type: cty.String, Required: true})
	}
	return d
}

func TestCompute_Deterministic(t *testing.T) {
	inputs := map[string]cty.Value{
		"fixed_image":  cty.StringVal("mean.nii"),
		"moving_image": cty.StringVal("t1.nii"),
	}

	a, err := Compute("reg", descriptor("1", "fixed_image", "moving_image"), inputs)
	require.NoError(t, err)
	b, err := Compute("reg", descriptor("1", "moving_image", "fixed_image"), map[string]cty.Value{
		"moving_image": cty.StringVal("t1.nii"),
		"fixed_image":  cty.StringVal("mean.nii"),
	})
	require.NoError(t, err)

	assert.Equal(t, a, b, "slot declaration order must not change the fingerprint")
	assert.Len(t, a.String(), 64)
	assert.Len(t, a.Short(), 12)
}

func TestCompute_Sensitivity(t *testing.T) {
	inputs := map[string]cty.Value{"fixed_image": cty.StringVal("mean.nii")}
	base, err := Compute("reg", descriptor("1", "fixed_image"), inputs)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		node   string
		desc   *task.Descriptor
		inputs map[string]cty.Value
	}{
		{"node identity", "reg2", descriptor("1", "fixed_image"), inputs},
		{"version", "reg", descriptor("2", "fixed_image"), inputs},
		{"input value", "reg", descriptor("1", "fixed_image"), map[string]cty.Value{"fixed_image": cty.StringVal("other.nii")}},
		{"input type", "reg", descriptor("1", "fixed_image"), map[string]cty.Value{"fixed_image": cty.ListVal([]cty.Value{cty.StringVal("mean.nii")})}},
		{"param", "reg", func() *task.Descriptor {
			d := descriptor("1", "fixed_image")
			d.Params["dimension"] = cty.NumberIntVal(2)
			return d
		}(), inputs},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fp, err := Compute(tc.node, tc.desc, tc.inputs)
			require.NoError(t, err)
			assert.NotEqual(t, base, fp)
		})
	}
}

func TestCompute_NumbersCompareByValue(t *testing.T) {
	d := descriptor("1", "x")
	a, err := Compute("n", d, map[string]cty.Value{"x": cty.NumberIntVal(10)})
	require.NoError(t, err)
	b, err := Compute("n", d, map[string]cty.Value{"x": cty.NumberFloatVal(10.0)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompute_RejectsUnknown(t *testing.T) {
	_, err := Compute("n", descriptor("1", "x"), map[string]cty.Value{"x": cty.UnknownVal(cty.String)})
	assert.ErrorContains(t, err, "not fully known")
}

func TestCompute_WorkDir(t *testing.T) {
	inputs := map[string]cty.Value{"fixed_image": cty.StringVal("mean.nii")}
	plain, err := Compute("reg", descriptor("1", "fixed_image"), inputs)
	require.NoError(t, err)
	empty, err := Compute("reg", descriptor("1", "fixed_image"), inputs, WithWorkDir(""))
	require.NoError(t, err)
	a, err := Compute("reg", descriptor("1", "fixed_image"), inputs, WithWorkDir("/scratch/a/reg"))
	require.NoError(t, err)
	b, err := Compute("reg", descriptor("1", "fixed_image"), inputs, WithWorkDir("/scratch/b/reg"))
	require.NoError(t, err)

	assert.Equal(t, plain, empty)
	assert.NotEqual(t, plain, a)
	assert.NotEqual(t, a, b)
}
