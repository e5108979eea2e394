package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/testutil"
)

const betManifest = `
tool "bet" {
  handler = "Count"
  input "in_file" { type = string }
  input "frac" {
    type    = number
    default = 0.5
  }
  input "mask" {
    type     = string
    optional = true
  }
  output "in_file" { type = string }
}
`

// Test for: Unset arguments fall back to the manifest default, and unset
// optional arguments are left out of the invocation.
func TestHCLFeatures_OptionalArgumentDefault(t *testing.T) {
	counter := &testutil.CountingModule{}
	result := testutil.RunPipeline(t, testutil.Harness{
		Files: map[string]string{
			"modules/bet.hcl": betManifest,
			"main.hcl": `
node "bet" "defaults" {
  arguments { in_file = "t1.nii" }
}
node "bet" "explicit" {
  arguments {
    in_file = "t1.nii"
    frac    = 0.3
    mask    = "mask.nii"
  }
}
`,
		},
		Modules: []registry.Module{counter},
	})
	require.NoError(t, result.Err)

	defaults := counter.Inputs("defaults")
	frac, _ := defaults["frac"].AsBigFloat().Float64()
	assert.Equal(t, 0.5, frac)
	assert.NotContains(t, defaults, "mask")

	explicit := counter.Inputs("explicit")
	frac, _ = explicit["frac"].AsBigFloat().Float64()
	assert.Equal(t, 0.3, frac)
	assert.Equal(t, "mask.nii", explicit["mask"].AsString())
}

// Test for: A value given for a pipeline input overrides its default.
func TestHCLFeatures_PipelineInputDefaultOverride(t *testing.T) {
	pipeline := `
tool "strip" {
  handler = "NoOp"
  input "in_file" { type = string }
  output "in_file" { type = string }
}
input "anat" { default = "t1.nii" }
node "strip" "brain" {
  arguments { in_file = input.anat }
}
output "brain" { value = node.brain.in_file }
`
	run := func(inputs map[string]string) *testutil.HarnessResult {
		return testutil.RunPipeline(t, testutil.Harness{
			Files:   map[string]string{"main.hcl": pipeline},
			Inputs:  inputs,
			Modules: []registry.Module{&testutil.NoOpModule{}},
		})
	}

	def := run(nil)
	require.NoError(t, def.Err)
	assert.Equal(t, "t1.nii", def.Result.Outputs["brain"].AsString())

	override := run(map[string]string{"anat": "t2.nii"})
	require.NoError(t, override.Err)
	assert.Equal(t, "t2.nii", override.Result.Outputs["brain"].AsString())
}
