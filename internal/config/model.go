package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the loaded
// configuration: tool manifests and at most one pipeline.
type Model struct {
	Tools    map[string]*ToolDefinition
	Pipeline *Pipeline
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Tools: make(map[string]*ToolDefinition)}
}

// Pipeline is the user's graph definition.
type Pipeline struct {
	Name    string
	Inputs  []*PipelineInput
	Nodes   []*Node
	Outputs []*PipelineOutput
}

// PipelineInput is one externally supplied value.
type PipelineInput struct {
	Name        string
	Description string
	Default     *cty.Value
}

// PipelineOutput is one requested result. Value references a node output,
// optionally wrapped in a selector call.
type PipelineOutput struct {
	Name        string
	Description string
	Value       hcl.Expression
}

// Node is one instance of a tool within the pipeline.
type Node struct {
	Tool      string
	Name      string
	Arguments map[string]hcl.Expression
}

// --- Tool Manifest Models ---

// ToolDefinition is the format-agnostic representation of a tool manifest.
type ToolDefinition struct {
	Name        string
	Description string
	// Handler names the Go handler that carries out the tool.
	Handler string
	Version string
	Timeout time.Duration
	// Params are fixed handler parameters, such as the command line of a
	// process or the URL of a remote service.
	Params  map[string]cty.Value
	Inputs  map[string]*InputDefinition
	Outputs map[string]*OutputDefinition
}

// InputDefinition defines a single input slot of a tool.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition defines a single output slot of a tool.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}
