// Package schema holds the gohcl decoding structs for pipeline and tool
// manifest files.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Pipeline Structures ---

// NodeArgs represents the content of the 'arguments' block within a node.
type NodeArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// Node represents a `node` block: an instance of a tool.
type Node struct {
	Tool      string    `hcl:"tool,label"`
	Name      string    `hcl:"name,label"`
	Arguments *NodeArgs `hcl:"arguments,block"`
}

// Input represents a pipeline-level `input` block.
type Input struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

// Output represents a pipeline-level `output` block.
type Output struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Value       hcl.Expression `hcl:"value"`
}

// Pipeline is the optional `pipeline` block naming the pipeline.
type Pipeline struct {
	Name string `hcl:"name,label"`
}

// --- Tool Manifest Schemas ---

// InputDefinition defines a single input slot of a tool.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Optional    bool           `hcl:"optional,optional"`
}

// OutputDefinition defines a single output slot of a tool.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
}

// ToolDefinition represents a `tool` manifest block.
type ToolDefinition struct {
	Name        string              `hcl:"name,label"`
	Description string              `hcl:"description,optional"`
	Handler     string              `hcl:"handler"`
	Version     string              `hcl:"version,optional"`
	Timeout     string              `hcl:"timeout,optional"`
	Params      hcl.Expression      `hcl:"params,optional"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}

// File is the top-level structure of any configuration file. Tool
// manifests and pipeline blocks may share a file.
type File struct {
	Pipeline *Pipeline         `hcl:"pipeline,block"`
	Tools    []*ToolDefinition `hcl:"tool,block"`
	Inputs   []*Input          `hcl:"input,block"`
	Nodes    []*Node           `hcl:"node,block"`
	Outputs  []*Output         `hcl:"output,block"`
	Body     hcl.Body          `hcl:",remain"`
}
