// Package command runs external tools as local processes.
package command

import (
	"fmt"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the fixed parts of a command line tool, set in the `params`
// attribute of its manifest.
type Params struct {
	// Argv is the command line. An element may reference an input as
	// "{slot}", the node work directory as "{workdir}" and the path of a
	// file output as "{out.slot}".
	Argv []string `cty:"argv"`
	// Files maps output slots to file names, or glob patterns, inside the
	// node work directory.
	Files map[string]string `cty:"files"`
	// Stdout names the output slot that receives the captured stdout.
	Stdout string `cty:"stdout"`
	// StdoutFormat is one of "string" (default), "lines" or "numbers".
	StdoutFormat string            `cty:"stdout_format"`
	Env          map[string]string `cty:"env"`
}

func (p *Params) validate(def *config.ToolDefinition) error {
	if len(p.Argv) == 0 {
		return fmt.Errorf("params.argv must not be empty")
	}
	switch p.StdoutFormat {
	case "", formatString, formatLines, formatNumbers:
	default:
		return fmt.Errorf("params.stdout_format must be one of %q, %q, %q; got %q", formatString, formatLines, formatNumbers, p.StdoutFormat)
	}
	if p.Stdout != "" {
		if _, ok := def.Outputs[p.Stdout]; !ok {
			return fmt.Errorf("params.stdout names undeclared output '%s'", p.Stdout)
		}
		if _, ok := p.Files[p.Stdout]; ok {
			return fmt.Errorf("output '%s' is bound to both stdout and a file", p.Stdout)
		}
	}
	for slot := range p.Files {
		if _, ok := def.Outputs[slot]; !ok {
			return fmt.Errorf("params.files names undeclared output '%s'", slot)
		}
	}
	for slot := range def.Outputs {
		if _, ok := p.Files[slot]; !ok && slot != p.Stdout {
			return fmt.Errorf("output '%s' is produced by neither a file nor stdout", slot)
		}
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("RunCommand", &registry.RegisteredHandler{
		Kind:      task.ExternalTask,
		NewParams: func() any { return new(Params) },
		Build: func(def *config.ToolDefinition, params any) (task.Invoker, error) {
			p := params.(*Params)
			if err := p.validate(def); err != nil {
				return nil, err
			}
			return NewRunner(*p), nil
		},
	})
}
