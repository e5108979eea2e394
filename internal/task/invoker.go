package task

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Request is everything an Invoker receives for one invocation.
type Request struct {
	Node    string
	Tool    string
	Params  map[string]cty.Value
	Inputs  map[string]cty.Value
	Outputs []string
	// WorkDir is a directory reserved for this node. It is empty for nodes
	// that do not run outside the process.
	WorkDir string
}

// Invoker performs the work of a Descriptor and returns a value for every
// declared output.
type Invoker interface {
	Invoke(ctx context.Context, req *Request) (map[string]cty.Value, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, req *Request) (map[string]cty.Value, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, req *Request) (map[string]cty.Value, error) {
	return f(ctx, req)
}

// Identity returns an Invoker that copies each input to the output of the
// same name. Outputs without a matching input are left out.
func Identity() Invoker {
	return InvokerFunc(func(_ context.Context, req *Request) (map[string]cty.Value, error) {
		out := make(map[string]cty.Value, len(req.Outputs))
		for _, name := range req.Outputs {
			if v, ok := req.Inputs[name]; ok {
				out[name] = v
			}
		}
		return out, nil
	})
}
