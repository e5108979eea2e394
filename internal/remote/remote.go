// Package remote defines the JSON wire protocol used to run a tool in
// another process, over HTTP or socket.io. Values travel as plain JSON; the
// receiving side infers their types.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Request asks a remote worker to run one tool invocation.
type Request struct {
	Tool    string                             `json:"tool"`
	Node    string                             `json:"node"`
	Params  map[string]ctyjson.SimpleJSONValue `json:"params,omitempty"`
	Inputs  map[string]ctyjson.SimpleJSONValue `json:"inputs"`
	Outputs []string                           `json:"outputs"`
}

// Response carries either the outputs or a failure of the remote tool.
type Response struct {
	Outputs  map[string]ctyjson.SimpleJSONValue `json:"outputs,omitempty"`
	Error    string                             `json:"error,omitempty"`
	ExitCode int                                `json:"exit_code,omitempty"`
}

// NewRequest converts an invocation into its wire form.
func NewRequest(req *task.Request) *Request {
	return &Request{
		Tool:    req.Tool,
		Node:    req.Node,
		Params:  wrap(req.Params),
		Inputs:  wrap(req.Inputs),
		Outputs: req.Outputs,
	}
}

// Task converts a wire request back into an invocation.
func (r *Request) Task() *task.Request {
	return &task.Request{
		Node:    r.Node,
		Tool:    r.Tool,
		Params:  unwrap(r.Params),
		Inputs:  unwrap(r.Inputs),
		Outputs: r.Outputs,
	}
}

// Result returns the outputs of a successful response, or a ProcessError
// for tool.
func (r *Response) Result(tool string) (map[string]cty.Value, error) {
	if r.Error != "" {
		code := r.ExitCode
		if code == 0 {
			code = 1
		}
		return nil, &task.ProcessError{Tool: tool, ExitCode: code, Diagnostic: r.Error}
	}
	return unwrap(r.Outputs), nil
}

// DecodeResponse parses a response body.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid remote response: %w", err)
	}
	return &resp, nil
}

func wrap(values map[string]cty.Value) map[string]ctyjson.SimpleJSONValue {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]ctyjson.SimpleJSONValue, len(values))
	for k, v := range values {
		out[k] = ctyjson.SimpleJSONValue{Value: v}
	}
	return out
}

func unwrap(values map[string]ctyjson.SimpleJSONValue) map[string]cty.Value {
	out := make(map[string]cty.Value, len(values))
	for k, v := range values {
		out[k] = v.Value
	}
	return out
}

// NewHTTPHandler serves the protocol on top of a local invoker. It is the
// worker side of the HTTP tool.
func NewHTTPHandler(ctx context.Context, inv task.Invoker) http.Handler {
	logger := ctxlog.FromContext(ctx)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
			return
		}
		logger.Debug("Remote invocation received.", "tool", req.Tool, "node", req.Node)

		resp := Serve(r.Context(), inv, &req)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to write remote response.", "error", err)
		}
	})
}

// Serve runs one wire request against inv and builds the response.
func Serve(ctx context.Context, inv task.Invoker, req *Request) *Response {
	outputs, err := inv.Invoke(ctx, req.Task())
	if err != nil {
		resp := &Response{Error: err.Error(), ExitCode: 1}
		var pe *task.ProcessError
		if errors.As(err, &pe) {
			// The caller rebuilds the ProcessError, so only the diagnostic travels.
			switch {
			case pe.Diagnostic != "":
				resp.Error = pe.Diagnostic
			case pe.Err != nil:
				resp.Error = pe.Err.Error()
			}
			if pe.ExitCode != 0 {
				resp.ExitCode = pe.ExitCode
			}
		}
		return resp
	}
	return &Response{Outputs: wrap(outputs)}
}
