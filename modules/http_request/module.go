// Package http_request invokes tools served by a remote worker over HTTP.
package http_request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/remote"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params defines the `params` of an InvokeHTTP tool.
type Params struct {
	URL     string            `cty:"url"`
	Method  string            `cty:"method"`
	Headers map[string]string `cty:"headers"`
}

// client is shared by all HTTP tools to reuse connections. Per-call limits
// come from the tool timeout on the request context.
var client = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Invoker posts invocation requests to one endpoint.
type Invoker struct {
	params Params
	client *http.Client
}

// NewInvoker validates p and returns an Invoker using c, or the shared
// client when c is nil.
func NewInvoker(p Params, c *http.Client) (*Invoker, error) {
	u, err := url.Parse(p.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("params.url must be an absolute URL, got %q", p.URL)
	}
	if p.Method == "" {
		p.Method = http.MethodPost
	}
	if c == nil {
		c = client
	}
	return &Invoker{params: p, client: c}, nil
}

// Invoke implements task.Invoker.
func (i *Invoker) Invoke(ctx context.Context, req *task.Request) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("node", req.Node, "tool", req.Tool)

	body, err := json.Marshal(remote.NewRequest(req))
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "cannot encode request", Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, i.params.Method, i.params.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	keys := make([]string, 0, len(i.params.Headers))
	for k := range i.params.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		httpReq.Header.Set(k, i.params.Headers[k])
	}

	logger.Debug("Making HTTP request.", "method", i.params.Method, "url", i.params.URL)
	resp, err := i.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request interrupted: %w", ctx.Err())
		}
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "failed to execute request", Err: err}
	}
	defer resp.Body.Close()
	logger.Debug("Received HTTP response.", "status", resp.Status)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "failed to read response body", Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: resp.StatusCode, Diagnostic: string(bytes.TrimSpace(data))}
	}
	decoded, err := remote.DecodeResponse(data)
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Err: err}
	}
	return decoded.Result(req.Tool)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("InvokeHTTP", &registry.RegisteredHandler{
		Kind:      task.ExternalTask,
		NewParams: func() any { return new(Params) },
		Build: func(_ *config.ToolDefinition, params any) (task.Invoker, error) {
			return NewInvoker(*params.(*Params), nil)
		},
	})
}
