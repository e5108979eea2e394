// Package socketio invokes tools served by a remote worker over socket.io.
// The invocation request is emitted on one event and the response awaited
// on another.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"

	json "github.com/goccy/go-json"
	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/remote"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	defaultEmitEvent = "invoke"
	defaultOnEvent   = "result"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params defines the `params` of an InvokeSocketIO tool.
type Params struct {
	URL                string `cty:"url"`
	Namespace          string `cty:"namespace"`
	EmitEvent          string `cty:"emit_event"`
	OnEvent            string `cty:"on_event"`
	InsecureSkipVerify bool   `cty:"insecure_skip_verify"`
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	outputs map[string]cty.Value
	err     error
}

// Invoker runs one tool invocation per connection.
type Invoker struct {
	params  Params
	baseURL string
	path    string
}

// NewInvoker validates p, fills in the default events and returns an Invoker.
func NewInvoker(p Params) (*Invoker, error) {
	parsedURL, err := url.Parse(p.URL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("params.url must be an absolute URL, got %q", p.URL)
	}
	if p.Namespace == "" {
		p.Namespace = "/"
	}
	if p.EmitEvent == "" {
		p.EmitEvent = defaultEmitEvent
	}
	if p.OnEvent == "" {
		p.OnEvent = defaultOnEvent
	}
	return &Invoker{
		params:  p,
		baseURL: fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host),
		path:    parsedURL.Path,
	}, nil
}

// Invoke implements task.Invoker. The call ends when the response event
// arrives, the connection fails or ctx is done.
func (i *Invoker) Invoke(ctx context.Context, req *task.Request) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("node", req.Node, "tool", req.Tool, "url", i.params.URL, "onEvent", i.params.OnEvent, "emitEvent", i.params.EmitEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(res opResult) {
		select {
		case done <- res:
		default:
		}
	}

	opts := socket.DefaultOptions()
	if i.path != "" {
		opts.SetPath(i.path)
	}
	if i.params.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(i.baseURL, opts)
	io := manager.Socket(i.params.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	payload := remote.NewRequest(req)

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Debug("Successfully connected", "namespace", i.params.Namespace, "sid", io.Id())
		io.Emit(i.params.EmitEvent, payload)
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		finish(opResult{err: &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "socket.io connection failed", Err: err}})
	})

	io.On(types.EventName(i.params.OnEvent), func(data ...any) {
		if len(data) == 0 {
			finish(opResult{err: &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "empty response event"}})
			return
		}
		outputs, err := decodeEvent(req.Tool, data[0])
		finish(opResult{outputs: outputs, err: err})
	})

	io.Connect()

	select {
	case <-ctx.Done():
		if isConnected.Load() {
			return nil, fmt.Errorf("interrupted after connecting while waiting for event '%s': %w", i.params.OnEvent, ctx.Err())
		}
		return nil, fmt.Errorf("interrupted while waiting for initial connection: %w", ctx.Err())
	case res := <-done:
		return res.outputs, res.err
	}
}

// decodeEvent turns the payload of a response event into outputs. The
// client hands over already decoded JSON, which is re-encoded to reuse the
// wire codec.
func decodeEvent(tool string, payload any) (map[string]cty.Value, error) {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		var err error
		data, err = json.Marshal(p)
		if err != nil {
			return nil, &task.ProcessError{Tool: tool, ExitCode: -1, Diagnostic: "unreadable response event", Err: err}
		}
	}
	resp, err := remote.DecodeResponse(data)
	if err != nil {
		return nil, &task.ProcessError{Tool: tool, ExitCode: -1, Err: err}
	}
	return resp.Result(tool)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("InvokeSocketIO", &registry.RegisteredHandler{
		Kind:      task.ExternalTask,
		NewParams: func() any { return new(Params) },
		Build: func(_ *config.ToolDefinition, params any) (task.Invoker, error) {
			return NewInvoker(*params.(*Params))
		},
	})
}
