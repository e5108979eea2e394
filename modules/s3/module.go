// Package s3 publishes files produced by a pipeline to object storage
// through pre-signed upload URLs.
package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared by all uploads to reuse TCP connections.
var httpClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	},
}

// Uploader PUTs the file named by the `source_path` input to `upload_url`.
type Uploader struct {
	client *http.Client
}

// NewUploader returns an Uploader using c, or the shared client when c is nil.
func NewUploader(c *http.Client) *Uploader {
	if c == nil {
		c = httpClient
	}
	return &Uploader{client: c}
}

// Invoke implements task.Invoker.
func (u *Uploader) Invoke(ctx context.Context, req *task.Request) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload", "node", req.Node)
	source := req.Inputs["source_path"].AsString()
	uploadURL := req.Inputs["upload_url"].AsString()
	if !filepath.IsAbs(source) && req.WorkDir != "" {
		source = filepath.Join(req.WorkDir, source)
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: fmt.Sprintf("failed to open source file '%s'", source), Err: err}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: fmt.Sprintf("failed to get file stats for '%s'", source), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "failed to create upload request", Err: err}
	}
	contentType := mime.TypeByExtension(filepath.Ext(source))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.ContentLength = stat.Size()

	logger.Info("Uploading file", "source", source, "size", stat.Size(), "contentType", contentType)
	resp, err := u.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("upload interrupted: %w", ctx.Err())
		}
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "failed to execute upload request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: resp.StatusCode, Diagnostic: strings.TrimSpace(string(body))}
	}
	logger.Info("Successfully uploaded file", "status", resp.Status)

	return map[string]cty.Value{
		"status": cty.StringVal(resp.Status),
		"size":   cty.NumberIntVal(stat.Size()),
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("UploadPresigned", &registry.RegisteredHandler{
		Kind: task.ExternalTask,
		Inputs: map[string]cty.Type{
			"source_path": cty.String,
			"upload_url":  cty.String,
		},
		Outputs: []string{"size", "status"},
		Build: func(*config.ToolDefinition, any) (task.Invoker, error) {
			return NewUploader(nil), nil
		},
	})
}
