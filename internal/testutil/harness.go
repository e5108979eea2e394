package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/app"
	"github.com/vk/dagflow/internal/executor"
	"github.com/vk/dagflow/internal/hcl_adapter"
	"github.com/vk/dagflow/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output holds the logs and the run report.
	Output string
	Result *executor.Result
	// Err is the startup error or the run error.
	Err error
	App *app.App
}

// Harness describes one pipeline run. Files maps paths relative to a
// temporary root to their contents; files under "modules/" are manifests,
// the rest make up the pipeline.
type Harness struct {
	Files   map[string]string
	Inputs  map[string]string
	Modules []registry.Module
	// Config overrides the harness defaults when non-nil. PipelinePath and
	// ModulesPath are always set by the harness.
	Config *app.Config
}

// RunPipeline runs h with a background context.
func RunPipeline(t *testing.T, h Harness) *HarnessResult {
	t.Helper()
	return RunPipelineWithContext(context.Background(), t, h)
}

// RunPipelineWithContext writes h.Files to a temporary directory, builds an
// app over them and runs it.
func RunPipelineWithContext(ctx context.Context, t *testing.T, h Harness) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	pipelineDir := filepath.Join(root, "pipeline")
	modulesDir := filepath.Join(root, "modules")
	require.NoError(t, os.MkdirAll(pipelineDir, 0o755))
	require.NoError(t, os.MkdirAll(modulesDir, 0o755))

	for name, content := range h.Files {
		path := filepath.Join(root, name)
		if filepath.Dir(name) == "." {
			path = filepath.Join(pipelineDir, name)
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := app.Config{LogLevel: "debug", LogFormat: "text", WorkerCount: 4}
	if h.Config != nil {
		cfg = *h.Config
	}
	cfg.PipelinePath = pipelineDir
	cfg.ModulesPath = modulesDir
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(root, "work")
	}
	if cfg.Inputs == nil {
		cfg.Inputs = h.Inputs
	}
	full, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("DAGFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})

	testApp, err := app.NewApp(out, full, hcl_adapter.NewLoader(), h.Modules...)
	if err != nil {
		return &HarnessResult{Output: out.String(), Err: err}
	}
	res, err := testApp.Run(ctx)
	return &HarnessResult{Output: out.String(), Result: res, Err: err, App: testApp}
}
