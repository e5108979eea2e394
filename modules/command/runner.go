package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

const (
	diagnosticTail = 2048
	// waitDelay bounds how long output pipes are drained after the process
	// was killed.
	waitDelay = 2 * time.Second
)

// Runner invokes one command line tool.
type Runner struct {
	params Params
}

// NewRunner returns a Runner for p.
func NewRunner(p Params) *Runner {
	return &Runner{params: p}
}

// Invoke implements task.Invoker.
func (r *Runner) Invoke(ctx context.Context, req *task.Request) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("node", req.Node, "tool", req.Tool)

	argv, err := r.expand(req)
	if err != nil {
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "invalid command line", Err: err}
	}
	logger.Debug("Starting process.", "argv", argv, "workdir", req.WorkDir)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = req.WorkDir
	cmd.WaitDelay = waitDelay
	if len(r.params.Env) > 0 {
		cmd.Env = os.Environ()
		keys := make([]string, 0, len(r.params.Env))
		for k := range r.params.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+r.params.Env[k])
		}
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("process interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Debug("Process exited with failure.", "exit_code", exitErr.ExitCode())
			return nil, &task.ProcessError{Tool: req.Tool, ExitCode: exitErr.ExitCode(), Diagnostic: tail(stderr.String())}
		}
		return nil, &task.ProcessError{Tool: req.Tool, ExitCode: -1, Diagnostic: "cannot start process", Err: err}
	}

	outputs := make(map[string]cty.Value, len(req.Outputs))
	if r.params.Stdout != "" {
		v, err := parseStdout(stdout.String(), r.params.StdoutFormat)
		if err != nil {
			return nil, &task.ProcessError{Tool: req.Tool, ExitCode: 0, Diagnostic: "unparsable stdout", Err: err}
		}
		outputs[r.params.Stdout] = v
	}
	for slot, pattern := range r.params.Files {
		v, err := collectFile(req.WorkDir, pattern)
		if err != nil {
			return nil, &task.ProcessError{Tool: req.Tool, ExitCode: 0, Diagnostic: fmt.Sprintf("output '%s'", slot), Err: err}
		}
		outputs[slot] = v
	}
	logger.Debug("Process finished.", "outputs", len(outputs))
	return outputs, nil
}

// collectFile resolves a file output. A glob pattern yields the sorted list
// of matches, a plain name the single path.
func collectFile(workDir, pattern string) (cty.Value, error) {
	path := pattern
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, pattern)
	}
	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return cty.NilVal, err
		}
		if len(matches) == 0 {
			return cty.NilVal, fmt.Errorf("no file matches %q", pattern)
		}
		sort.Strings(matches)
		vals := make([]cty.Value, len(matches))
		for i, m := range matches {
			vals[i] = cty.StringVal(m)
		}
		return cty.ListVal(vals), nil
	}
	if _, err := os.Stat(path); err != nil {
		return cty.NilVal, fmt.Errorf("expected file was not written: %w", err)
	}
	return cty.StringVal(path), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > diagnosticTail {
		s = "..." + s[len(s)-diagnosticTail:]
	}
	return s
}
