package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/dag"
	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/resultstore"
	"github.com/vk/dagflow/internal/selector"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// execute drives one node from Pending to a terminal state. The returned
// error is the node's failure, already attributed; the node's final state
// is in the result store.
func (r *run) execute(ctx context.Context, rn *runNode) error {
	logger := ctxlog.FromContext(ctx)
	name := rn.node.Name
	desc := rn.node.Descriptor

	inputs, err := r.resolveInputs(rn)
	if err != nil {
		r.settleFailure(ctx, rn, err)
		return err
	}

	workDir := r.workDir(rn)
	fp, err := fingerprint.Compute(name, desc, inputs, fingerprint.WithWorkDir(workDir))
	if err != nil {
		err = &NodeError{Node: name, Err: task.Computationf(desc.Tool, "cannot fingerprint inputs: %v", err)}
		r.settleFailure(ctx, rn, err)
		return err
	}
	ctx, logger = ctxlog.With(ctx, "fingerprint", fp.Short())

	if err := r.results.Transition(name, task.Pending, task.Ready); err != nil {
		return err
	}

	var verify func(*resultstore.Record) error
	if workDir != "" {
		verify = func(rec *resultstore.Record) error { return filesExist(workDir, rec.Outputs) }
	}

	rec, cached, err := r.cfg.Cache.DoVerified(ctx, fp, verify, func() (*resultstore.Record, error) {
		if err := r.results.Transition(name, task.Ready, task.Running); err != nil {
			return nil, err
		}
		logger.Info("▶️ Starting node")
		outputs, err := r.invoke(ctx, rn, inputs, workDir)
		if err != nil {
			return nil, err
		}
		logger.Info("✅ Finished node")
		logger.Debug("Node outputs.", "outputs", formatOutputsForLogs(outputs))
		return &resultstore.Record{
			Node:        name,
			Outputs:     outputs,
			Fingerprint: fp,
			CompletedAt: r.cfg.Now(),
		}, nil
	})
	if err != nil {
		var ne *NodeError
		if !errors.As(err, &ne) {
			err = &NodeError{Node: name, Err: err}
		}
		r.settleFailure(ctx, rn, err)
		return err
	}

	if cached {
		if err := r.results.Transition(name, task.Ready, task.Cached); err != nil {
			return err
		}
		replay := *rec
		replay.Node = name
		replay.FromCache = true
		rec = &replay
		r.noteCacheHit(name)
		logger.Info("♻️ Reusing cached result", "completed_at", rec.CompletedAt)
	}

	if err := r.results.Put(rec); err != nil {
		return err
	}
	from := task.Running
	if cached {
		from = task.Cached
	}
	return r.results.Transition(name, from, task.Completed)
}

// resolveInputs gathers the value of every input slot: edges first, then
// literals, then declared defaults. Unbound optional slots are left out.
func (r *run) resolveInputs(rn *runNode) (map[string]cty.Value, error) {
	name := rn.node.Name
	inputs := make(map[string]cty.Value, len(rn.node.Descriptor.Inputs))

	for _, slot := range rn.node.Descriptor.Inputs {
		if edge, ok := r.graph.InboundEdge(name, slot.Name); ok {
			v, err := r.resolveEdge(edge, slot)
			if err != nil {
				return nil, &NodeError{Node: name, Slot: slot.Name, Err: err}
			}
			inputs[slot.Name] = v
			continue
		}
		if v, ok := r.graph.Literal(name, slot.Name); ok {
			inputs[slot.Name] = v
			continue
		}
		if slot.Default != nil {
			inputs[slot.Name] = *slot.Default
		}
	}
	return inputs, nil
}

// resolveEdge applies the edge's selector to the producer's output and
// converts the result to the consuming slot's type.
func (r *run) resolveEdge(edge *dag.Edge, slot task.Slot) (cty.Value, error) {
	produced, ok := r.outputValue(edge.From, edge.FromSlot)
	if !ok {
		return cty.NilVal, &selector.SelectionError{
			Selector: edge.Selector.Name(),
			Reason:   fmt.Sprintf("%s.%s produced no value", edge.From, edge.FromSlot),
		}
	}

	v, err := edge.Selector.Apply(produced)
	if err != nil {
		return cty.NilVal, err
	}

	converted, err := dag.ConvertToSlot(v, slot)
	if err != nil {
		return cty.NilVal, &selector.SelectionError{Selector: edge.Selector.Name(), Reason: err.Error()}
	}
	return converted, nil
}

// invoke calls the node's invoker and checks that every declared output came
// back. Errors are classified by node kind.
func (r *run) invoke(ctx context.Context, rn *runNode, inputs map[string]cty.Value, workDir string) (map[string]cty.Value, error) {
	desc := rn.node.Descriptor
	req := &task.Request{
		Node:    rn.node.Name,
		Tool:    desc.Tool,
		Params:  desc.Params,
		Inputs:  inputs,
		Outputs: desc.Outputs,
		WorkDir: workDir,
	}

	if desc.Kind == task.ExternalTask {
		if workDir != "" {
			if err := os.MkdirAll(workDir, 0o755); err != nil {
				return nil, &task.ProcessError{Tool: desc.Tool, ExitCode: -1, Diagnostic: "cannot create work directory", Err: err}
			}
		}
		r.noteExecuted(rn.node.Name)
	}

	callCtx := ctx
	if desc.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, desc.Timeout)
		defer cancel()
	}

	outputs, err := safeInvoke(callCtx, desc.Invoker, req)
	if err != nil {
		return nil, classify(ctx, callCtx, desc, err)
	}

	result := make(map[string]cty.Value, len(desc.Outputs))
	for _, slot := range desc.Outputs {
		v, ok := outputs[slot]
		if !ok || v.Type() == cty.NilType {
			if desc.Kind.IsBoundary() {
				// Unbound boundary fields; validation guarantees nobody reads them.
				continue
			}
			return nil, missingOutput(desc, slot)
		}
		if !v.IsWhollyKnown() {
			return nil, missingOutput(desc, slot)
		}
		result[slot] = v
	}
	return result, nil
}

// workDir is <WorkDir>/<graph>/<node> for external nodes, and empty for
// everything else or when work directories are disabled.
func (r *run) workDir(rn *runNode) string {
	if rn.node.Descriptor.Kind != task.ExternalTask || r.cfg.WorkDir == "" {
		return ""
	}
	return filepath.Join(r.cfg.WorkDir, r.graph.Name(), rn.node.Name)
}

// filesExist checks that every path under dir named by outputs is still on
// disk. Paths elsewhere are not the node's to vouch for.
func filesExist(dir string, outputs map[string]cty.Value) error {
	var missing error
	for slot, v := range outputs {
		_ = cty.Walk(v, func(_ cty.Path, v cty.Value) (bool, error) {
			if missing != nil || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
				return missing == nil, nil
			}
			path := v.AsString()
			if !filepath.IsAbs(path) {
				return true, nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return true, nil
			}
			if _, err := os.Stat(path); err != nil {
				missing = fmt.Errorf("output %q: %w", slot, err)
			}
			return true, nil
		})
	}
	return missing
}

// safeInvoke turns a panicking invoker into an error.
func safeInvoke(ctx context.Context, inv task.Invoker, req *task.Request) (out map[string]cty.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("invoker panicked: %v", p)
		}
	}()
	return inv.Invoke(ctx, req)
}

// classify maps an invoker error to the node-kind specific error type.
// Errors that already carry a kind pass through.
func classify(runCtx, callCtx context.Context, desc *task.Descriptor, err error) error {
	if errors.Is(err, task.ErrProcess) || errors.Is(err, task.ErrComputation) {
		return err
	}
	if runCtx.Err() != nil {
		return fmt.Errorf("abandoned: %w", runCtx.Err())
	}
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)

	if desc.Kind == task.ExternalTask {
		pe := &task.ProcessError{Tool: desc.Tool, ExitCode: -1, Err: err}
		if timedOut {
			pe.Diagnostic = fmt.Sprintf("timed out after %s", desc.Timeout)
		}
		return pe
	}
	if timedOut {
		return &task.ComputationError{Function: desc.Tool, Reason: fmt.Sprintf("timed out after %s", desc.Timeout), Err: err}
	}
	return &task.ComputationError{Function: desc.Tool, Reason: "failed", Err: err}
}

func missingOutput(desc *task.Descriptor, slot string) error {
	if desc.Kind == task.ExternalTask {
		return &task.ProcessError{Tool: desc.Tool, ExitCode: -1, Diagnostic: fmt.Sprintf("declared output %q was not produced", slot)}
	}
	return task.Computationf(desc.Tool, "declared output %q was not produced", slot)
}
