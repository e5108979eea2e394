package executor

import (
	"context"
	"errors"
	"sort"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/resultstore"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Result is what a run produced.
type Result struct {
	// Outputs holds every requested output whose node completed, keyed by
	// exposed name.
	Outputs map[string]cty.Value
	States  map[string]task.State
	Records map[string]*resultstore.Record
	// Executed lists the external nodes whose tool was invoked, sorted.
	Executed []string
	// CacheHits lists the nodes replayed from the cache, sorted.
	CacheHits []string
}

// report collects the run's outcome and builds the aggregate error.
func (r *run) report(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	res := &Result{
		Outputs: make(map[string]cty.Value),
		States:  make(map[string]task.State, len(r.nodes)),
		Records: make(map[string]*resultstore.Record),
	}
	r.mu.Lock()
	res.Executed = append(res.Executed, r.executed...)
	res.CacheHits = append(res.CacheHits, r.cacheHits...)
	failed := append([]string(nil), r.failed...)
	r.mu.Unlock()
	sort.Strings(res.Executed)
	sort.Strings(res.CacheHits)

	runErr := &RunError{Cause: ctx.Err()}
	failures := make(map[string]*NodeError)
	for _, ns := range r.results.Snapshot() {
		res.States[ns.Node] = ns.State
		switch ns.State {
		case task.Completed:
			if rec, ok := r.results.Record(ns.Node); ok {
				res.Records[ns.Node] = rec
			}
		case task.Failed:
			err := r.results.Error(ns.Node)
			var ne *NodeError
			if !errors.As(err, &ne) {
				ne = &NodeError{Node: ns.Node, Err: err}
			}
			logger.Error("Node failed execution.", "node", ns.Node, "error", err)
			failures[ns.Node] = ne
		case task.Skipped:
			runErr.Skipped = append(runErr.Skipped, ns.Node)
		}
	}

	for _, name := range failed {
		if ne, ok := failures[name]; ok {
			runErr.Failures = append(runErr.Failures, ne)
			delete(failures, name)
		}
	}
	// Failures recorded outside settleFailure keep name order after the rest.
	rest := make([]string, 0, len(failures))
	for name := range failures {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		runErr.Failures = append(runErr.Failures, failures[name])
	}

	for _, o := range r.graph.Outputs() {
		if v, ok := r.outputValue(o.Node, o.Slot); ok {
			res.Outputs[o.Name] = v
		}
	}

	// A cancellation that arrived after everything settled is not a failure.
	if len(runErr.Failures) == 0 && len(runErr.Skipped) == 0 {
		return res, nil
	}
	return res, runErr
}
