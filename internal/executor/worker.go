package executor

import (
	"context"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/task"
)

// worker is the core processing loop for a single concurrent worker.
func (r *run) worker(ctx context.Context, readyChan chan *runNode, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for rn := range readyChan {
		nodeCtx, workerLogger := ctxlog.With(ctx, "workerID", workerID, "node", rn.node.Name, "tool", rn.node.Descriptor.Identity())

		if ctx.Err() != nil {
			rn.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				r.skip(rn, ctx.Err())
				r.wg.Done()
			})
			r.skipDependents(ctx, rn, "run canceled")
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		err := r.execute(nodeCtx, rn)

		switch state := r.results.State(rn.node.Name); state {
		case task.Completed:
			workerLogger.Debug("Node execution succeeded.")
			for _, dependent := range rn.dependents {
				if dependent.depCount.Add(-1) == 0 {
					workerLogger.Debug("Unlocking dependent node.", "dependent", dependent.node.Name)
					readyChan <- dependent
				}
			}
		case task.Skipped:
			workerLogger.Warn("Node abandoned.", "reason", err)
			r.skipDependents(ctx, rn, "run canceled")
		default:
			workerLogger.Error("Node execution failed.", "error", err)
			r.skipDependents(ctx, rn, "upstream node "+rn.node.Name+" failed")
		}

		r.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// settleFailure records err for a node that could not complete. A node whose
// run was canceled ends Skipped; any other failure ends Failed.
func (r *run) settleFailure(ctx context.Context, rn *runNode, err error) {
	name := rn.node.Name
	if ctx.Err() != nil {
		r.skip(rn, err)
		return
	}

	from := r.results.State(name)
	if terr := r.results.Transition(name, from, task.Failed); terr != nil {
		// Only Pending and Running may fail; anything else was canceled
		// between dispatch and invocation.
		r.skip(rn, err)
		return
	}
	r.results.SetError(name, err)

	r.mu.Lock()
	r.failed = append(r.failed, name)
	r.mu.Unlock()
}
