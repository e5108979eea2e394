// Package executor runs a validated dag.Graph: it dispatches ready nodes to a
// pool of workers, replays unchanged nodes from the cache, and isolates
// failures so that only the descendants of a failed node are skipped.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/dagflow/internal/cache"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/dag"
	"github.com/vk/dagflow/internal/resultstore"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Config tunes an Executor.
type Config struct {
	// Workers is the number of nodes run concurrently. Zero means
	// runtime.NumCPU().
	Workers int
	// WorkDir is the root under which each external node gets
	// <WorkDir>/<graph>/<node>. Empty disables work directories.
	WorkDir string
	// Cache is consulted before dispatch. Nil uses a fresh in-memory cache,
	// which only deduplicates within the executor's lifetime.
	Cache *cache.Cache
	// Now stamps completion records. Nil means time.Now.
	Now func() time.Time
}

// Executor runs one graph. Run may be called repeatedly; each call gets
// fresh per-run state and shares only the cache.
type Executor struct {
	graph *dag.Graph
	cfg   Config

	current atomic.Pointer[resultstore.Store]
}

// New returns an executor for g. The graph must have been validated.
func New(g *dag.Graph, cfg Config) (*Executor, error) {
	if g == nil {
		return nil, fmt.Errorf("executor: nil graph")
	}
	if !g.Validated() {
		return nil, &dag.ConfigurationError{Msg: "graph must be validated before execution"}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Executor{graph: g, cfg: cfg}, nil
}

// Results returns the store of the current or most recent run, or nil
// before the first run. It is safe to read while a run is in progress.
func (e *Executor) Results() *resultstore.Store {
	return e.current.Load()
}

// runNode is the per-run scheduling state of one node.
type runNode struct {
	node       *dag.Node
	dependents []*runNode
	depCount   atomic.Int32
	skipOnce   sync.Once
}

// run is the state shared by the workers of a single Run call.
type run struct {
	*Executor
	results *resultstore.Store
	nodes   map[string]*runNode
	wg      sync.WaitGroup

	mu        sync.Mutex
	executed  []string
	cacheHits []string
	failed    []string // in the order nodes reached Failed
}

// Run executes every target node of the graph: the ancestors of the
// requested outputs, or all nodes when none were requested. It returns a
// Result in every case; the error is nil only when every target completed.
// Otherwise it is a *RunError.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	if !e.graph.Validated() {
		return nil, &dag.ConfigurationError{Msg: "graph was modified after validation"}
	}
	ctx, logger := ctxlog.With(ctx, "pipeline", e.graph.Name())

	r := &run{
		Executor: e,
		results:  resultstore.New(),
		nodes:    make(map[string]*runNode),
	}
	e.current.Store(r.results)

	targets := e.graph.Targets()
	for _, n := range e.graph.Nodes() {
		if _, ok := targets[n.Name]; ok {
			r.nodes[n.Name] = &runNode{node: n}
			r.results.Track(n.Name)
		}
	}
	for name, rn := range r.nodes {
		deps := e.graph.Dependencies(name)
		rn.depCount.Store(int32(len(deps)))
		for _, d := range deps {
			parent := r.nodes[d]
			parent.dependents = append(parent.dependents, rn)
		}
	}

	readyChan := make(chan *runNode, len(r.nodes))
	roots := 0
	for _, n := range e.graph.Nodes() {
		rn, ok := r.nodes[n.Name]
		if ok && rn.depCount.Load() == 0 {
			logger.Debug("Found root node.", "node", n.Name)
			readyChan <- rn
			roots++
		}
	}
	logger.Debug("Found all root nodes.", "count", roots)

	r.wg.Add(len(r.nodes))

	logger.Debug("Starting worker pool.", "workers", e.cfg.Workers)
	for i := 0; i < e.cfg.Workers; i++ {
		go r.worker(ctx, readyChan, i)
	}

	logger.Info("Waiting for all nodes to settle...", "nodes", len(r.nodes))
	r.wg.Wait()
	close(readyChan)
	logger.Info("All nodes settled.")

	return r.report(ctx)
}

// skipDependents marks every transitive dependent of rn as Skipped.
func (r *run) skipDependents(ctx context.Context, rn *runNode, cause string) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range rn.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "node", dependent.node.Name, "dependency", rn.node.Name)
			r.skip(dependent, fmt.Errorf("skipped: %s", cause))
			r.wg.Done()
			r.skipDependents(ctx, dependent, cause)
		})
	}
}

// skip moves a non-terminal node to Skipped from whatever state it is in.
func (r *run) skip(rn *runNode, reason error) {
	for {
		from := r.results.State(rn.node.Name)
		if from.IsTerminal() {
			return
		}
		if from == task.Cached {
			// Cached always completes; there is nothing left to skip.
			return
		}
		if err := r.results.Transition(rn.node.Name, from, task.Skipped); err == nil {
			r.results.SetError(rn.node.Name, reason)
			return
		}
	}
}

func (r *run) noteExecuted(name string) {
	r.mu.Lock()
	r.executed = append(r.executed, name)
	r.mu.Unlock()
}

func (r *run) noteCacheHit(name string) {
	r.mu.Lock()
	r.cacheHits = append(r.cacheHits, name)
	r.mu.Unlock()
}

// outputValue returns a produced output of a completed node.
func (r *run) outputValue(node, slot string) (cty.Value, bool) {
	rec, ok := r.results.Record(node)
	if !ok {
		return cty.NilVal, false
	}
	return rec.Output(slot)
}
