package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/dagflow/internal/builder"
	"github.com/vk/dagflow/internal/cache"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/executor"
)

// Run builds the pipeline graph and executes it. The report is written to
// the app's output. The returned error is a build failure, or the
// executor's *executor.RunError when nodes failed or were skipped.
func (a *App) Run(ctx context.Context) (*executor.Result, error) {
	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctxlog.WithLogger(ctx, a.logger), "run_id", runID)
	logger.Debug("App.Run method started.")

	if a.cfg.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.cfg.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	bindings, err := parseInputs(a.cfg.Inputs)
	if err != nil {
		return nil, err
	}

	logger.Debug("Building dependency graph from config model...")
	graph, err := builder.Build(ctx, a.model, a.registry, a.converter, bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes()))

	resultCache, closeCache, err := a.openCache(ctx)
	if err != nil {
		return nil, err
	}
	defer closeCache()

	exec, err := executor.New(graph, executor.Config{
		Workers: a.cfg.WorkerCount,
		WorkDir: a.cfg.WorkDir,
		Cache:   resultCache,
	})
	if err != nil {
		return nil, err
	}
	a.run.Store(&runState{id: runID, pipeline: graph.Name(), executor: exec})

	logger.Info("🚀 Starting concurrent execution...", "pipeline", graph.Name())
	res, runErr := exec.Run(ctx)
	if res != nil {
		if err := writeReport(a.outW, runID, graph.Name(), res, runErr); err != nil {
			logger.Error("Failed to write run report.", "error", err)
		}
	}
	if runErr != nil {
		logger.Error("Execution finished with failures.", "error", runErr)
		return res, runErr
	}
	logger.Info("🏁 Execution finished.", "executed", len(res.Executed), "cache_hits", len(res.CacheHits))
	return res, nil
}

// openCache returns the result cache for a run and the function releasing
// it: badger when a cache directory is configured, memory otherwise.
func (a *App) openCache(ctx context.Context) (*cache.Cache, func(), error) {
	logger := ctxlog.FromContext(ctx)
	opts := []cache.Option{cache.WithBypass(a.cfg.NoCache)}
	if a.cfg.NoCache {
		logger.Info("Cache lookups disabled for this run.")
	}

	if a.cfg.CacheDir == "" {
		logger.Debug("Using in-memory cache.")
		return cache.New(cache.NewMemoryStore(), opts...), func() {}, nil
	}

	store, err := cache.OpenBadger(a.cfg.CacheDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache at %s: %w", a.cfg.CacheDir, err)
	}
	logger.Debug("Using persistent cache.", "dir", a.cfg.CacheDir)
	return cache.New(store, opts...), func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close cache.", "error", err)
		}
	}, nil
}
