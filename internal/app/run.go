package app

import (
	"context"
	"fmt"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/dag"
	"github.com/vk/stagehandgo/internal/runctx"
)

// Run executes a single pipeline run based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, appConfig.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	rc := runctx.New(runctx.Options{
		Repository:     appConfig.Repository,
		Ref:            appConfig.Ref,
		Token:          appConfig.Token,
		RuntimeVersion: appConfig.RuntimeVersion,
	})
	ctx = runctx.WithContext(ctx, rc)
	a.logger.Info("Run context created.", "run_id", rc.RunID, "repository", rc.Repository, "ref", rc.Ref)

	a.logger.Debug("Building dependency graph from config model...")
	graph, err := dag.Build(ctx, a.config)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No stages found in pipeline, nothing to execute.")
		return nil
	}

	a.logger.Info("Starting pipeline execution.", "workers", appConfig.WorkerCount)
	exec := dag.NewExecutor(graph, appConfig.WorkerCount, a.registry, a.converter)
	runErr := exec.Run(ctx)

	for stageName, outcome := range rc.Outcomes() {
		a.logger.Info("Stage outcome.", "stage", stageName, "outcome", outcome)
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("Pipeline execution finished.")
	return nil
}
