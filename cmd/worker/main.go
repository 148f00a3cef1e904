package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/activities"
	"github.com/clintrovert/tasksync/internal/config"
	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/issuesync"
	"github.com/clintrovert/tasksync/internal/metrics"
	"github.com/clintrovert/tasksync/internal/store"
	workflows "github.com/clintrovert/tasksync/internal/temporal/workflows"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if !cfg.TemporalEnabled() {
		logger.Fatal("TEMPORAL_ADDRESS is required to run the worker")
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal("failed to create temporal client", zap.Error(err))
	}
	defer c.Close()

	st, err := store.Open(context.Background(), cfg.DBDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	// Create GitHub client
	githubClient, err := ghclient.NewClient(ghclient.Config{
		BaseURL: cfg.GitHubAPIURL,
		Timeout: cfg.GitHubTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create github client", zap.Error(err))
	}

	// Initialize activities
	syncer := issuesync.NewService(st, githubClient, metrics.New(), logger)
	activities.SetSyncActivities(activities.NewSyncActivities(syncer, logger))

	// Create worker
	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	// Register workflow
	w.RegisterWorkflow(workflows.FeatureSyncWorkflow)

	// Register activities
	w.RegisterActivity(activities.PublishFeatureActivity)
	w.RegisterActivity(activities.PushFeatureBodyActivity)

	// Start worker
	logger.Info("starting worker",
		zap.String("task_queue", cfg.TaskQueue),
		zap.String("namespace", cfg.TemporalNamespace),
	)

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}

	logger.Info("worker stopped")
}
