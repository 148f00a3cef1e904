package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcapi "github.com/clintrovert/tasksync/internal/api/grpc"
	"github.com/clintrovert/tasksync/internal/api/rest"
	"github.com/clintrovert/tasksync/internal/config"
	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/inference"
	"github.com/clintrovert/tasksync/internal/issuesync"
	"github.com/clintrovert/tasksync/internal/metrics"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/internal/temporal"
	"github.com/clintrovert/tasksync/internal/webhook"
	"github.com/clintrovert/tasksync/internal/workspace"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	cfg := config.Load()
	if cfg.WebhookSecret == "" {
		logger.Warn("GITHUB_WEBHOOK_SECRET is not set, every webhook delivery will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the entity store
	st, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	m := metrics.New()

	// Create GitHub client
	githubClient, err := ghclient.NewClient(ghclient.Config{
		BaseURL: cfg.GitHubAPIURL,
		Timeout: cfg.GitHubTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create github client", zap.Error(err))
	}

	// Create inference client
	inferenceClient := inference.NewClient(inference.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.InferenceTimeout,
	}, logger)

	var inferrer webhook.Inferrer
	if cfg.OpenAIAPIKey != "" {
		inferrer = inferenceClient
	} else {
		logger.Warn("OPENAI_API_KEY is not set, task completion inference is disabled")
	}

	issueSync := issuesync.NewService(st, githubClient, m, logger)
	workspaces := workspace.NewService(workspace.Config{
		PublicWebhookURL: cfg.PublicWebhookURL,
		WebhookSecret:    cfg.WebhookSecret,
	}, st, githubClient, inferenceClient, logger)

	// Publishing and body pushes go through Temporal when it is configured
	var syncer rest.BodySyncer = issueSync
	var asyncPublisher rest.AsyncPublisher
	if cfg.TemporalEnabled() {
		temporalClient, err := temporal.NewClient(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TaskQueue, logger)
		if err != nil {
			logger.Fatal("failed to create temporal client", zap.Error(err))
		}
		defer temporalClient.Close()
		syncer = temporalClient
		asyncPublisher = temporalClient
	}

	restHandler := rest.NewHandler(rest.Deps{
		Store:      st,
		Workspaces: workspaces,
		Publisher:  issueSync,
		Syncer:     syncer,
		Dispatcher: webhook.NewDispatcher(cfg.WebhookSecret, st, inferrer, m, logger),
		Metrics:    m,

		AsyncPublisher: asyncPublisher,
	}, logger)

	// Start REST server
	restAddr := fmt.Sprintf(":%s", cfg.RESTPort)
	restServer := &http.Server{
		Addr:              restAddr,
		Handler:           rest.NewRouter(restHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting REST API server", zap.String("address", restAddr))
		if err := restServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start REST server", zap.Error(err))
		}
	}()

	// Start gRPC health server
	grpcAddr := fmt.Sprintf(":%s", cfg.GRPCPort)
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Fatal("failed to listen on gRPC port", zap.Error(err))
	}

	healthServer := grpcapi.NewServer(st, logger)
	grpcSrv := grpc.NewServer()
	healthServer.Register(grpcSrv)
	go healthServer.Run(ctx, 15*time.Second)

	go func() {
		logger.Info("starting gRPC server", zap.String("address", grpcAddr))
		if err := grpcSrv.Serve(grpcListener); err != nil {
			logger.Fatal("failed to start gRPC server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	// Shutdown servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("REST server shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	logger.Info("shutdown complete")
}
