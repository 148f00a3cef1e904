// Package workspace provisions workspaces: linking a repository, managing
// its webhook and bootstrapping features from a description or the
// repository itself.
package workspace

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/inference"
	"github.com/clintrovert/tasksync/pkg/types"
)

// GitHub is the part of the GitHub client the service uses
type GitHub interface {
	GetRepository(ctx context.Context, ws *types.Workspace) (*ghclient.Repository, error)
	RegisterWebhook(ctx context.Context, ws *types.Workspace, webhookURL, secret string) (string, error)
	UnregisterWebhook(ctx context.Context, ws *types.Workspace) error
	FetchRepoSummary(ctx context.Context, ws *types.Workspace) (string, error)
}

// Planner drafts features from free text
type Planner interface {
	DraftFeatures(ctx context.Context, source string) ([]inference.FeatureDraft, error)
}

// Store is the part of the entity store the service uses
type Store interface {
	CreateWorkspace(ctx context.Context, ws *types.Workspace) error
	GetWorkspace(ctx context.Context, id int64) (*types.Workspace, error)
	SetWorkspaceRepoURL(ctx context.Context, id int64, repoURL string) error
	SetWorkspaceWebhook(ctx context.Context, id int64, webhookID string) error
	DeleteWorkspace(ctx context.Context, id int64) error
	CreateFeature(ctx context.Context, f *types.Feature) error
	CreateTask(ctx context.Context, t *types.Task) error
}

// Config holds the webhook settings used when provisioning
type Config struct {
	// PublicWebhookURL is the full URL GitHub posts deliveries to; empty skips registration
	PublicWebhookURL string
	WebhookSecret    string
}

// Service provisions workspaces
type Service struct {
	cfg     Config
	store   Store
	github  GitHub
	planner Planner
	logger  *zap.Logger
}

// NewService creates a new workspace service
func NewService(cfg Config, st Store, gh GitHub, planner Planner, logger *zap.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   st,
		github:  gh,
		planner: planner,
		logger:  logger,
	}
}

// Create stores a workspace, then records its repository url and registers
// its webhook. The GitHub steps are best-effort: failures are logged and the
// workspace is kept.
func (s *Service) Create(ctx context.Context, ws *types.Workspace) (*types.Workspace, error) {
	ws.RepoOwner = strings.TrimSpace(ws.RepoOwner)
	ws.RepoName = strings.TrimSpace(ws.RepoName)
	if ws.RepoOwner == "" || ws.RepoName == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}
	if ws.Name == "" {
		ws.Name = ws.FullName()
	}

	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.Int64("workspace_id", ws.ID), zap.String("repo", ws.FullName()))

	if ws.GitHubToken == "" {
		logger.Info("created workspace without github token")
		return ws, nil
	}

	if repo, err := s.github.GetRepository(ctx, ws); err != nil {
		logger.Warn("failed to fetch repository", zap.Error(err))
	} else if repo.HTMLURL != "" {
		if err := s.store.SetWorkspaceRepoURL(ctx, ws.ID, repo.HTMLURL); err != nil {
			return nil, err
		}
		ws.RepoURL = repo.HTMLURL
	}

	if err := s.registerWebhook(ctx, logger, ws); err != nil {
		return nil, err
	}

	logger.Info("created workspace", zap.String("webhook_id", ws.WebhookID))
	return ws, nil
}

// RegisterWebhook (re)registers the workspace's webhook
func (s *Service) RegisterWebhook(ctx context.Context, id int64) (*types.Workspace, error) {
	ws, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.registerWebhook(ctx, s.logger.With(zap.Int64("workspace_id", id)), ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *Service) registerWebhook(ctx context.Context, logger *zap.Logger, ws *types.Workspace) error {
	if s.cfg.PublicWebhookURL == "" {
		logger.Debug("no public webhook url configured, skipping registration")
		return nil
	}

	hookID, err := s.github.RegisterWebhook(ctx, ws, s.cfg.PublicWebhookURL, s.cfg.WebhookSecret)
	if err != nil {
		logger.Warn("failed to register webhook", zap.Error(err))
		return nil
	}

	if err := s.store.SetWorkspaceWebhook(ctx, ws.ID, hookID); err != nil {
		return err
	}
	ws.WebhookID = hookID
	return nil
}

// Delete removes the workspace's webhook, then the workspace and everything
// it owns. A webhook that cannot be removed is logged and left behind.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ws, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return err
	}

	if ws.WebhookID != "" {
		if err := s.github.UnregisterWebhook(ctx, ws); err != nil {
			s.logger.Warn("failed to unregister webhook",
				zap.Int64("workspace_id", id),
				zap.String("webhook_id", ws.WebhookID),
				zap.Error(err),
			)
		}
	}

	if err := s.store.DeleteWorkspace(ctx, id); err != nil {
		return err
	}

	s.logger.Info("deleted workspace", zap.Int64("workspace_id", id))
	return nil
}

// Bootstrap drafts features and tasks from source, or from a summary of the
// linked repository when source is empty, and stores them as local features
func (s *Service) Bootstrap(ctx context.Context, id int64, source string) ([]types.Feature, error) {
	ws, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(source) == "" {
		source, err = s.github.FetchRepoSummary(ctx, ws)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize repository: %w", err)
		}
	}

	drafts, err := s.planner.DraftFeatures(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to draft features: %w", err)
	}

	features := make([]types.Feature, 0, len(drafts))
	for _, draft := range drafts {
		feature := &types.Feature{
			WorkspaceID: ws.ID,
			Name:        draft.Name,
			Description: draft.Description,
			Type:        types.FeatureTypeLocal,
			State:       types.FeatureStateOpen,
		}
		if err := s.store.CreateFeature(ctx, feature); err != nil {
			return nil, err
		}

		for _, td := range draft.Tasks {
			if err := s.store.CreateTask(ctx, &types.Task{
				FeatureID: feature.ID,
				Title:     td.Title,
				Status:    types.TaskStatusTodo,
				Priority:  td.Priority,
			}); err != nil {
				return nil, err
			}
		}

		features = append(features, *feature)
	}

	s.logger.Info("bootstrapped workspace",
		zap.Int64("workspace_id", ws.ID),
		zap.Int("features", len(features)),
	)

	return features, nil
}
