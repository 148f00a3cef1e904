// Package issuesync pushes local features to GitHub: publishing a local
// feature as an issue, and rewriting a linked issue or pull request body
// after its tasks change.
package issuesync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/checkbox"
	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/metrics"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

// ErrAlreadyLinked is returned when publishing a feature that already has a GitHub counterpart
var ErrAlreadyLinked = errors.New("feature is already linked to github")

// GitHub is the part of the GitHub client the service uses
type GitHub interface {
	CreateIssue(ctx context.Context, ws *types.Workspace, title, body string) (*ghclient.Issue, error)
	UpdateIssueBody(ctx context.Context, ws *types.Workspace, number int, body string) error
}

// Store is the part of the entity store the service uses
type Store interface {
	GetWorkspace(ctx context.Context, id int64) (*types.Workspace, error)
	GetFeature(ctx context.Context, id int64) (*types.Feature, error)
	ListTasks(ctx context.Context, featureID int64) ([]types.Task, error)
	LinkFeature(ctx context.Context, featureID int64, link store.FeatureLink, taskOrder []int64) error
}

// Service publishes features and pushes their bodies
type Service struct {
	store   Store
	github  GitHub
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new issue sync service
func NewService(st Store, gh GitHub, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:   st,
		github:  gh,
		metrics: m,
		logger:  logger,
	}
}

// Publish creates a GitHub issue for a local feature, links the feature to
// it and numbers the tasks in the order they were rendered
func (s *Service) Publish(ctx context.Context, featureID int64) (*types.Feature, error) {
	feature, ws, err := s.load(ctx, featureID)
	if err != nil {
		return nil, err
	}
	if feature.Linked() {
		return nil, fmt.Errorf("feature %d: %w", featureID, ErrAlreadyLinked)
	}

	tasks, err := s.store.ListTasks(ctx, featureID)
	if err != nil {
		return nil, err
	}
	ordered := checkbox.Ordered(tasks)

	issue, err := s.github.CreateIssue(ctx, ws, feature.Name, checkbox.RenderBody(feature.Description, ordered))
	s.metrics.ObserveGitHubSync("publish", err)
	if err != nil {
		return nil, fmt.Errorf("failed to publish feature %d: %w", featureID, err)
	}

	order := make([]int64, len(ordered))
	for i, task := range ordered {
		order[i] = task.ID
	}

	link := store.FeatureLink{Number: issue.Number, GitHubID: issue.ID, HTMLURL: issue.HTMLURL}
	if err := s.store.LinkFeature(ctx, featureID, link, order); err != nil {
		return nil, err
	}

	s.logger.Info("published feature",
		zap.Int64("feature_id", featureID),
		zap.Int("issue_number", issue.Number),
		zap.Int("tasks", len(order)),
	)

	return s.store.GetFeature(ctx, featureID)
}

// PushBody rewrites the linked issue or pull request body from the feature's
// current description and tasks. Unlinked features and workspaces without a
// token are skipped.
func (s *Service) PushBody(ctx context.Context, featureID int64) error {
	feature, ws, err := s.load(ctx, featureID)
	if err != nil {
		return err
	}
	if !feature.Linked() || ws.GitHubToken == "" {
		s.logger.Debug("skipping body push", zap.Int64("feature_id", featureID))
		return nil
	}

	tasks, err := s.store.ListTasks(ctx, featureID)
	if err != nil {
		return err
	}

	err = s.github.UpdateIssueBody(ctx, ws, feature.GitHubNumber, checkbox.RenderBody(feature.Description, tasks))
	s.metrics.ObserveGitHubSync("push_body", err)
	if err != nil {
		return fmt.Errorf("failed to push body of feature %d: %w", featureID, err)
	}

	s.logger.Info("pushed feature body",
		zap.Int64("feature_id", featureID),
		zap.Int("number", feature.GitHubNumber),
	)
	return nil
}

func (s *Service) load(ctx context.Context, featureID int64) (*types.Feature, *types.Workspace, error) {
	feature, err := s.store.GetFeature(ctx, featureID)
	if err != nil {
		return nil, nil, err
	}
	ws, err := s.store.GetWorkspace(ctx, feature.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}
	return feature, ws, nil
}
