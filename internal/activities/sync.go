package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/issuesync"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

// Syncer pushes local features to GitHub
type Syncer interface {
	Publish(ctx context.Context, featureID int64) (*types.Feature, error)
	PushBody(ctx context.Context, featureID int64) error
}

// SyncActivities handles outbound feature sync activities
type SyncActivities struct {
	syncer Syncer
	logger *zap.Logger
}

// NewSyncActivities creates a new sync activities handler
func NewSyncActivities(syncer Syncer, logger *zap.Logger) *SyncActivities {
	return &SyncActivities{
		syncer: syncer,
		logger: logger,
	}
}

// PublishFeatureActivity publishes a local feature as a GitHub issue
func (a *SyncActivities) PublishFeatureActivity(ctx context.Context, featureID int64) (FeatureSyncResult, error) {
	activity.GetLogger(ctx).Info("publishing feature", "feature_id", featureID)

	feature, err := a.syncer.Publish(ctx, featureID)
	if err != nil {
		return FeatureSyncResult{}, classify(err)
	}

	return FeatureSyncResult{
		FeatureID:   featureID,
		Action:      "publish",
		IssueNumber: feature.GitHubNumber,
		HTMLURL:     feature.HTMLURL,
	}, nil
}

// PushFeatureBodyActivity rewrites the linked issue or pull request body
func (a *SyncActivities) PushFeatureBodyActivity(ctx context.Context, featureID int64) (FeatureSyncResult, error) {
	activity.GetLogger(ctx).Info("pushing feature body", "feature_id", featureID)

	if err := a.syncer.PushBody(ctx, featureID); err != nil {
		return FeatureSyncResult{}, classify(err)
	}

	return FeatureSyncResult{FeatureID: featureID, Action: "push_body"}, nil
}

// classify marks errors that retrying cannot fix
func classify(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
	case errors.Is(err, issuesync.ErrAlreadyLinked):
		return temporal.NewNonRetryableApplicationError(err.Error(), "AlreadyLinked", err)
	}
	return err
}
