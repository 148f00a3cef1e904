package activities

import (
	"context"
	"errors"
)

// Activity functions that will be registered with the Temporal worker.
// They forward to the implementation set at worker startup.

var syncActivities *SyncActivities

var errNotInitialized = errors.New("sync activities not initialized")

// SetSyncActivities sets the sync activities implementation
func SetSyncActivities(sa *SyncActivities) {
	syncActivities = sa
}

// PublishFeatureActivity is the activity function for publishing features
func PublishFeatureActivity(ctx context.Context, featureID int64) (FeatureSyncResult, error) {
	if syncActivities == nil {
		return FeatureSyncResult{}, errNotInitialized
	}
	return syncActivities.PublishFeatureActivity(ctx, featureID)
}

// PushFeatureBodyActivity is the activity function for pushing feature bodies
func PushFeatureBodyActivity(ctx context.Context, featureID int64) (FeatureSyncResult, error) {
	if syncActivities == nil {
		return FeatureSyncResult{}, errNotInitialized
	}
	return syncActivities.PushFeatureBodyActivity(ctx, featureID)
}
