package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/clintrovert/tasksync/internal/activities"
)

// FeatureSyncWorkflow pushes one local feature change to GitHub, retrying
// while GitHub is unavailable
func FeatureSyncWorkflow(ctx workflow.Context, input FeatureSyncInput) (activities.FeatureSyncResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting feature sync workflow",
		"feature_id", input.FeatureID,
		"action", string(input.Action),
	)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	switch input.Action {
	case ActionPublish:
		return publish(ctx, input)
	case ActionPushBody:
		return pushBody(ctx, input)
	default:
		return activities.FeatureSyncResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown sync action %q", input.Action), "UnknownAction", nil)
	}
}

func publish(ctx workflow.Context, input FeatureSyncInput) (activities.FeatureSyncResult, error) {
	logger := workflow.GetLogger(ctx)

	var result activities.FeatureSyncResult
	if err := workflow.ExecuteActivity(ctx, activities.PublishFeatureActivity, input.FeatureID).Get(ctx, &result); err != nil {
		logger.Error("feature publish failed", "feature_id", input.FeatureID, "error", err)
		return activities.FeatureSyncResult{}, err
	}

	logger.Info("feature sync workflow completed",
		"feature_id", input.FeatureID,
		"issue_number", result.IssueNumber,
	)

	return result, nil
}

// pushBody pushes the feature body until no push-body signal arrived during
// the last push. Every push renders the current tasks, so any number of
// signals received while one is running collapse into a single follow-up.
func pushBody(ctx workflow.Context, input FeatureSyncInput) (activities.FeatureSyncResult, error) {
	logger := workflow.GetLogger(ctx)
	dirty := workflow.GetSignalChannel(ctx, PushBodySignal)

	// The signal that started this run is covered by the first push.
	drainSignals(dirty)

	for pushes := 1; ; pushes++ {
		var result activities.FeatureSyncResult
		if err := workflow.ExecuteActivity(ctx, activities.PushFeatureBodyActivity, input.FeatureID).Get(ctx, &result); err != nil {
			logger.Error("feature body push failed", "feature_id", input.FeatureID, "error", err)
			return activities.FeatureSyncResult{}, err
		}

		if !drainSignals(dirty) {
			logger.Info("feature sync workflow completed",
				"feature_id", input.FeatureID,
				"pushes", pushes,
			)
			return result, nil
		}

		if pushes >= maxPushesPerRun {
			return result, workflow.NewContinueAsNewError(ctx, FeatureSyncWorkflow, input)
		}
	}
}

// maxPushesPerRun bounds a push-body run's history before it continues as new
const maxPushesPerRun = 100

func drainSignals(ch workflow.ReceiveChannel) bool {
	var featureID int64
	received := false
	for ch.ReceiveAsync(&featureID) {
		received = true
	}
	return received
}
