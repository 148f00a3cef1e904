package workflows

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/clintrovert/tasksync/internal/activities"
)

func newWorkflowEnv() *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(activities.PublishFeatureActivity)
	env.RegisterActivity(activities.PushFeatureBodyActivity)
	return env
}

func TestFeatureSyncWorkflow_Publish(t *testing.T) {
	env := newWorkflowEnv()
	env.OnActivity(activities.PublishFeatureActivity, mock.Anything, int64(7)).
		Return(activities.FeatureSyncResult{FeatureID: 7, Action: "publish", IssueNumber: 12}, nil)

	env.ExecuteWorkflow(FeatureSyncWorkflow, FeatureSyncInput{FeatureID: 7, Action: ActionPublish})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res activities.FeatureSyncResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, 12, res.IssueNumber)
}

func TestFeatureSyncWorkflow_PushBodyRetries(t *testing.T) {
	env := newWorkflowEnv()
	env.OnActivity(activities.PushFeatureBodyActivity, mock.Anything, int64(3)).
		Return(activities.FeatureSyncResult{}, errors.New("github unavailable")).Once()
	env.OnActivity(activities.PushFeatureBodyActivity, mock.Anything, int64(3)).
		Return(activities.FeatureSyncResult{FeatureID: 3, Action: "push_body"}, nil).Once()

	env.ExecuteWorkflow(FeatureSyncWorkflow, FeatureSyncInput{FeatureID: 3, Action: ActionPushBody})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestFeatureSyncWorkflow_PushBodyRepeatsAfterSignalDuringPush(t *testing.T) {
	env := newWorkflowEnv()

	var pushes atomic.Int32
	env.OnActivity(activities.PushFeatureBodyActivity, mock.Anything, int64(3)).
		After(10 * time.Second).
		Return(func(_ context.Context, id int64) (activities.FeatureSyncResult, error) {
			pushes.Add(1)
			return activities.FeatureSyncResult{FeatureID: id, Action: "push_body"}, nil
		})

	// Two edits land while the first push is in flight.
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(PushBodySignal, int64(3))
		env.SignalWorkflow(PushBodySignal, int64(3))
	}, 5*time.Second)

	env.ExecuteWorkflow(FeatureSyncWorkflow, FeatureSyncInput{FeatureID: 3, Action: ActionPushBody})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, int32(2), pushes.Load())
}

func TestFeatureSyncWorkflow_UnknownAction(t *testing.T) {
	env := newWorkflowEnv()

	env.ExecuteWorkflow(FeatureSyncWorkflow, FeatureSyncInput{FeatureID: 3, Action: "rebase"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UnknownAction", appErr.Type())
}
