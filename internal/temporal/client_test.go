package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.uber.org/zap/zaptest"

	"github.com/clintrovert/tasksync/internal/temporal/workflows"
)

func TestPushBody_SignalsWithStart(t *testing.T) {
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("feature-sync-7-push_body")
	run.On("GetRunID").Return("run-1")

	tc := &mocks.Client{}
	tc.On("SignalWithStartWorkflow",
		mock.Anything,
		"feature-sync-7-push_body",
		workflows.PushBodySignal,
		int64(7),
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.ID == "feature-sync-7-push_body" && o.TaskQueue == "feature-sync-queue"
		}),
		mock.Anything,
		workflows.FeatureSyncInput{FeatureID: 7, Action: workflows.ActionPushBody},
	).Return(run, nil).Twice()

	c := newClient(tc, "feature-sync-queue", zaptest.NewLogger(t))
	require.NoError(t, c.PushBody(context.Background(), 7))
	// A second edit while the first run is in flight signals the same workflow.
	require.NoError(t, c.PushBody(context.Background(), 7))
	tc.AssertExpectations(t)
	tc.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPushBody_SignalError(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("SignalWithStartWorkflow",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything,
	).Return(nil, errors.New("frontend unavailable"))

	c := newClient(tc, "feature-sync-queue", zaptest.NewLogger(t))
	assert.ErrorContains(t, c.PushBody(context.Background(), 7), "failed to signal workflow")
}

func TestStartPublish_StartsWorkflow(t *testing.T) {
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("feature-sync-7-publish")
	run.On("GetRunID").Return("run-1")

	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.ID == "feature-sync-7-publish" && o.TaskQueue == "feature-sync-queue"
		}),
		mock.Anything,
		workflows.FeatureSyncInput{FeatureID: 7, Action: workflows.ActionPublish},
	).Return(run, nil)

	c := newClient(tc, "feature-sync-queue", zaptest.NewLogger(t))
	id, err := c.StartPublish(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "feature-sync-7-publish", id)
	tc.AssertExpectations(t)
}

func TestStartFeatureSync_Error(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("frontend unavailable"))

	c := newClient(tc, "feature-sync-queue", zaptest.NewLogger(t))
	_, err := c.StartFeatureSync(context.Background(), 7, workflows.ActionPublish)
	assert.ErrorContains(t, err, "failed to start workflow")
}
