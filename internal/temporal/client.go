package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/temporal/workflows"
)

// Client wraps Temporal client functionality
type Client struct {
	temporalClient client.Client
	logger         *zap.Logger
	taskQueue      string
}

// NewClient creates a new Temporal client
func NewClient(address, namespace, taskQueue string, logger *zap.Logger) (*Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}

	return newClient(c, taskQueue, logger), nil
}

func newClient(c client.Client, taskQueue string, logger *zap.Logger) *Client {
	return &Client{
		temporalClient: c,
		logger:         logger,
		taskQueue:      taskQueue,
	}
}

// StartFeatureSync starts a feature sync workflow and returns its id without
// waiting for it to finish
func (c *Client) StartFeatureSync(ctx context.Context, featureID int64, action workflows.SyncAction) (string, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:        workflowID(featureID, action),
		TaskQueue: c.taskQueue,
	}

	input := workflows.FeatureSyncInput{
		FeatureID: featureID,
		Action:    action,
	}

	we, err := c.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.FeatureSyncWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("failed to start workflow: %w", err)
	}

	c.logger.Info("started workflow",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", we.GetRunID()),
		zap.Int64("feature_id", featureID),
		zap.String("action", string(action)),
	)

	return we.GetID(), nil
}

// StartPublish starts the publish workflow for the feature and returns its id
func (c *Client) StartPublish(ctx context.Context, featureID int64) (string, error) {
	return c.StartFeatureSync(ctx, featureID, workflows.ActionPublish)
}

// PushBody marks the feature's body dirty. The signal starts the push-body
// workflow when none is running, otherwise the running one pushes again once
// its current push finishes.
func (c *Client) PushBody(ctx context.Context, featureID int64) error {
	workflowOptions := client.StartWorkflowOptions{
		ID:        workflowID(featureID, workflows.ActionPushBody),
		TaskQueue: c.taskQueue,
	}

	input := workflows.FeatureSyncInput{
		FeatureID: featureID,
		Action:    workflows.ActionPushBody,
	}

	we, err := c.temporalClient.SignalWithStartWorkflow(ctx, workflowOptions.ID, workflows.PushBodySignal, featureID,
		workflowOptions, workflows.FeatureSyncWorkflow, input)
	if err != nil {
		return fmt.Errorf("failed to signal workflow: %w", err)
	}

	c.logger.Debug("signaled push-body workflow",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", we.GetRunID()),
		zap.Int64("feature_id", featureID),
	)

	return nil
}

func workflowID(featureID int64, action workflows.SyncAction) string {
	return fmt.Sprintf("feature-sync-%d-%s", featureID, action)
}

// Close closes the Temporal client
func (c *Client) Close() {
	c.temporalClient.Close()
}
