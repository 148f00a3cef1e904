// Package webhook verifies GitHub webhook deliveries, resolves the workspace
// they belong to and applies them to the entity store.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/checkbox"
	"github.com/clintrovert/tasksync/internal/inference"
	"github.com/clintrovert/tasksync/internal/metrics"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

// Store is the part of the entity store the handlers use
type Store interface {
	GetWorkspaceByRepo(ctx context.Context, owner, name string) (*types.Workspace, error)

	GetOrCreateFeature(ctx context.Context, f *types.Feature) (*types.Feature, bool, error)
	GetFeatureByGitHubID(ctx context.Context, workspaceID, githubID int64) (*types.Feature, error)
	GetFeatureByNumber(ctx context.Context, workspaceID int64, number int, featureType types.FeatureType) (*types.Feature, error)
	UpdateFeatureContent(ctx context.Context, id int64, name, description string) error
	SetFeatureStateByGitHubID(ctx context.Context, workspaceID, githubID int64, state types.FeatureState) (int64, error)
	SetFeatureStateByNumber(ctx context.Context, workspaceID int64, number int, featureType types.FeatureType, state types.FeatureState) (int64, error)
	SyncFeatureTasks(ctx context.Context, featureID int64, items []checkbox.Item) (store.SyncResult, error)

	OpenTaskTitles(ctx context.Context, workspaceID int64) ([]string, error)
	CompleteTasksByTitle(ctx context.Context, workspaceID int64, title, commit string) (int64, error)
	CompleteFeatureTasksByNumber(ctx context.Context, workspaceID int64, number int, featureType types.FeatureType) (int64, error)

	UpsertLabel(ctx context.Context, l *types.Label) error
	DeleteLabel(ctx context.Context, workspaceID, githubID int64) (int64, error)
	UpsertMilestone(ctx context.Context, m *types.Milestone) error
	GetOrCreateMilestone(ctx context.Context, m *types.Milestone) (*types.Milestone, error)
	DeleteMilestone(ctx context.Context, workspaceID, githubID int64) (int64, error)
	UpsertPullRequest(ctx context.Context, pr *types.PullRequest) error
	GetPullRequestByGitHubID(ctx context.Context, workspaceID, githubID int64) (*types.PullRequest, error)
	GetPullRequestByNumber(ctx context.Context, workspaceID int64, number int) (*types.PullRequest, error)
	InsertCommit(ctx context.Context, c *types.Commit) (bool, error)
	UpsertReview(ctx context.Context, r *types.Review) error
	GetReviewByGitHubID(ctx context.Context, pullRequestID, githubID int64) (*types.Review, error)
	UpsertComment(ctx context.Context, c *types.Comment) error
	DeleteComment(ctx context.Context, pullRequestID, githubID int64, commentType types.CommentType) (int64, error)
}

// Inferrer decides which open tasks a set of snippets completes
type Inferrer interface {
	CompletedTasks(ctx context.Context, snippets, openTasks []string) ([]string, error)
}

// Delivery is one inbound webhook request
type Delivery struct {
	Event      string
	DeliveryID string
	Signature  string
	Body       []byte
}

// Dispatcher routes verified deliveries to the per-event handlers
type Dispatcher struct {
	secret   []byte
	store    Store
	inferrer Inferrer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewDispatcher creates a new dispatcher. inferrer may be nil, in which case
// no task is ever completed from commit or pull request content.
func NewDispatcher(secret string, st Store, inferrer Inferrer, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		secret:   []byte(secret),
		store:    st,
		inferrer: inferrer,
		metrics:  m,
		logger:   logger,
	}
}

// envelope holds the fields every handled event shares
type envelope struct {
	Repository *struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// Dispatch verifies, routes and applies one delivery. Signature failures
// return ErrInvalidSignature and undecodable bodies ErrMalformedPayload; both
// leave the store untouched. Any other error is a store failure.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery) (Result, error) {
	start := time.Now()
	kind := ParseKind(delivery.Event)

	logger := d.logger.With(
		zap.String("event", delivery.Event),
		zap.String("delivery_id", delivery.DeliveryID),
	)

	result, err := d.dispatch(ctx, logger, kind, delivery)

	status := string(result.Status)
	switch {
	case errors.Is(err, ErrInvalidSignature):
		status = "invalid_signature"
		logger.Warn("rejected webhook delivery", zap.Error(err))
	case errors.Is(err, ErrMalformedPayload):
		status = "malformed"
		logger.Warn("rejected webhook delivery", zap.Error(err))
	case err != nil:
		status = "error"
		logger.Error("failed to process webhook delivery", zap.Error(err))
	default:
		logger.Info("processed webhook delivery", zap.String("status", status))
	}
	d.metrics.ObserveDelivery(kind.String(), status, time.Since(start))

	return result, err
}

func (d *Dispatcher) dispatch(ctx context.Context, logger *zap.Logger, kind Kind, delivery Delivery) (Result, error) {
	if err := VerifySignature(d.secret, delivery.Signature, delivery.Body); err != nil {
		return Result{}, err
	}

	var env envelope
	if err := json.Unmarshal(delivery.Body, &env); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Repository == nil || env.Repository.Owner.Login == "" || env.Repository.Name == "" {
		return Result{Status: StatusNoMatchingWorkspace}, nil
	}

	ws, err := d.store.GetWorkspaceByRepo(ctx, env.Repository.Owner.Login, env.Repository.Name)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Status: StatusNoMatchingWorkspace}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if kind == KindUnrecognized {
		return Result{Status: StatusIgnored}, nil
	}

	event, err := Decode(kind, delivery.Body)
	if err != nil {
		return Result{}, err
	}

	h := &handler{
		Dispatcher: d,
		ws:         ws,
		logger:     logger.With(zap.Int64("workspace_id", ws.ID)),
	}

	switch payload := event.Payload.(type) {
	case *github.PushEvent:
		return h.push(ctx, payload)
	case *github.PullRequestEvent:
		return h.pullRequest(ctx, payload)
	case *github.PullRequestReviewEvent:
		return h.pullRequestReview(ctx, payload)
	case *github.PullRequestReviewCommentEvent:
		return h.pullRequestReviewComment(ctx, payload)
	case *github.IssueCommentEvent:
		return h.issueComment(ctx, payload)
	case *github.IssuesEvent:
		return h.issues(ctx, payload)
	case *github.CreateEvent:
		return processed(Fields{"ref_type": payload.GetRefType(), "ref": payload.GetRef()}), nil
	case *github.DeleteEvent:
		return processed(Fields{"ref_type": payload.GetRefType(), "ref": payload.GetRef()}), nil
	case *github.LabelEvent:
		return h.label(ctx, payload)
	case *github.MilestoneEvent:
		return h.milestone(ctx, payload)
	}

	return Result{Status: StatusIgnored}, nil
}

// handler carries the per-delivery state shared by the event handlers
type handler struct {
	*Dispatcher
	ws     *types.Workspace
	logger *zap.Logger
}

// completeFromContent asks the inferrer which open tasks of the workspace the
// snippets complete and marks them done, stamped with commit. Inference
// failures are logged and complete nothing; store failures are returned.
func (h *handler) completeFromContent(ctx context.Context, source string, snippets []string, commit string) ([]string, error) {
	completed := []string{}
	if h.inferrer == nil || len(snippets) == 0 {
		return completed, nil
	}

	openTasks, err := h.store.OpenTaskTitles(ctx, h.ws.ID)
	if err != nil {
		return nil, err
	}
	if len(openTasks) == 0 {
		return completed, nil
	}

	titles, err := h.inferrer.CompletedTasks(ctx, snippets, openTasks)
	if err != nil {
		h.logger.Warn("completion inference failed", zap.String("source", source), zap.Error(err))
		h.metrics.ObserveInference("error")
		return completed, nil
	}
	h.metrics.ObserveInference("ok")

	for _, title := range inference.FilterTitles(titles, openTasks) {
		n, err := h.store.CompleteTasksByTitle(ctx, h.ws.ID, title, commit)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			completed = append(completed, title)
		}
	}

	h.metrics.ObserveTasksCompleted(source, len(completed))
	return completed, nil
}

// syncCheckboxes reconciles a feature's tasks with parsed checkbox items and
// reports the counts in fields
func (h *handler) syncCheckboxes(ctx context.Context, featureID int64, items []checkbox.Item, fields Fields) error {
	res, err := h.store.SyncFeatureTasks(ctx, featureID, items)
	if err != nil {
		return err
	}
	fields["tasks_created"] = res.Created
	fields["tasks_updated"] = res.Updated
	return nil
}

// shortSHA returns the 12 character abbreviation stamped on completed tasks
func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
