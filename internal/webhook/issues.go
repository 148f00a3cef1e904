package webhook

import (
	"context"
	"errors"

	"github.com/google/go-github/v57/github"

	"github.com/clintrovert/tasksync/internal/checkbox"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

// issues keeps the issue's feature and its tasks in step with the issue
func (h *handler) issues(ctx context.Context, event *github.IssuesEvent) (Result, error) {
	action := event.GetAction()
	issue := event.GetIssue()
	number := issue.GetNumber()

	fields := Fields{"issue_number": number, "action": action}

	switch action {
	case "opened":
		feature, created, err := h.store.GetOrCreateFeature(ctx, &types.Feature{
			WorkspaceID:  h.ws.ID,
			Name:         issue.GetTitle(),
			Description:  issue.GetBody(),
			Type:         types.FeatureTypeIssue,
			State:        types.FeatureStateOpen,
			GitHubNumber: number,
			GitHubID:     issue.GetID(),
			HTMLURL:      issue.GetHTMLURL(),
		})
		if err != nil {
			return Result{}, err
		}
		// A redelivered opened event must not re-sync.
		if !created {
			break
		}
		if items := checkbox.Parse(issue.GetBody()); len(items) > 0 {
			if err := h.syncCheckboxes(ctx, feature.ID, items, fields); err != nil {
				return Result{}, err
			}
		}

	case "edited":
		feature, err := h.store.GetFeatureByNumber(ctx, h.ws.ID, number, types.FeatureTypeIssue)
		if errors.Is(err, store.ErrNotFound) {
			return Result{Status: StatusFeatureNotFound, Fields: fields}, nil
		}
		if err != nil {
			return Result{}, err
		}
		name := feature.Name
		if issue.Title != nil {
			name = issue.GetTitle()
		}
		if err := h.store.UpdateFeatureContent(ctx, feature.ID, name, issue.GetBody()); err != nil {
			return Result{}, err
		}
		if err := h.syncCheckboxes(ctx, feature.ID, checkbox.Parse(issue.GetBody()), fields); err != nil {
			return Result{}, err
		}

	case "closed":
		if _, err := h.store.SetFeatureStateByNumber(ctx, h.ws.ID, number, types.FeatureTypeIssue, types.FeatureStateClosed); err != nil {
			return Result{}, err
		}
		// Closing the issue completes every task, whatever its checkbox says.
		n, err := h.store.CompleteFeatureTasksByNumber(ctx, h.ws.ID, number, types.FeatureTypeIssue)
		if err != nil {
			return Result{}, err
		}
		h.metrics.ObserveTasksCompleted("issue_closed", int(n))
		fields["tasks_completed"] = n

	case "reopened":
		if _, err := h.store.SetFeatureStateByNumber(ctx, h.ws.ID, number, types.FeatureTypeIssue, types.FeatureStateOpen); err != nil {
			return Result{}, err
		}
	}

	return processed(fields), nil
}
