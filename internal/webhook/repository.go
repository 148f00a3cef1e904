package webhook

import (
	"context"

	"github.com/google/go-github/v57/github"

	"github.com/clintrovert/tasksync/pkg/types"
)

func (h *handler) label(ctx context.Context, event *github.LabelEvent) (Result, error) {
	action := event.GetAction()
	data := event.GetLabel()

	if action == "deleted" {
		if _, err := h.store.DeleteLabel(ctx, h.ws.ID, data.GetID()); err != nil {
			return Result{}, err
		}
	} else {
		if err := h.store.UpsertLabel(ctx, &types.Label{
			WorkspaceID: h.ws.ID,
			GitHubID:    data.GetID(),
			Name:        data.GetName(),
			Color:       data.GetColor(),
			Description: data.GetDescription(),
		}); err != nil {
			return Result{}, err
		}
	}

	return processed(Fields{"label_id": data.GetID(), "action": action}), nil
}

func (h *handler) milestone(ctx context.Context, event *github.MilestoneEvent) (Result, error) {
	action := event.GetAction()
	data := event.GetMilestone()

	if action == "deleted" {
		if _, err := h.store.DeleteMilestone(ctx, h.ws.ID, data.GetID()); err != nil {
			return Result{}, err
		}
	} else {
		if err := h.store.UpsertMilestone(ctx, milestoneFromEvent(h.ws.ID, data)); err != nil {
			return Result{}, err
		}
	}

	return processed(Fields{"milestone_id": data.GetID(), "action": action}), nil
}
