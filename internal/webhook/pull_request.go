package webhook

import (
	"context"
	"errors"

	"github.com/google/go-github/v57/github"

	"github.com/clintrovert/tasksync/internal/checkbox"
	"github.com/clintrovert/tasksync/internal/inference"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

// pullRequest mirrors the pull request with its labels and milestone, keeps
// its feature in step with the body's checkboxes and, on merge, completes the
// open tasks the pull request addresses
func (h *handler) pullRequest(ctx context.Context, event *github.PullRequestEvent) (Result, error) {
	action := event.GetAction()
	data := event.GetPullRequest()
	githubID := data.GetID()

	state := types.PullRequestState(data.GetState())
	if state == "" {
		state = types.PullRequestStateOpen
	}
	if data.GetMerged() {
		state = types.PullRequestStateMerged
	}

	labelIDs := make([]int64, 0, len(data.Labels))
	for _, l := range data.Labels {
		label := &types.Label{
			WorkspaceID: h.ws.ID,
			GitHubID:    l.GetID(),
			Name:        l.GetName(),
			Color:       l.GetColor(),
			Description: l.GetDescription(),
		}
		if err := h.store.UpsertLabel(ctx, label); err != nil {
			return Result{}, err
		}
		labelIDs = append(labelIDs, label.ID)
	}

	var milestoneID *int64
	if m := data.Milestone; m != nil {
		milestone, err := h.store.GetOrCreateMilestone(ctx, milestoneFromEvent(h.ws.ID, m))
		if err != nil {
			return Result{}, err
		}
		milestoneID = &milestone.ID
	}

	reviewers := make([]string, 0, len(data.RequestedReviewers))
	for _, r := range data.RequestedReviewers {
		if r.GetLogin() != "" {
			reviewers = append(reviewers, r.GetLogin())
		}
	}

	pr := &types.PullRequest{
		WorkspaceID:        h.ws.ID,
		GitHubID:           githubID,
		Number:             data.GetNumber(),
		Title:              data.GetTitle(),
		Body:               data.GetBody(),
		State:              state,
		HTMLURL:            data.GetHTMLURL(),
		DiffURL:            data.GetDiffURL(),
		AuthorLogin:        data.GetUser().GetLogin(),
		AuthorAvatarURL:    data.GetUser().GetAvatarURL(),
		HeadRef:            data.GetHead().GetRef(),
		HeadSHA:            data.GetHead().GetSHA(),
		BaseRef:            data.GetBase().GetRef(),
		BaseSHA:            data.GetBase().GetSHA(),
		RequestedReviewers: reviewers,
		LabelIDs:           labelIDs,
		MilestoneID:        milestoneID,
		MergedAt:           timePtr(data.MergedAt),
		MergeCommitSHA:     data.GetMergeCommitSHA(),
		CommitsCount:       data.GetCommits(),
		Additions:          data.GetAdditions(),
		Deletions:          data.GetDeletions(),
		ChangedFiles:       data.GetChangedFiles(),
		GitHubCreatedAt:    timePtr(data.CreatedAt),
		GitHubUpdatedAt:    timePtr(data.UpdatedAt),
		GitHubClosedAt:     timePtr(data.ClosedAt),
	}
	if err := h.store.UpsertPullRequest(ctx, pr); err != nil {
		return Result{}, err
	}

	fields := Fields{
		"pr_number": pr.Number,
		"action":    action,
		"state":     string(state),
	}

	switch action {
	case "opened":
		featureState := types.FeatureStateOpen
		if state != types.PullRequestStateOpen {
			featureState = types.FeatureStateClosed
		}
		feature, _, err := h.store.GetOrCreateFeature(ctx, &types.Feature{
			WorkspaceID:  h.ws.ID,
			Name:         pr.Title,
			Description:  pr.Body,
			Type:         types.FeatureTypePullRequest,
			State:        featureState,
			GitHubNumber: pr.Number,
			GitHubID:     githubID,
			HTMLURL:      pr.HTMLURL,
		})
		if err != nil {
			return Result{}, err
		}
		// Unlike edited, an opened body without checkboxes leaves the tasks alone.
		if items := checkbox.Parse(pr.Body); len(items) > 0 {
			if err := h.syncCheckboxes(ctx, feature.ID, items, fields); err != nil {
				return Result{}, err
			}
		}

	case "edited":
		feature, err := h.store.GetFeatureByGitHubID(ctx, h.ws.ID, githubID)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return Result{}, err
		}
		name := feature.Name
		if data.Title != nil {
			name = data.GetTitle()
		}
		if err := h.store.UpdateFeatureContent(ctx, feature.ID, name, pr.Body); err != nil {
			return Result{}, err
		}
		if err := h.syncCheckboxes(ctx, feature.ID, checkbox.Parse(pr.Body), fields); err != nil {
			return Result{}, err
		}

	case "closed":
		if _, err := h.store.SetFeatureStateByGitHubID(ctx, h.ws.ID, githubID, types.FeatureStateClosed); err != nil {
			return Result{}, err
		}
		if data.GetMerged() {
			snippet := pr.Title + "\n" + inference.PlainText(pr.Body)
			completed, err := h.completeFromContent(ctx, "pull_request", []string{snippet}, shortSHA(pr.HeadSHA))
			if err != nil {
				return Result{}, err
			}
			fields["completed_tasks"] = completed
		}

	case "reopened":
		if _, err := h.store.SetFeatureStateByGitHubID(ctx, h.ws.ID, githubID, types.FeatureStateOpen); err != nil {
			return Result{}, err
		}
	}

	return processed(fields), nil
}

func milestoneFromEvent(workspaceID int64, m *github.Milestone) *types.Milestone {
	state := m.GetState()
	if state == "" {
		state = "open"
	}
	return &types.Milestone{
		WorkspaceID: workspaceID,
		GitHubID:    m.GetID(),
		Number:      m.GetNumber(),
		Title:       m.GetTitle(),
		Description: m.GetDescription(),
		State:       state,
		DueOn:       timePtr(m.DueOn),
		HTMLURL:     m.GetHTMLURL(),
	}
}
