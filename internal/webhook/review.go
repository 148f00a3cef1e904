package webhook

import (
	"context"
	"errors"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

// reviewState maps GitHub's review state, in any case, to ReviewState
func reviewState(s string) types.ReviewState {
	switch strings.ToLower(s) {
	case "approved":
		return types.ReviewStateApproved
	case "changes_requested":
		return types.ReviewStateChangesRequested
	case "commented":
		return types.ReviewStateCommented
	case "dismissed":
		return types.ReviewStateDismissed
	}
	return types.ReviewStatePending
}

// pullRequestForEvent resolves the mirrored pull request a review event refers to
func (h *handler) pullRequestForEvent(ctx context.Context, pr *github.PullRequest) (*types.PullRequest, error) {
	return h.store.GetPullRequestByGitHubID(ctx, h.ws.ID, pr.GetID())
}

func (h *handler) pullRequestReview(ctx context.Context, event *github.PullRequestReviewEvent) (Result, error) {
	pr, err := h.pullRequestForEvent(ctx, event.GetPullRequest())
	if errors.Is(err, store.ErrNotFound) {
		return Result{Status: StatusPRNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}

	data := event.GetReview()
	review := &types.Review{
		PullRequestID:     pr.ID,
		GitHubID:          data.GetID(),
		ReviewerLogin:     data.GetUser().GetLogin(),
		ReviewerAvatarURL: data.GetUser().GetAvatarURL(),
		State:             reviewState(data.GetState()),
		Body:              data.GetBody(),
		HTMLURL:           data.GetHTMLURL(),
		CommitSHA:         data.GetCommitID(),
		SubmittedAt:       timePtr(data.SubmittedAt),
	}
	if err := h.store.UpsertReview(ctx, review); err != nil {
		return Result{}, err
	}

	return processed(Fields{
		"review_id": review.GitHubID,
		"state":     string(review.State),
	}), nil
}

func (h *handler) pullRequestReviewComment(ctx context.Context, event *github.PullRequestReviewCommentEvent) (Result, error) {
	pr, err := h.pullRequestForEvent(ctx, event.GetPullRequest())
	if errors.Is(err, store.ErrNotFound) {
		return Result{Status: StatusPRNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}

	action := event.GetAction()
	data := event.GetComment()

	if action == "deleted" {
		if _, err := h.store.DeleteComment(ctx, pr.ID, data.GetID(), types.CommentTypeReview); err != nil {
			return Result{}, err
		}
		return processed(Fields{"comment_id": data.GetID(), "action": "deleted"}), nil
	}

	var reviewID *int64
	if id := data.GetPullRequestReviewID(); id != 0 {
		review, err := h.store.GetReviewByGitHubID(ctx, pr.ID, id)
		switch {
		case err == nil:
			reviewID = &review.ID
		case !errors.Is(err, store.ErrNotFound):
			return Result{}, err
		}
	}

	comment := &types.Comment{
		PullRequestID:   pr.ID,
		ReviewID:        reviewID,
		GitHubID:        data.GetID(),
		Type:            types.CommentTypeReview,
		AuthorLogin:     data.GetUser().GetLogin(),
		AuthorAvatarURL: data.GetUser().GetAvatarURL(),
		Body:            data.GetBody(),
		HTMLURL:         data.GetHTMLURL(),
		DiffHunk:        data.GetDiffHunk(),
		Path:            data.GetPath(),
		Position:        data.Position,
		CommitSHA:       data.GetCommitID(),
		GitHubCreatedAt: timePtr(data.CreatedAt),
		GitHubUpdatedAt: timePtr(data.UpdatedAt),
	}
	if err := h.store.UpsertComment(ctx, comment); err != nil {
		return Result{}, err
	}

	return processed(Fields{"comment_id": comment.GitHubID, "action": action}), nil
}

// issueComment mirrors conversation comments on pull requests; comments on
// plain issues are ignored
func (h *handler) issueComment(ctx context.Context, event *github.IssueCommentEvent) (Result, error) {
	issue := event.GetIssue()
	if issue == nil || !issue.IsPullRequest() {
		return Result{Status: StatusIgnoredIssueComment}, nil
	}

	pr, err := h.store.GetPullRequestByNumber(ctx, h.ws.ID, issue.GetNumber())
	if errors.Is(err, store.ErrNotFound) {
		return Result{Status: StatusPRNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}

	action := event.GetAction()
	data := event.GetComment()

	if action == "deleted" {
		if _, err := h.store.DeleteComment(ctx, pr.ID, data.GetID(), types.CommentTypeIssue); err != nil {
			return Result{}, err
		}
		return processed(Fields{"comment_id": data.GetID(), "action": "deleted"}), nil
	}

	comment := &types.Comment{
		PullRequestID:   pr.ID,
		GitHubID:        data.GetID(),
		Type:            types.CommentTypeIssue,
		AuthorLogin:     data.GetUser().GetLogin(),
		AuthorAvatarURL: data.GetUser().GetAvatarURL(),
		Body:            data.GetBody(),
		HTMLURL:         data.GetHTMLURL(),
		GitHubCreatedAt: timePtr(data.CreatedAt),
		GitHubUpdatedAt: timePtr(data.UpdatedAt),
	}
	if err := h.store.UpsertComment(ctx, comment); err != nil {
		return Result{}, err
	}

	return processed(Fields{"comment_id": comment.GitHubID, "action": action}), nil
}
