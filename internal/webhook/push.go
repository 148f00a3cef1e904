package webhook

import (
	"context"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/pkg/types"
)

// push stores the pushed commits and completes the open tasks their messages address
func (h *handler) push(ctx context.Context, event *github.PushEvent) (Result, error) {
	branch := strings.TrimPrefix(event.GetRef(), "refs/heads/")

	messages := make([]string, 0, len(event.Commits))
	stored := 0
	for _, c := range event.Commits {
		messages = append(messages, c.GetMessage())
		if c.GetID() == "" {
			continue
		}

		author := c.GetAuthor()
		created, err := h.store.InsertCommit(ctx, &types.Commit{
			WorkspaceID:   h.ws.ID,
			SHA:           c.GetID(),
			Message:       c.GetMessage(),
			AuthorLogin:   author.GetLogin(),
			AuthorName:    author.GetName(),
			AuthorEmail:   author.GetEmail(),
			URL:           c.GetURL(),
			Branch:        branch,
			AddedFiles:    c.Added,
			ModifiedFiles: c.Modified,
			RemovedFiles:  c.Removed,
			Timestamp:     timePtr(c.Timestamp),
		})
		if err != nil {
			return Result{}, err
		}
		if created {
			stored++
		}
	}

	var stamp string
	if len(event.Commits) > 0 {
		stamp = shortSHA(event.Commits[0].GetID())
	}

	completed, err := h.completeFromContent(ctx, "push", messages, stamp)
	if err != nil {
		return Result{}, err
	}

	h.logger.Debug("handled push",
		zap.String("branch", branch),
		zap.Int("commits_stored", stored),
		zap.Strings("completed_tasks", completed),
	)

	return processed(Fields{
		"commits_stored":  stored,
		"completed_tasks": completed,
	}), nil
}
