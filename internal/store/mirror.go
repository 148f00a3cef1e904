package store

import (
	"context"
	"fmt"

	"github.com/clintrovert/tasksync/pkg/types"
)

// UpsertLabel creates or updates the label keyed by (workspace, github_id)
// and fills in l.ID
func (s *Store) UpsertLabel(ctx context.Context, l *types.Label) error {
	now := s.now()
	err := s.db.QueryRowContext(ctx, s.rebind(`
INSERT INTO labels (workspace_id, github_id, name, color, description, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (workspace_id, github_id) DO UPDATE SET
  name = excluded.name,
  color = excluded.color,
  description = excluded.description,
  updated_at = excluded.updated_at
RETURNING id`),
		l.WorkspaceID, l.GitHubID, l.Name, l.Color, l.Description, now,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert label %d: %w", l.GitHubID, err)
	}
	l.UpdatedAt = now
	return nil
}

// DeleteLabel removes the label keyed by (workspace, github_id), reporting how many rows went
func (s *Store) DeleteLabel(ctx context.Context, workspaceID, githubID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM labels WHERE workspace_id = ? AND github_id = ?`), workspaceID, githubID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete label %d: %w", githubID, err)
	}
	return res.RowsAffected()
}

// ListLabels returns a workspace's labels ordered by github id
func (s *Store) ListLabels(ctx context.Context, workspaceID int64) ([]types.Label, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT id, workspace_id, github_id, name, color, description, updated_at
FROM labels WHERE workspace_id = ? ORDER BY github_id`), workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var out []types.Label
	for rows.Next() {
		var l types.Label
		if err := rows.Scan(&l.ID, &l.WorkspaceID, &l.GitHubID, &l.Name, &l.Color, &l.Description, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const milestoneColumns = `id, workspace_id, github_id, number, title, description, state, due_on, html_url, updated_at`

func scanMilestone(row rowScanner) (*types.Milestone, error) {
	var m types.Milestone
	if err := row.Scan(
		&m.ID, &m.WorkspaceID, &m.GitHubID, &m.Number, &m.Title, &m.Description,
		&m.State, &m.DueOn, &m.HTMLURL, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMilestone creates or updates the milestone keyed by (workspace, github_id)
// and fills in m.ID
func (s *Store) UpsertMilestone(ctx context.Context, m *types.Milestone) error {
	now := s.now()
	err := s.db.QueryRowContext(ctx, s.rebind(`
INSERT INTO milestones (workspace_id, github_id, number, title, description, state, due_on, html_url, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (workspace_id, github_id) DO UPDATE SET
  number = excluded.number,
  title = excluded.title,
  description = excluded.description,
  state = excluded.state,
  due_on = excluded.due_on,
  html_url = excluded.html_url,
  updated_at = excluded.updated_at
RETURNING id`),
		m.WorkspaceID, m.GitHubID, m.Number, m.Title, m.Description, m.State, m.DueOn, m.HTMLURL, now,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert milestone %d: %w", m.GitHubID, err)
	}
	m.UpdatedAt = now
	return nil
}

// GetOrCreateMilestone returns the stored milestone keyed by (workspace,
// github_id), inserting m only when absent. Existing rows are not modified.
func (s *Store) GetOrCreateMilestone(ctx context.Context, m *types.Milestone) (*types.Milestone, error) {
	if _, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO milestones (workspace_id, github_id, number, title, description, state, due_on, html_url, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (workspace_id, github_id) DO NOTHING`),
		m.WorkspaceID, m.GitHubID, m.Number, m.Title, m.Description, m.State, m.DueOn, m.HTMLURL, s.now(),
	); err != nil {
		return nil, fmt.Errorf("failed to insert milestone %d: %w", m.GitHubID, err)
	}
	return s.GetMilestoneByGitHubID(ctx, m.WorkspaceID, m.GitHubID)
}

// GetMilestoneByGitHubID loads the milestone keyed by (workspace, github_id)
func (s *Store) GetMilestoneByGitHubID(ctx context.Context, workspaceID, githubID int64) (*types.Milestone, error) {
	m, err := scanMilestone(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+milestoneColumns+` FROM milestones WHERE workspace_id = ? AND github_id = ?`),
		workspaceID, githubID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("milestone %d", githubID))
	}
	return m, nil
}

// DeleteMilestone removes the milestone keyed by (workspace, github_id), reporting how many rows went
func (s *Store) DeleteMilestone(ctx context.Context, workspaceID, githubID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM milestones WHERE workspace_id = ? AND github_id = ?`), workspaceID, githubID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete milestone %d: %w", githubID, err)
	}
	return res.RowsAffected()
}

const pullRequestColumns = `id, workspace_id, github_id, number, title, body, state, html_url, diff_url,
author_login, author_avatar_url, head_ref, head_sha, base_ref, base_sha, requested_reviewers, label_ids,
milestone_id, task_id, merged_at, merge_commit_sha, commits_count, additions, deletions, changed_files,
github_created_at, github_updated_at, github_closed_at`

func scanPullRequest(row rowScanner) (*types.PullRequest, error) {
	var (
		pr        types.PullRequest
		reviewers string
		labelIDs  string
	)
	if err := row.Scan(
		&pr.ID, &pr.WorkspaceID, &pr.GitHubID, &pr.Number, &pr.Title, &pr.Body, &pr.State, &pr.HTMLURL, &pr.DiffURL,
		&pr.AuthorLogin, &pr.AuthorAvatarURL, &pr.HeadRef, &pr.HeadSHA, &pr.BaseRef, &pr.BaseSHA, &reviewers, &labelIDs,
		&pr.MilestoneID, &pr.TaskID, &pr.MergedAt, &pr.MergeCommitSHA, &pr.CommitsCount, &pr.Additions, &pr.Deletions, &pr.ChangedFiles,
		&pr.GitHubCreatedAt, &pr.GitHubUpdatedAt, &pr.GitHubClosedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeJSON(reviewers, &pr.RequestedReviewers); err != nil {
		return nil, err
	}
	if err := decodeJSON(labelIDs, &pr.LabelIDs); err != nil {
		return nil, err
	}
	return &pr, nil
}

// UpsertPullRequest creates or updates the pull request keyed by
// (workspace, github_id) and fills in pr.ID. TaskID is only written on insert.
func (s *Store) UpsertPullRequest(ctx context.Context, pr *types.PullRequest) error {
	err := s.db.QueryRowContext(ctx, s.rebind(`
INSERT INTO pull_requests (
  workspace_id, github_id, number, title, body, state, html_url, diff_url,
  author_login, author_avatar_url, head_ref, head_sha, base_ref, base_sha, requested_reviewers, label_ids,
  milestone_id, task_id, merged_at, merge_commit_sha, commits_count, additions, deletions, changed_files,
  github_created_at, github_updated_at, github_closed_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (workspace_id, github_id) DO UPDATE SET
  number = excluded.number,
  title = excluded.title,
  body = excluded.body,
  state = excluded.state,
  html_url = excluded.html_url,
  diff_url = excluded.diff_url,
  author_login = excluded.author_login,
  author_avatar_url = excluded.author_avatar_url,
  head_ref = excluded.head_ref,
  head_sha = excluded.head_sha,
  base_ref = excluded.base_ref,
  base_sha = excluded.base_sha,
  requested_reviewers = excluded.requested_reviewers,
  label_ids = excluded.label_ids,
  milestone_id = excluded.milestone_id,
  merged_at = excluded.merged_at,
  merge_commit_sha = excluded.merge_commit_sha,
  commits_count = excluded.commits_count,
  additions = excluded.additions,
  deletions = excluded.deletions,
  changed_files = excluded.changed_files,
  github_created_at = excluded.github_created_at,
  github_updated_at = excluded.github_updated_at,
  github_closed_at = excluded.github_closed_at,
  updated_at = excluded.updated_at
RETURNING id`),
		pr.WorkspaceID, pr.GitHubID, pr.Number, pr.Title, pr.Body, string(pr.State), pr.HTMLURL, pr.DiffURL,
		pr.AuthorLogin, pr.AuthorAvatarURL, pr.HeadRef, pr.HeadSHA, pr.BaseRef, pr.BaseSHA,
		encodeStrings(pr.RequestedReviewers), encodeIDs(pr.LabelIDs),
		pr.MilestoneID, pr.TaskID, pr.MergedAt, pr.MergeCommitSHA, pr.CommitsCount, pr.Additions, pr.Deletions, pr.ChangedFiles,
		pr.GitHubCreatedAt, pr.GitHubUpdatedAt, pr.GitHubClosedAt, s.now(),
	).Scan(&pr.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert pull request #%d: %w", pr.Number, err)
	}
	return nil
}

// GetPullRequestByGitHubID loads the pull request keyed by (workspace, github_id)
func (s *Store) GetPullRequestByGitHubID(ctx context.Context, workspaceID, githubID int64) (*types.PullRequest, error) {
	pr, err := scanPullRequest(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+pullRequestColumns+` FROM pull_requests WHERE workspace_id = ? AND github_id = ?`),
		workspaceID, githubID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("pull request with github id %d", githubID))
	}
	return pr, nil
}

// GetPullRequestByNumber loads a workspace's pull request by number
func (s *Store) GetPullRequestByNumber(ctx context.Context, workspaceID int64, number int) (*types.PullRequest, error) {
	pr, err := scanPullRequest(s.db.QueryRowContext(ctx, s.rebind(`
SELECT `+pullRequestColumns+` FROM pull_requests
WHERE workspace_id = ? AND number = ?
ORDER BY id LIMIT 1`),
		workspaceID, number))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("pull request #%d", number))
	}
	return pr, nil
}

const commitColumns = `id, workspace_id, pull_request_id, sha, message, author_login, author_name, author_email,
url, branch, added_files, modified_files, removed_files, committed_at`

// InsertCommit stores c unless a commit with the same sha exists.
// created reports whether a row was inserted.
func (s *Store) InsertCommit(ctx context.Context, c *types.Commit) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO commits (
  workspace_id, pull_request_id, sha, message, author_login, author_name, author_email,
  url, branch, added_files, modified_files, removed_files, committed_at, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (sha) DO NOTHING`),
		c.WorkspaceID, c.PullRequestID, c.SHA, c.Message, c.AuthorLogin, c.AuthorName, c.AuthorEmail,
		c.URL, c.Branch, encodeStrings(c.AddedFiles), encodeStrings(c.ModifiedFiles), encodeStrings(c.RemovedFiles),
		c.Timestamp, s.now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert commit %s: %w", c.SHA, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// GetCommit loads a commit by sha
func (s *Store) GetCommit(ctx context.Context, sha string) (*types.Commit, error) {
	var (
		c                       types.Commit
		added, modified, remove string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+commitColumns+` FROM commits WHERE sha = ?`), sha).Scan(
		&c.ID, &c.WorkspaceID, &c.PullRequestID, &c.SHA, &c.Message, &c.AuthorLogin, &c.AuthorName, &c.AuthorEmail,
		&c.URL, &c.Branch, &added, &modified, &remove, &c.Timestamp,
	)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("commit %s", sha))
	}

	for _, col := range []struct {
		raw string
		dst *[]string
	}{{added, &c.AddedFiles}, {modified, &c.ModifiedFiles}, {remove, &c.RemovedFiles}} {
		if err := decodeJSON(col.raw, col.dst); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

const reviewColumns = `id, pull_request_id, github_id, reviewer_login, reviewer_avatar_url, state, body, html_url, commit_sha, submitted_at`

func scanReview(row rowScanner) (*types.Review, error) {
	var r types.Review
	if err := row.Scan(
		&r.ID, &r.PullRequestID, &r.GitHubID, &r.ReviewerLogin, &r.ReviewerAvatarURL,
		&r.State, &r.Body, &r.HTMLURL, &r.CommitSHA, &r.SubmittedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertReview creates or updates the review keyed by (pull_request, github_id) and fills in r.ID
func (s *Store) UpsertReview(ctx context.Context, r *types.Review) error {
	err := s.db.QueryRowContext(ctx, s.rebind(`
INSERT INTO reviews (pull_request_id, github_id, reviewer_login, reviewer_avatar_url, state, body, html_url, commit_sha, submitted_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (pull_request_id, github_id) DO UPDATE SET
  reviewer_login = excluded.reviewer_login,
  reviewer_avatar_url = excluded.reviewer_avatar_url,
  state = excluded.state,
  body = excluded.body,
  html_url = excluded.html_url,
  commit_sha = excluded.commit_sha,
  submitted_at = excluded.submitted_at,
  updated_at = excluded.updated_at
RETURNING id`),
		r.PullRequestID, r.GitHubID, r.ReviewerLogin, r.ReviewerAvatarURL, string(r.State),
		r.Body, r.HTMLURL, r.CommitSHA, r.SubmittedAt, s.now(),
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert review %d: %w", r.GitHubID, err)
	}
	return nil
}

// GetReviewByGitHubID loads the review keyed by (pull_request, github_id)
func (s *Store) GetReviewByGitHubID(ctx context.Context, pullRequestID, githubID int64) (*types.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+reviewColumns+` FROM reviews WHERE pull_request_id = ? AND github_id = ?`),
		pullRequestID, githubID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("review %d", githubID))
	}
	return r, nil
}

const commentColumns = `id, pull_request_id, review_id, github_id, comment_type, author_login, author_avatar_url,
body, html_url, diff_hunk, path, position, commit_sha, github_created_at, github_updated_at`

func scanComment(row rowScanner) (*types.Comment, error) {
	var c types.Comment
	if err := row.Scan(
		&c.ID, &c.PullRequestID, &c.ReviewID, &c.GitHubID, &c.Type, &c.AuthorLogin, &c.AuthorAvatarURL,
		&c.Body, &c.HTMLURL, &c.DiffHunk, &c.Path, &c.Position, &c.CommitSHA, &c.GitHubCreatedAt, &c.GitHubUpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertComment creates or updates the comment keyed by (pull_request,
// github_id, comment_type) and fills in c.ID
func (s *Store) UpsertComment(ctx context.Context, c *types.Comment) error {
	err := s.db.QueryRowContext(ctx, s.rebind(`
INSERT INTO comments (
  pull_request_id, review_id, github_id, comment_type, author_login, author_avatar_url,
  body, html_url, diff_hunk, path, position, commit_sha, github_created_at, github_updated_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (pull_request_id, github_id, comment_type) DO UPDATE SET
  review_id = excluded.review_id,
  author_login = excluded.author_login,
  author_avatar_url = excluded.author_avatar_url,
  body = excluded.body,
  html_url = excluded.html_url,
  diff_hunk = excluded.diff_hunk,
  path = excluded.path,
  position = excluded.position,
  commit_sha = excluded.commit_sha,
  github_created_at = excluded.github_created_at,
  github_updated_at = excluded.github_updated_at,
  updated_at = excluded.updated_at
RETURNING id`),
		c.PullRequestID, c.ReviewID, c.GitHubID, string(c.Type), c.AuthorLogin, c.AuthorAvatarURL,
		c.Body, c.HTMLURL, c.DiffHunk, c.Path, c.Position, c.CommitSHA, c.GitHubCreatedAt, c.GitHubUpdatedAt, s.now(),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert %s comment %d: %w", c.Type, c.GitHubID, err)
	}
	return nil
}

// DeleteComment removes the comment keyed by (pull_request, github_id, comment_type)
func (s *Store) DeleteComment(ctx context.Context, pullRequestID, githubID int64, commentType types.CommentType) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
DELETE FROM comments WHERE pull_request_id = ? AND github_id = ? AND comment_type = ?`),
		pullRequestID, githubID, string(commentType))
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s comment %d: %w", commentType, githubID, err)
	}
	return res.RowsAffected()
}

// ListComments returns a pull request's comments ordered by id
func (s *Store) ListComments(ctx context.Context, pullRequestID int64) ([]types.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+commentColumns+` FROM comments WHERE pull_request_id = ? ORDER BY id`), pullRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var out []types.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
