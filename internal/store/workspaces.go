package store

import (
	"context"
	"fmt"

	"github.com/clintrovert/tasksync/pkg/types"
)

const workspaceColumns = `id, name, repo_owner, repo_name, repo_url, github_token, webhook_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (*types.Workspace, error) {
	var ws types.Workspace
	if err := row.Scan(
		&ws.ID, &ws.Name, &ws.RepoOwner, &ws.RepoName, &ws.RepoURL,
		&ws.GitHubToken, &ws.WebhookID, &ws.CreatedAt, &ws.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ws, nil
}

// CreateWorkspace inserts ws and fills in its ID and timestamps
func (s *Store) CreateWorkspace(ctx context.Context, ws *types.Workspace) error {
	now := s.now()
	err := s.db.QueryRowContext(ctx, s.rebind(`
INSERT INTO workspaces (name, repo_owner, repo_name, repo_url, github_token, webhook_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		ws.Name, ws.RepoOwner, ws.RepoName, ws.RepoURL, ws.GitHubToken, ws.WebhookID, now, now,
	).Scan(&ws.ID)
	if err != nil {
		return fmt.Errorf("failed to create workspace %s: %w", ws.FullName(), err)
	}

	ws.CreatedAt = now
	ws.UpdatedAt = now
	return nil
}

// GetWorkspace loads a workspace by id
func (s *Store) GetWorkspace(ctx context.Context, id int64) (*types.Workspace, error) {
	ws, err := scanWorkspace(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`), id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("workspace %d", id))
	}
	return ws, nil
}

// GetWorkspaceByRepo loads the workspace linked to owner/name
func (s *Store) GetWorkspaceByRepo(ctx context.Context, owner, name string) (*types.Workspace, error) {
	ws, err := scanWorkspace(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+workspaceColumns+` FROM workspaces WHERE repo_owner = ? AND repo_name = ?`), owner, name))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("workspace %s/%s", owner, name))
	}
	return ws, nil
}

// ListWorkspaces returns all workspaces ordered by id
func (s *Store) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []types.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		out = append(out, *ws)
	}
	return out, rows.Err()
}

// SetWorkspaceWebhook records the registered hook id; empty clears it
func (s *Store) SetWorkspaceWebhook(ctx context.Context, id int64, webhookID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE workspaces SET webhook_id = ?, updated_at = ? WHERE id = ?`),
		webhookID, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update workspace %d webhook: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("workspace %d", id))
}

// SetWorkspaceRepoURL records the repository's html url
func (s *Store) SetWorkspaceRepoURL(ctx context.Context, id int64, repoURL string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE workspaces SET repo_url = ?, updated_at = ? WHERE id = ?`),
		repoURL, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update workspace %d repo url: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("workspace %d", id))
}

// DeleteWorkspace removes a workspace and, through cascades, everything it owns
func (s *Store) DeleteWorkspace(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM workspaces WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("workspace %d", id))
}
