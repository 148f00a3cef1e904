package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/clintrovert/tasksync/internal/checkbox"
	"github.com/clintrovert/tasksync/pkg/types"
)

const taskColumns = `id, feature_id, title, description, status, priority, checkbox_index, completed_by_commit, created_at, updated_at`

// taskOrder puts indexed tasks first in index order, then the rest by age
const taskOrder = `ORDER BY checkbox_index IS NULL, checkbox_index, created_at, id`

func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	if err := row.Scan(
		&t.ID, &t.FeatureID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.CheckboxIndex, &t.CompletedByCommit, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts t and fills in its ID and timestamps
func (s *Store) CreateTask(ctx context.Context, t *types.Task) error {
	return s.createTask(ctx, s.db, t)
}

func (s *Store) createTask(ctx context.Context, q queryer, t *types.Task) error {
	if err := normalizeTitle(t); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = types.TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = types.TaskPriorityMedium
	}

	now := s.now()
	err := q.QueryRowContext(ctx, s.rebind(`
INSERT INTO tasks (feature_id, title, description, status, priority, checkbox_index, completed_by_commit, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		t.FeatureID, t.Title, t.Description, string(t.Status), string(t.Priority),
		t.CheckboxIndex, t.CompletedByCommit, now, now,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// normalizeTitle trims t's title. Stored titles are exactly what a rendered
// checkbox line parses back to, so empty and multi-line titles are refused.
func normalizeTitle(t *types.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" || strings.ContainsAny(t.Title, "\r\n") {
		return fmt.Errorf("task title %q: %w", t.Title, ErrInvalidTitle)
	}
	return nil
}

// GetTask loads a task by id
func (s *Store) GetTask(ctx context.Context, id int64) (*types.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("task %d", id))
	}
	return t, nil
}

// ListTasks returns a feature's tasks in checkbox order
func (s *Store) ListTasks(ctx context.Context, featureID int64) ([]types.Task, error) {
	return s.listTasks(ctx, s.db, featureID)
}

func (s *Store) listTasks(ctx context.Context, q queryer, featureID int64) ([]types.Task, error) {
	rows, err := q.QueryContext(ctx,
		s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE feature_id = ? `+taskOrder), featureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTask writes a task's title, description, status and priority
func (s *Store) UpdateTask(ctx context.Context, t *types.Task) error {
	if err := normalizeTitle(t); err != nil {
		return err
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, s.rebind(`
UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, updated_at = ?
WHERE id = ?`),
		t.Title, t.Description, string(t.Status), string(t.Priority), now, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", t.ID, err)
	}
	if err := requireRow(res, fmt.Sprintf("task %d", t.ID)); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// OpenTaskTitles returns the distinct titles of the workspace's tasks that are not done
func (s *Store) OpenTaskTitles(ctx context.Context, workspaceID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT DISTINCT t.title FROM tasks t
JOIN features f ON f.id = t.feature_id
WHERE f.workspace_id = ? AND t.status <> ?
ORDER BY t.title`),
		workspaceID, string(types.TaskStatusDone))
	if err != nil {
		return nil, fmt.Errorf("failed to list open tasks: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan task title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// CompleteTasksByTitle marks every todo or in-progress task titled title in
// the workspace as done by commit. It returns the number of tasks changed.
func (s *Store) CompleteTasksByTitle(ctx context.Context, workspaceID int64, title, commit string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
UPDATE tasks SET status = ?, completed_by_commit = ?, updated_at = ?
WHERE title = ? AND status IN (?, ?)
AND feature_id IN (SELECT id FROM features WHERE workspace_id = ?)`),
		string(types.TaskStatusDone), commit, s.now(),
		title, string(types.TaskStatusTodo), string(types.TaskStatusInProgress),
		workspaceID)
	if err != nil {
		return 0, fmt.Errorf("failed to complete tasks titled %q: %w", title, err)
	}
	return res.RowsAffected()
}

// CompleteFeatureTasksByNumber marks every unfinished task of the features of
// featureType mirroring number as done
func (s *Store) CompleteFeatureTasksByNumber(ctx context.Context, workspaceID int64, number int, featureType types.FeatureType) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
UPDATE tasks SET status = ?, updated_at = ?
WHERE status <> ?
AND feature_id IN (SELECT id FROM features WHERE workspace_id = ? AND github_number = ? AND type = ?)`),
		string(types.TaskStatusDone), s.now(), string(types.TaskStatusDone),
		workspaceID, number, string(featureType))
	if err != nil {
		return 0, fmt.Errorf("failed to complete tasks of #%d: %w", number, err)
	}
	return res.RowsAffected()
}

// SyncResult counts the task writes of a checkbox sync
type SyncResult struct {
	Created int
	Updated int
}

// SyncFeatureTasks reconciles a feature's tasks against parsed checkbox
// items. The read and the writes share one transaction, and on PostgreSQL the
// feature row is locked, so concurrent syncs of one feature serialize.
func (s *Store) SyncFeatureTasks(ctx context.Context, featureID int64, items []checkbox.Item) (SyncResult, error) {
	var result SyncResult

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if s.driver == DriverPostgres {
			var id int64
			if err := tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM features WHERE id = ? FOR UPDATE`), featureID).Scan(&id); err != nil {
				return notFound(err, fmt.Sprintf("feature %d", featureID))
			}
		}

		tasks, err := s.listTasks(ctx, tx, featureID)
		if err != nil {
			return err
		}

		plan := checkbox.Reconcile(tasks, items)
		now := s.now()

		for _, u := range plan.Updates {
			if _, err := tx.ExecContext(ctx, s.rebind(`
UPDATE tasks SET checkbox_index = ?, status = ?, updated_at = ? WHERE id = ?`),
				u.Index, string(u.Status), now, u.TaskID); err != nil {
				return fmt.Errorf("failed to update task %d: %w", u.TaskID, err)
			}
		}

		for _, c := range plan.Creates {
			index := c.Index
			task := &types.Task{
				FeatureID:     featureID,
				Title:         c.Title,
				Status:        c.Status,
				Priority:      types.TaskPriorityMedium,
				CheckboxIndex: &index,
			}
			if err := s.createTask(ctx, tx, task); err != nil {
				return err
			}
		}

		result = SyncResult{Created: len(plan.Creates), Updated: len(plan.Updates)}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	return result, nil
}
