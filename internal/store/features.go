package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/pkg/types"
)

const featureColumns = `id, workspace_id, name, description, type, state, github_number, github_id, html_url, created_at, updated_at`

func scanFeature(row rowScanner) (*types.Feature, error) {
	var (
		f        types.Feature
		number   sql.NullInt64
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&f.ID, &f.WorkspaceID, &f.Name, &f.Description, &f.Type, &f.State,
		&number, &githubID, &f.HTMLURL, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.GitHubNumber = int(number.Int64)
	f.GitHubID = githubID.Int64
	return &f, nil
}

// CreateFeature inserts f and fills in its ID and timestamps
func (s *Store) CreateFeature(ctx context.Context, f *types.Feature) error {
	return s.createFeature(ctx, s.db, f)
}

func (s *Store) createFeature(ctx context.Context, q queryer, f *types.Feature) error {
	if f.Type == "" {
		f.Type = types.FeatureTypeLocal
	}
	if f.State == "" {
		f.State = types.FeatureStateOpen
	}

	now := s.now()
	err := q.QueryRowContext(ctx, s.rebind(`
INSERT INTO features (workspace_id, name, description, type, state, github_number, github_id, html_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		f.WorkspaceID, f.Name, f.Description, string(f.Type), string(f.State),
		nullInt64(int64(f.GitHubNumber)), nullInt64(f.GitHubID), f.HTMLURL, now, now,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to create feature: %w", err)
	}

	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

// GetOrCreateFeature returns the feature keyed by (workspace, github_id),
// inserting f when none exists. created reports whether f was inserted; in
// either case the returned feature is the stored row.
func (s *Store) GetOrCreateFeature(ctx context.Context, f *types.Feature) (*types.Feature, bool, error) {
	if f.GitHubID == 0 {
		return nil, false, fmt.Errorf("get-or-create needs a github id")
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO features (workspace_id, name, description, type, state, github_number, github_id, html_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (workspace_id, github_id) DO NOTHING`),
		f.WorkspaceID, f.Name, f.Description, string(f.Type), string(f.State),
		nullInt64(int64(f.GitHubNumber)), f.GitHubID, f.HTMLURL, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert feature: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	stored, err := s.GetFeatureByGitHubID(ctx, f.WorkspaceID, f.GitHubID)
	if err != nil {
		return nil, false, err
	}
	return stored, n == 1, nil
}

// GetFeature loads a feature by id
func (s *Store) GetFeature(ctx context.Context, id int64) (*types.Feature, error) {
	f, err := scanFeature(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+featureColumns+` FROM features WHERE id = ?`), id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("feature %d", id))
	}
	return f, nil
}

// GetFeatureByGitHubID loads the feature mirroring the issue or pull request with githubID
func (s *Store) GetFeatureByGitHubID(ctx context.Context, workspaceID, githubID int64) (*types.Feature, error) {
	f, err := scanFeature(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+featureColumns+` FROM features WHERE workspace_id = ? AND github_id = ?`),
		workspaceID, githubID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("feature with github id %d", githubID))
	}
	return f, nil
}

// GetFeatureByNumber loads the feature of the given type mirroring issue or pull request number
func (s *Store) GetFeatureByNumber(ctx context.Context, workspaceID int64, number int, featureType types.FeatureType) (*types.Feature, error) {
	f, err := scanFeature(s.db.QueryRowContext(ctx, s.rebind(`
SELECT `+featureColumns+` FROM features
WHERE workspace_id = ? AND github_number = ? AND type = ?
ORDER BY id LIMIT 1`),
		workspaceID, number, string(featureType)))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("%s feature #%d", featureType, number))
	}
	return f, nil
}

// ListFeatures returns the features of a workspace ordered by id
func (s *Store) ListFeatures(ctx context.Context, workspaceID int64) ([]types.Feature, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+featureColumns+` FROM features WHERE workspace_id = ? ORDER BY id`), workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}
	defer rows.Close()

	var out []types.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feature: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// UpdateFeatureContent replaces a feature's name and description
func (s *Store) UpdateFeatureContent(ctx context.Context, id int64, name, description string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE features SET name = ?, description = ?, updated_at = ? WHERE id = ?`),
		name, description, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update feature %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("feature %d", id))
}

// SetFeatureStateByGitHubID sets the state of the feature mirroring githubID.
// It returns the number of features changed, zero when none is linked.
func (s *Store) SetFeatureStateByGitHubID(ctx context.Context, workspaceID, githubID int64, state types.FeatureState) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE features SET state = ?, updated_at = ? WHERE workspace_id = ? AND github_id = ?`),
		string(state), s.now(), workspaceID, githubID)
	if err != nil {
		return 0, fmt.Errorf("failed to set feature state: %w", err)
	}
	return res.RowsAffected()
}

// SetFeatureStateByNumber sets the state of the features of featureType mirroring number
func (s *Store) SetFeatureStateByNumber(ctx context.Context, workspaceID int64, number int, featureType types.FeatureType, state types.FeatureState) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
UPDATE features SET state = ?, updated_at = ?
WHERE workspace_id = ? AND github_number = ? AND type = ?`),
		string(state), s.now(), workspaceID, number, string(featureType))
	if err != nil {
		return 0, fmt.Errorf("failed to set feature state: %w", err)
	}
	return res.RowsAffected()
}

// FeatureLink is the GitHub issue a local feature was published as
type FeatureLink struct {
	Number   int
	GitHubID int64
	HTMLURL  string
}

// LinkFeature turns a local feature into an issue feature and gives
// taskOrder[i] checkbox index i, matching the body that was published. A
// feature the issues webhook already created for the same issue is replaced
// by the local one.
func (s *Store) LinkFeature(ctx context.Context, featureID int64, link FeatureLink, taskOrder []int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var workspaceID int64
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT workspace_id FROM features WHERE id = ?`), featureID).Scan(&workspaceID); err != nil {
			return notFound(err, fmt.Sprintf("feature %d", featureID))
		}

		res, err := tx.ExecContext(ctx, s.rebind(`
DELETE FROM features WHERE workspace_id = ? AND github_id = ? AND id <> ?`),
			workspaceID, link.GitHubID, featureID)
		if err != nil {
			return fmt.Errorf("failed to remove duplicate of feature %d: %w", featureID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Info("replaced webhook-created feature with published feature",
				zap.Int64("feature_id", featureID),
				zap.Int64("github_id", link.GitHubID),
			)
		}

		now := s.now()
		res, err = tx.ExecContext(ctx, s.rebind(`
UPDATE features
SET type = ?, state = ?, github_number = ?, github_id = ?, html_url = ?, updated_at = ?
WHERE id = ?`),
			string(types.FeatureTypeIssue), string(types.FeatureStateOpen),
			link.Number, link.GitHubID, link.HTMLURL, now, featureID)
		if err != nil {
			return fmt.Errorf("failed to link feature %d: %w", featureID, err)
		}
		if err := requireRow(res, fmt.Sprintf("feature %d", featureID)); err != nil {
			return err
		}

		// Clear first so reassignment never trips the (feature, index) constraint.
		if _, err := tx.ExecContext(ctx,
			s.rebind(`UPDATE tasks SET checkbox_index = NULL WHERE feature_id = ?`), featureID); err != nil {
			return fmt.Errorf("failed to clear checkbox indices: %w", err)
		}

		for i, taskID := range taskOrder {
			if _, err := tx.ExecContext(ctx, s.rebind(`
UPDATE tasks SET checkbox_index = ?, updated_at = ? WHERE id = ? AND feature_id = ?`),
				i, now, taskID, featureID); err != nil {
				return fmt.Errorf("failed to index task %d: %w", taskID, err)
			}
		}
		return nil
	})
}
