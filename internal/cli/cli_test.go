package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/clintrovert/tasksync/internal/issuesync"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd(zaptest.NewLogger(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db-driver", store.DriverSQLite, "--database-url", dsn}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWorkspaceLifecycle(t *testing.T) {
	t.Setenv("PUBLIC_WEBHOOK_URL", "")
	dsn := "file:" + filepath.Join(t.TempDir(), "cli.db")

	out, err := run(t, dsn, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")

	out, err = run(t, dsn, "workspace", "create", "--owner", "acme", "--repo", "widgets")
	require.NoError(t, err)
	assert.Contains(t, out, "Created workspace 1 for acme/widgets")

	out, err = run(t, dsn, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "acme/widgets")

	out, err = run(t, dsn, "workspace", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted workspace 1")

	_, err = run(t, dsn, "workspace", "delete", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkspaceCreate_RequiresRepo(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "cli.db")

	_, err := run(t, dsn, "workspace", "create", "--owner", "acme")
	assert.ErrorContains(t, err, "--repo is required")
}

func TestFeaturePublish_NoToken(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	dsn := "file:" + filepath.Join(t.TempDir(), "cli.db")
	logger := zaptest.NewLogger(t)

	st, err := store.Open(context.Background(), store.DriverSQLite, dsn, logger)
	require.NoError(t, err)
	ws := &types.Workspace{Name: "Widgets", RepoOwner: "acme", RepoName: "widgets"}
	require.NoError(t, st.CreateWorkspace(context.Background(), ws))
	feature := &types.Feature{WorkspaceID: ws.ID, Name: "Auth"}
	require.NoError(t, st.CreateFeature(context.Background(), feature))
	require.NoError(t, st.Close())

	_, err = run(t, dsn, "feature", "publish", "1")
	assert.ErrorContains(t, err, "workspace has no github token")

	_, err = run(t, dsn, "feature", "publish", "x")
	assert.ErrorContains(t, err, "invalid feature id")
}

func TestFeaturePublish_TemporalRejectsLinkedFeature(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "localhost:7233")
	dsn := "file:" + filepath.Join(t.TempDir(), "cli.db")
	logger := zaptest.NewLogger(t)

	st, err := store.Open(context.Background(), store.DriverSQLite, dsn, logger)
	require.NoError(t, err)
	ws := &types.Workspace{Name: "Widgets", RepoOwner: "acme", RepoName: "widgets"}
	require.NoError(t, st.CreateWorkspace(context.Background(), ws))
	feature := &types.Feature{WorkspaceID: ws.ID, Name: "Auth", Type: types.FeatureTypeIssue, GitHubNumber: 4, GitHubID: 404}
	require.NoError(t, st.CreateFeature(context.Background(), feature))
	require.NoError(t, st.Close())

	_, err = run(t, dsn, "feature", "publish", "1")
	assert.ErrorIs(t, err, issuesync.ErrAlreadyLinked)

	_, err = run(t, dsn, "feature", "publish", "2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
