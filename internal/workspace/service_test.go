package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/inference"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

type fakeGitHub struct {
	registerErr   error
	unregisterErr error
	registered    []string
	unregistered  []string
	summary       string
}

func (f *fakeGitHub) GetRepository(_ context.Context, ws *types.Workspace) (*ghclient.Repository, error) {
	return &ghclient.Repository{HTMLURL: "https://github.com/" + ws.FullName(), DefaultBranch: "main"}, nil
}

func (f *fakeGitHub) RegisterWebhook(_ context.Context, _ *types.Workspace, url, secret string) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.registered = append(f.registered, url+"|"+secret)
	return "31337", nil
}

func (f *fakeGitHub) UnregisterWebhook(_ context.Context, ws *types.Workspace) error {
	f.unregistered = append(f.unregistered, ws.WebhookID)
	return f.unregisterErr
}

func (f *fakeGitHub) FetchRepoSummary(_ context.Context, _ *types.Workspace) (string, error) {
	return f.summary, nil
}

type fakePlanner struct {
	sources []string
	drafts  []inference.FeatureDraft
}

func (f *fakePlanner) DraftFeatures(_ context.Context, source string) ([]inference.FeatureDraft, error) {
	f.sources = append(f.sources, source)
	return f.drafts, nil
}

func setup(t *testing.T, cfg Config) (*store.Store, *fakeGitHub, *fakePlanner, *Service) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	st, err := store.Open(context.Background(), store.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	gh := &fakeGitHub{}
	planner := &fakePlanner{}
	return st, gh, planner, NewService(cfg, st, gh, planner, logger)
}

func TestCreate_RegistersWebhook(t *testing.T) {
	st, gh, _, svc := setup(t, Config{PublicWebhookURL: "https://tasksync.example.com/webhooks/github", WebhookSecret: "s3cret"})
	ctx := context.Background()

	ws, err := svc.Create(ctx, &types.Workspace{RepoOwner: " acme ", RepoName: "widgets", GitHubToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", ws.Name)
	assert.Equal(t, "31337", ws.WebhookID)
	assert.Equal(t, []string{"https://tasksync.example.com/webhooks/github|s3cret"}, gh.registered)

	stored, err := st.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "31337", stored.WebhookID)
	assert.Equal(t, "https://github.com/acme/widgets", stored.RepoURL)
}

func TestCreate_WebhookFailureKeepsWorkspace(t *testing.T) {
	st, gh, _, svc := setup(t, Config{PublicWebhookURL: "https://x/webhooks/github", WebhookSecret: "s"})
	gh.registerErr = errors.New("403 forbidden")

	ws, err := svc.Create(context.Background(), &types.Workspace{RepoOwner: "acme", RepoName: "widgets", GitHubToken: "tok"})
	require.NoError(t, err)
	assert.Empty(t, ws.WebhookID)

	_, err = st.GetWorkspaceByRepo(context.Background(), "acme", "widgets")
	require.NoError(t, err)
}

func TestCreate_WithoutPublicURL(t *testing.T) {
	_, gh, _, svc := setup(t, Config{})

	_, err := svc.Create(context.Background(), &types.Workspace{RepoOwner: "acme", RepoName: "widgets", GitHubToken: "tok"})
	require.NoError(t, err)
	assert.Empty(t, gh.registered)
}

func TestCreate_Validation(t *testing.T) {
	_, _, _, svc := setup(t, Config{})

	_, err := svc.Create(context.Background(), &types.Workspace{RepoOwner: "acme"})
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	st, gh, _, svc := setup(t, Config{PublicWebhookURL: "https://x/webhooks/github", WebhookSecret: "s"})
	ctx := context.Background()

	ws, err := svc.Create(ctx, &types.Workspace{RepoOwner: "acme", RepoName: "widgets", GitHubToken: "tok"})
	require.NoError(t, err)

	gh.unregisterErr = errors.New("boom")
	require.NoError(t, svc.Delete(ctx, ws.ID))
	assert.Equal(t, []string{"31337"}, gh.unregistered)

	_, err = st.GetWorkspace(ctx, ws.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, ws.ID), store.ErrNotFound)
}

func TestBootstrap(t *testing.T) {
	st, gh, planner, svc := setup(t, Config{})
	ctx := context.Background()

	ws, err := svc.Create(ctx, &types.Workspace{RepoOwner: "acme", RepoName: "widgets", GitHubToken: "tok"})
	require.NoError(t, err)

	gh.summary = "README:\nA widget shop"
	planner.drafts = []inference.FeatureDraft{
		{
			Name:        "Checkout",
			Description: "Let users pay.",
			Tasks: []inference.TaskDraft{
				{Title: "Cart page", Priority: types.TaskPriorityHigh},
				{Title: "Receipts", Priority: types.TaskPriorityLow},
			},
		},
	}

	features, err := svc.Bootstrap(ctx, ws.ID, "")
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, []string{"README:\nA widget shop"}, planner.sources)

	tasks, err := st.ListTasks(ctx, features[0].ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Cart page", tasks[0].Title)
	assert.Equal(t, types.TaskPriorityHigh, tasks[0].Priority)
	assert.Nil(t, tasks[0].CheckboxIndex)

	_, err = svc.Bootstrap(ctx, ws.ID, "An online store")
	require.NoError(t, err)
	assert.Equal(t, "An online store", planner.sources[1])
}
