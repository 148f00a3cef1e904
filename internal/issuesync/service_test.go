package issuesync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

type fakeGitHub struct {
	created []string
	updates map[int]string
	err     error
}

func (f *fakeGitHub) CreateIssue(_ context.Context, _ *types.Workspace, title, body string) (*ghclient.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, title+"|"+body)
	return &ghclient.Issue{ID: 4242, Number: 12, HTMLURL: "https://github.com/acme/widgets/issues/12"}, nil
}

func (f *fakeGitHub) UpdateIssueBody(_ context.Context, _ *types.Workspace, number int, body string) error {
	if f.err != nil {
		return f.err
	}
	if f.updates == nil {
		f.updates = make(map[int]string)
	}
	f.updates[number] = body
	return nil
}

func setup(t *testing.T, token string) (*store.Store, *types.Workspace, *fakeGitHub, *Service) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	st, err := store.Open(context.Background(), store.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ws := &types.Workspace{RepoOwner: "acme", RepoName: "widgets", GitHubToken: token}
	require.NoError(t, st.CreateWorkspace(context.Background(), ws))

	gh := &fakeGitHub{}
	return st, ws, gh, NewService(st, gh, nil, logger)
}

func TestPublish(t *testing.T) {
	st, ws, gh, svc := setup(t, "tok")
	ctx := context.Background()

	f := &types.Feature{WorkspaceID: ws.ID, Name: "Login", Description: "Sign users in."}
	require.NoError(t, st.CreateFeature(ctx, f))
	first := &types.Task{FeatureID: f.ID, Title: "Form"}
	second := &types.Task{FeatureID: f.ID, Title: "Button", Status: types.TaskStatusDone}
	require.NoError(t, st.CreateTask(ctx, first))
	require.NoError(t, st.CreateTask(ctx, second))

	published, err := svc.Publish(ctx, f.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"Login|Sign users in.\n\n- [ ] Form\n- [x] Button"}, gh.created)
	assert.Equal(t, types.FeatureTypeIssue, published.Type)
	assert.Equal(t, 12, published.GitHubNumber)
	assert.Equal(t, int64(4242), published.GitHubID)

	tasks, err := st.ListTasks(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 0, *tasks[0].CheckboxIndex)
	assert.Equal(t, "Form", tasks[0].Title)
	assert.Equal(t, 1, *tasks[1].CheckboxIndex)

	_, err = svc.Publish(ctx, f.ID)
	assert.ErrorIs(t, err, ErrAlreadyLinked)
}

func TestPublish_GitHubFailureKeepsFeatureLocal(t *testing.T) {
	st, ws, gh, svc := setup(t, "tok")
	ctx := context.Background()
	gh.err = errors.New("502 bad gateway")

	f := &types.Feature{WorkspaceID: ws.ID, Name: "Login"}
	require.NoError(t, st.CreateFeature(ctx, f))

	_, err := svc.Publish(ctx, f.ID)
	require.Error(t, err)

	got, err := st.GetFeature(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FeatureTypeLocal, got.Type)
}

func TestPushBody(t *testing.T) {
	st, ws, gh, svc := setup(t, "tok")
	ctx := context.Background()

	f := &types.Feature{
		WorkspaceID: ws.ID, Name: "Login", Description: "Intro\n\n- [ ] Form",
		Type: types.FeatureTypeIssue, GitHubNumber: 3, GitHubID: 303,
	}
	require.NoError(t, st.CreateFeature(ctx, f))
	task := &types.Task{FeatureID: f.ID, Title: "Form", Status: types.TaskStatusDone, CheckboxIndex: new(int)}
	require.NoError(t, st.CreateTask(ctx, task))

	require.NoError(t, svc.PushBody(ctx, f.ID))
	assert.Equal(t, "Intro\n\n- [x] Form", gh.updates[3])
}

func TestPushBody_SkipsUnlinkedAndTokenless(t *testing.T) {
	st, ws, gh, svc := setup(t, "")
	ctx := context.Background()

	local := &types.Feature{WorkspaceID: ws.ID, Name: "Local"}
	require.NoError(t, st.CreateFeature(ctx, local))
	require.NoError(t, svc.PushBody(ctx, local.ID))

	linked := &types.Feature{WorkspaceID: ws.ID, Name: "Linked", Type: types.FeatureTypeIssue, GitHubNumber: 4, GitHubID: 404}
	require.NoError(t, st.CreateFeature(ctx, linked))
	require.NoError(t, svc.PushBody(ctx, linked.ID))

	assert.Empty(t, gh.updates)
}

func TestPushBody_UnknownFeature(t *testing.T) {
	_, _, _, svc := setup(t, "tok")

	err := svc.PushBody(context.Background(), 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
