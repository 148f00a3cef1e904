package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/clintrovert/tasksync/internal/metrics"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/pkg/types"
)

const testSecret = "s3cret"

type fakeInferrer struct {
	mu     sync.Mutex
	titles []string
	err    error
	calls  [][]string
}

func (f *fakeInferrer) CompletedTasks(_ context.Context, snippets, _ []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, snippets)
	return f.titles, f.err
}

type testEnv struct {
	store      *store.Store
	inferrer   *fakeInferrer
	dispatcher *Dispatcher
	ws         *types.Workspace
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zaptest.NewLogger(t)
	st, err := store.Open(context.Background(), store.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ws := &types.Workspace{Name: "Widgets", RepoOwner: "acme", RepoName: "widgets", GitHubToken: "tok"}
	require.NoError(t, st.CreateWorkspace(context.Background(), ws))

	inferrer := &fakeInferrer{}
	return &testEnv{
		store:      st,
		inferrer:   inferrer,
		dispatcher: NewDispatcher(testSecret, st, inferrer, metrics.New(), logger),
		ws:         ws,
	}
}

func repository() map[string]any {
	return map[string]any{"name": "widgets", "owner": map[string]any{"login": "acme"}}
}

func (e *testEnv) deliver(t *testing.T, event string, payload map[string]any) (Result, error) {
	t.Helper()

	if _, ok := payload["repository"]; !ok {
		payload["repository"] = repository()
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	return e.dispatcher.Dispatch(context.Background(), Delivery{
		Event:      event,
		DeliveryID: "delivery-1",
		Signature:  sign([]byte(testSecret), body),
		Body:       body,
	})
}

func (e *testEnv) mustDeliver(t *testing.T, event string, payload map[string]any) Result {
	t.Helper()

	result, err := e.deliver(t, event, payload)
	require.NoError(t, err)
	return result
}

func (e *testEnv) createFeature(t *testing.T, f *types.Feature, tasks ...*types.Task) *types.Feature {
	t.Helper()

	f.WorkspaceID = e.ws.ID
	require.NoError(t, e.store.CreateFeature(context.Background(), f))
	for _, task := range tasks {
		task.FeatureID = f.ID
		require.NoError(t, e.store.CreateTask(context.Background(), task))
	}
	return f
}

func TestDispatch_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"action":"created","label":{"id":1,"name":"bug"},"repository":{"name":"widgets","owner":{"login":"acme"}}}`)
	signature := sign([]byte(testSecret), body)
	body[len(body)-2] = 'X'

	_, err := env.dispatcher.Dispatch(context.Background(), Delivery{Event: "label", Signature: signature, Body: body})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = env.dispatcher.Dispatch(context.Background(), Delivery{Event: "label", Body: body})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	labels, err := env.store.ListLabels(context.Background(), env.ws.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestDispatch_MissingSecretRejectsEverything(t *testing.T) {
	env := newTestEnv(t)
	d := NewDispatcher("", env.store, env.inferrer, nil, zaptest.NewLogger(t))

	body := []byte(`{"repository":{"name":"widgets","owner":{"login":"acme"}}}`)
	_, err := d.Dispatch(context.Background(), Delivery{Event: "create", Signature: sign(nil, body), Body: body})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDispatch_NoMatchingWorkspace(t *testing.T) {
	env := newTestEnv(t)

	result := env.mustDeliver(t, "label", map[string]any{
		"action":     "created",
		"label":      map[string]any{"id": 1, "name": "bug"},
		"repository": map[string]any{"name": "gadgets", "owner": map[string]any{"login": "acme"}},
	})
	assert.Equal(t, StatusNoMatchingWorkspace, result.Status)
}

func TestDispatch_UnknownEventIgnored(t *testing.T) {
	env := newTestEnv(t)

	result := env.mustDeliver(t, "ping", map[string]any{"zen": "Design for failure."})
	assert.Equal(t, StatusIgnored, result.Status)
}

func TestDispatch_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{not json`)
	_, err := env.dispatcher.Dispatch(context.Background(), Delivery{Event: "push", Signature: sign([]byte(testSecret), body), Body: body})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDispatch_CreateAndDeleteRefs(t *testing.T) {
	env := newTestEnv(t)

	for _, event := range []string{"create", "delete"} {
		result := env.mustDeliver(t, event, map[string]any{"ref": "feature/login", "ref_type": "branch"})
		assert.Equal(t, StatusProcessed, result.Status)
		assert.Equal(t, Fields{"ref": "feature/login", "ref_type": "branch"}, result.Fields)
	}
}

func TestDispatch_LabelRedeliveryAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustDeliver(t, "label", map[string]any{
		"action": "created",
		"label":  map[string]any{"id": 100, "name": "bug", "color": "ff0000"},
	})
	result := env.mustDeliver(t, "label", map[string]any{
		"action": "edited",
		"label":  map[string]any{"id": 100, "name": "defect", "color": "00ff00"},
	})
	assert.Equal(t, Fields{"label_id": int64(100), "action": "edited"}, result.Fields)

	labels, err := env.store.ListLabels(ctx, env.ws.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "defect", labels[0].Name)
	assert.Equal(t, "00ff00", labels[0].Color)

	env.mustDeliver(t, "label", map[string]any{
		"action": "deleted",
		"label":  map[string]any{"id": 100, "name": "defect"},
	})
	labels, err = env.store.ListLabels(ctx, env.ws.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestDispatch_MilestoneUpsertAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustDeliver(t, "milestone", map[string]any{
		"action":    "created",
		"milestone": map[string]any{"id": 77, "number": 1, "title": "v1", "state": "open", "due_on": "2026-12-01T00:00:00Z"},
	})
	m, err := env.store.GetMilestoneByGitHubID(ctx, env.ws.ID, 77)
	require.NoError(t, err)
	assert.Equal(t, "v1", m.Title)
	require.NotNil(t, m.DueOn)

	env.mustDeliver(t, "milestone", map[string]any{
		"action":    "deleted",
		"milestone": map[string]any{"id": 77},
	})
	_, err = env.store.GetMilestoneByGitHubID(ctx, env.ws.ID, 77)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDispatch_StoreFailureIsAnError(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	_, err := env.deliver(t, "label", map[string]any{
		"action": "created",
		"label":  map[string]any{"id": 1, "name": "bug"},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidSignature))
	assert.False(t, errors.Is(err, ErrMalformedPayload))
}
